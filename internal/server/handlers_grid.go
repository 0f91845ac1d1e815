package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/verte-zerg/franklin/internal/calendar"
	"github.com/verte-zerg/franklin/internal/csvio"
	"github.com/verte-zerg/franklin/internal/model"
	"github.com/verte-zerg/franklin/internal/store"
)

type gridRequest struct {
	Date   string `json:"date" validate:"required,daykey"`
	Rule   int    `json:"rule" validate:"required,min=1"`
	Status string `json:"status" validate:"required,oneof=blank tick cross"`
}

func (s *Server) handleListGrid(c *gin.Context) {
	entries, err := s.store.ListGridEntries(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(entries))
}

// handleUpsertGrid sets one cell. New cells answer 201, updated cells 200.
func (s *Server) handleUpsertGrid(c *gin.Context) {
	var req gridRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, badRequest("Invalid request body"))
		return
	}
	if err := validateRequest(req); err != nil {
		s.writeError(c, err)
		return
	}
	key, err := calendar.ParseDayKey(req.Date)
	if err != nil {
		s.writeError(c, badRequest(err.Error()))
		return
	}
	status, err := model.ParseStatus(req.Status)
	if err != nil {
		s.writeError(c, badRequest(err.Error()))
		return
	}

	entry, created, err := s.store.UpsertGridEntry(c.Request.Context(), model.GridEntry{
		UserID: currentUser(c).ID,
		Date:   key,
		Rule:   req.Rule,
		Status: status,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	c.JSON(code, entry)
}

func (s *Server) handleDeleteGrid(c *gin.Context) {
	key, err := calendar.ParseDayKey(c.Param("date"))
	if err != nil {
		s.writeError(c, badRequest(err.Error()))
		return
	}
	rule, err := strconv.Atoi(c.Param("rule"))
	if err != nil {
		s.writeError(c, badRequest("rule must be a number"))
		return
	}
	err = s.store.DeleteGridEntry(c.Request.Context(), currentUser(c).ID, key, rule)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(c, notFound("Grid entry not found"))
		return
	}
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Grid entry deleted"})
}

func (s *Server) handleClearGrid(c *gin.Context) {
	n, err := s.store.ClearGridEntries(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Grid data cleared", "deletedCount": n})
}

func (s *Server) handleExportGrid(c *gin.Context) {
	entries, err := s.store.ListGridEntries(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.sendCSV(c, "progress.csv", func(w io.Writer) error {
		return csvio.WriteProgress(w, entries)
	})
}

// handleUploadGrid replaces the caller's grid with the uploaded CSV.
func (s *Server) handleUploadGrid(c *gin.Context) {
	entries, err := readUpload(c, csvio.ReadProgress)
	if err != nil {
		s.writeError(c, err)
		return
	}
	n, err := s.store.ReplaceGridEntries(c.Request.Context(), currentUser(c).ID, entries)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Progress imported", "count": n})
}
