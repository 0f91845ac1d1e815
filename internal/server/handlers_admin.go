package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verte-zerg/franklin/internal/calendar"
	"github.com/verte-zerg/franklin/internal/csvio"
	"github.com/verte-zerg/franklin/internal/generator"
	"github.com/verte-zerg/franklin/internal/store"
)

func (s *Server) handleAdminUsers(c *gin.Context) {
	users, err := s.store.ListUsers(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	views := make([]userView, len(users))
	for i, u := range users {
		views[i] = viewUser(u)
	}
	c.JSON(http.StatusOK, views)
}

// handleAdminStatistics reports tick, cross and blank counts per user.
func (s *Server) handleAdminStatistics(c *gin.Context) {
	counts, err := s.store.CellCounts(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(counts))
}

func (s *Server) handleAdminClearAll(c *gin.Context) {
	n, err := s.store.ClearAllGridEntries(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All grid data cleared", "deletedCount": n})
}

// handleAdminReset wipes rules, grid data and notes for every user.
func (s *Server) handleAdminReset(c *gin.Context) {
	res, err := s.store.ResetData(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.logger.Warn("database reset",
		zap.Int64("rules", res.Rules),
		zap.Int64("grid_data", res.GridData),
		zap.Int64("texts", res.Texts),
	)
	c.JSON(http.StatusOK, gin.H{"message": "Database reset successful", "deleted": res})
}

// handleAdminDBDump returns every stored row as JSON.
func (s *Server) handleAdminDBDump(c *gin.Context) {
	ctx := c.Request.Context()
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		s.writeError(c, err)
		return
	}
	rules, err := s.store.ListAllRules(ctx)
	if err != nil {
		s.writeError(c, err)
		return
	}
	entries, err := s.store.ListAllGridEntries(ctx)
	if err != nil {
		s.writeError(c, err)
		return
	}
	texts, err := s.store.ListAllTexts(ctx)
	if err != nil {
		s.writeError(c, err)
		return
	}
	views := make([]userView, len(users))
	for i, u := range users {
		views[i] = viewUser(u)
	}
	c.JSON(http.StatusOK, gin.H{
		"users":    views,
		"rules":    rules,
		"gridData": entries,
		"texts":    texts,
	})
}

func (s *Server) handleAdminClearUser(c *gin.Context) {
	userID := c.Param("userId")
	if _, err := s.store.GetUser(c.Request.Context(), userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = notFound("User not found")
		}
		s.writeError(c, err)
		return
	}
	n, err := s.store.ClearGridEntries(c.Request.Context(), userID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User grid data cleared", "deletedCount": n})
}

func (s *Server) handleAdminExportRules(c *gin.Context) {
	rules, err := s.store.ListAllRules(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.sendCSV(c, "all-rules.csv", func(w io.Writer) error {
		return csvio.WriteAllRules(w, rules)
	})
}

func (s *Server) handleAdminExportProgress(c *gin.Context) {
	entries, err := s.store.ListAllGridEntries(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.sendCSV(c, "all-progress.csv", func(w io.Writer) error {
		return csvio.WriteAllProgress(w, entries)
	})
}

// handleAdminUploadProgress replaces the grid data of every user with the
// uploaded rows. Rows for unknown emails are skipped.
func (s *Server) handleAdminUploadProgress(c *gin.Context) {
	rows, err := readUpload(c, csvio.ReadAllProgress)
	if err != nil {
		s.writeError(c, err)
		return
	}
	res, err := s.store.ReplaceAllGridEntries(c.Request.Context(), rows)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "Progress data uploaded successfully",
		"count":         res.Imported,
		"skippedEmails": nonNil(res.Skipped),
	})
}

// handleAdminUploadRules replaces the rules of every user named in the upload.
func (s *Server) handleAdminUploadRules(c *gin.Context) {
	rows, err := readUpload(c, csvio.ReadAllRules)
	if err != nil {
		s.writeError(c, err)
		return
	}
	res, err := s.store.ReplaceAllRules(c.Request.Context(), rows)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "Rules uploaded successfully",
		"count":         res.Imported,
		"skippedEmails": nonNil(res.Skipped),
	})
}

// handlePopulate fills the caller's grid with demo data. ?days= sets the
// range, ?tick= the tick probability.
func (s *Server) handlePopulate(c *gin.Context) {
	days := generator.DefaultDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(c, badRequest("days must be a positive number"))
			return
		}
		days = n
	}
	tickProb := generator.DefaultTickProbability
	if raw := c.Query("tick"); raw != "" {
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil || p < 0 || p > 1 {
			s.writeError(c, badRequest("tick must be between 0 and 1"))
			return
		}
		tickProb = p
	}

	today := calendar.DayOf(s.opts.Now())
	summary, err := generator.New().Seed(c.Request.Context(), s.store, currentUser(c).ID, today, days, tickProb)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Test data populated successfully", "summary": summary})
}
