package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/verte-zerg/franklin/internal/csvio"
	"github.com/verte-zerg/franklin/internal/model"
	"github.com/verte-zerg/franklin/internal/store"
)

type createRuleRequest struct {
	Number      int    `json:"number" validate:"required,min=1"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

type updateRuleRequest struct {
	Number      *int    `json:"number"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Active      *bool   `json:"active"`
}

func (r updateRuleRequest) check() error {
	if r.Number != nil && *r.Number < 1 {
		return badRequest("number must be at least 1")
	}
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return badRequest("Name is required")
	}
	return nil
}

func (s *Server) handleListRules(c *gin.Context) {
	rules, err := s.store.ListRules(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(rules))
}

func (s *Server) handleCreateRule(c *gin.Context) {
	var req createRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, badRequest("Name and a numeric number are required"))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validateRequest(req); err != nil {
		s.writeError(c, err)
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	rule, err := s.store.CreateRule(c.Request.Context(), model.Rule{
		UserID:      currentUser(c).ID,
		Number:      req.Number,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    active,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (s *Server) handleUpdateRule(c *gin.Context) {
	var req updateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, badRequest("Invalid request body"))
		return
	}
	if err := req.check(); err != nil {
		s.writeError(c, err)
		return
	}
	rule, err := s.store.UpdateRule(c.Request.Context(), currentUser(c).ID, c.Param("id"), store.RuleUpdate{
		Number:      req.Number,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.Active,
	})
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(c, notFound("Rule not found"))
		return
	}
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (s *Server) handleDeleteRule(c *gin.Context) {
	err := s.store.DeleteRule(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(c, notFound("Rule not found"))
		return
	}
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rule deleted"})
}

// handleInitRules creates the default rules for a user without rules.
func (s *Server) handleInitRules(c *gin.Context) {
	rules, created, err := s.store.InitDefaultRules(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	c.JSON(code, nonNil(rules))
}

func (s *Server) handleExportRules(c *gin.Context) {
	rules, err := s.store.ListRules(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.sendCSV(c, "rules.csv", func(w io.Writer) error {
		return csvio.WriteRules(w, rules)
	})
}

func (s *Server) handleUploadRules(c *gin.Context) {
	rules, err := readUpload(c, csvio.ReadRules)
	if err != nil {
		s.writeError(c, err)
		return
	}
	n, err := s.store.ReplaceRules(c.Request.Context(), currentUser(c).ID, rules)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rules imported", "count": n})
}
