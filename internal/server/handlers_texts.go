package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type textRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleListTexts(c *gin.Context) {
	texts, err := s.store.ListTexts(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(texts))
}

func (s *Server) handleCreateText(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, badRequest("Content is required"))
		return
	}
	text, err := s.store.CreateText(c.Request.Context(), currentUser(c).ID, req.Content)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, text)
}
