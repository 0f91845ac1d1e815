package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/verte-zerg/franklin/internal/model"
)

type googleSignInRequest struct {
	Token string `json:"token" validate:"required"`
}

// userView is the public shape of a user.
type userView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Picture   string    `json:"picture,omitempty"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

func viewUser(u model.User) userView {
	return userView{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Picture:   u.Picture,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleGoogleSignIn exchanges a Google ID token for an API bearer token.
func (s *Server) handleGoogleSignIn(c *gin.Context) {
	var req googleSignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, badRequest("Token is required"))
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if err := validateRequest(req); err != nil {
		s.writeError(c, err)
		return
	}

	identity, err := s.verifier.Verify(c.Request.Context(), req.Token)
	if err != nil {
		s.writeError(c, err)
		return
	}
	user, err := s.store.UpsertUserByEmail(c.Request.Context(), model.User{
		Email:    identity.Email,
		Name:     identity.Name,
		Picture:  identity.Picture,
		GoogleID: identity.Subject,
		IsAdmin:  s.isAdminEmail(identity.Email),
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	token, err := s.issuer.Issue(user)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": viewUser(user)})
}

func (s *Server) handleMe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": viewUser(currentUser(c))})
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
