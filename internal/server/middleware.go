package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verte-zerg/franklin/internal/model"
	"github.com/verte-zerg/franklin/internal/store"
)

const userContextKey = "franklin.user"

// requireAuth validates the bearer token and loads the calling user.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			abortWithError(c, http.StatusUnauthorized, codeUnauthorized, "Authentication required")
			return
		}
		claims, err := s.issuer.Parse(token)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, codeUnauthorized, "Invalid token")
			return
		}
		user, err := s.store.GetUser(c.Request.Context(), claims.UserID)
		if errors.Is(err, store.ErrNotFound) {
			abortWithError(c, http.StatusUnauthorized, codeUnauthorized, "User not found")
			return
		}
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

// requireAdmin rejects callers without admin rights. It must run after requireAuth.
func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentUser(c).IsAdmin {
			abortWithError(c, http.StatusForbidden, codeForbidden, "Admin access required")
			return
		}
		c.Next()
	}
}

// extractBearerToken extracts the token from "Authorization: Bearer <token>".
func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// currentUser returns the user stored by requireAuth.
func currentUser(c *gin.Context) model.User {
	if v, ok := c.Get(userContextKey); ok {
		if user, ok := v.(model.User); ok {
			return user
		}
	}
	return model.User{}
}

// rateLimit throttles sign-in attempts with a shared token bucket.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow() {
			abortWithError(c, http.StatusTooManyRequests, codeRateLimited, "Too many requests")
			return
		}
		c.Next()
	}
}

// requestLogger logs one line per request.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("duration", time.Since(start)),
		}
		if user := currentUser(c); user.ID != "" {
			fields = append(fields, zap.String("user", user.ID))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request", fields...)
			return
		}
		logger.Info("request", fields...)
	}
}

// cors allows a single browser origin.
func cors(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Add("Vary", "Origin")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
