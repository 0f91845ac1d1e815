package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verte-zerg/franklin/internal/auth"
	"github.com/verte-zerg/franklin/internal/csvio"
	"github.com/verte-zerg/franklin/internal/store"
)

// Error codes returned in ErrorResponse.Code.
const (
	codeBadRequest   = "bad_request"
	codeUnauthorized = "unauthorized"
	codeForbidden    = "forbidden"
	codeNotFound     = "not_found"
	codeConflict     = "conflict"
	codeRateLimited  = "rate_limited"
	codeInternal     = "internal"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// requestError is an error with a fixed client-facing message and status.
type requestError struct {
	status  int
	code    string
	message string
}

func (e *requestError) Error() string {
	return e.message
}

func badRequest(message string) error {
	return &requestError{status: http.StatusBadRequest, code: codeBadRequest, message: message}
}

func notFound(message string) error {
	return &requestError{status: http.StatusNotFound, code: codeNotFound, message: message}
}

// writeError maps err to a status code and aborts the request.
func (s *Server) writeError(c *gin.Context, err error) {
	var reqErr *requestError
	var rowErr *csvio.RowError
	switch {
	case errors.As(err, &reqErr):
		abortWithError(c, reqErr.status, reqErr.code, reqErr.message)
	case errors.Is(err, store.ErrNotFound):
		abortWithError(c, http.StatusNotFound, codeNotFound, "Not found")
	case errors.Is(err, store.ErrDuplicateRuleNumber):
		abortWithError(c, http.StatusConflict, codeConflict, "Rule number already exists")
	case errors.Is(err, store.ErrEmptyText):
		abortWithError(c, http.StatusBadRequest, codeBadRequest, "Content is required")
	case errors.Is(err, csvio.ErrNoRecords):
		abortWithError(c, http.StatusBadRequest, codeBadRequest, "No valid records found in CSV")
	case errors.As(err, &rowErr), errors.Is(err, csvio.ErrMalformed):
		abortWithError(c, http.StatusBadRequest, codeBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidGoogleToken):
		abortWithError(c, http.StatusUnauthorized, codeUnauthorized, "Invalid token")
	default:
		s.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		abortWithError(c, http.StatusInternalServerError, codeInternal, "Internal server error")
	}
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, Code: code})
}
