package server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const csvContentType = "text/csv; charset=utf-8"

// sendCSV renders a CSV attachment. Rendering happens before any byte is sent
// so that a failure still produces a JSON error.
func (s *Server) sendCSV(c *gin.Context, filename string, write func(io.Writer) error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		s.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, csvContentType, buf.Bytes())
}

// uploadReader returns the uploaded CSV: the "file" part of a multipart form,
// or the raw request body otherwise.
func uploadReader(c *gin.Context) (io.ReadCloser, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			return nil, badRequest("CSV file is required")
		}
		file, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload: %w", err)
		}
		return file, nil
	}
	return c.Request.Body, nil
}

// readUpload parses the uploaded CSV with parse.
func readUpload[T any](c *gin.Context, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	body, err := uploadReader(c)
	if err != nil {
		return zero, err
	}
	defer func() {
		if cerr := body.Close(); cerr != nil {
			// Best-effort upload close.
			_ = cerr
		}
	}()
	return parse(body)
}
