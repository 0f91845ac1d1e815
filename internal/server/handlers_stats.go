package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/verte-zerg/franklin/internal/calendar"
	"github.com/verte-zerg/franklin/internal/stats"
)

// handleStatistics computes the caller's statistics for ?period=.
func (s *Server) handleStatistics(c *gin.Context) {
	period := calendar.ParsePeriod(c.Query("period"))
	report, err := stats.BuildReport(c.Request.Context(), s.store, currentUser(c).ID, period, s.opts.Now(), 0)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report.Stats)
}
