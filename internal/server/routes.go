package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerRoutes wires every endpoint.
//
//	GET    /api/health
//	POST   /api/auth/google
//	GET    /api/auth/me
//	GET    /api/grid-data                       POST /api/grid-data
//	DELETE /api/grid-data/:date/:rule           DELETE /api/grid-data/clear-all
//	GET    /api/grid-data/export                POST /api/grid-data/upload-csv
//	GET    /api/rules                           POST /api/rules
//	PUT    /api/rules/:id                       DELETE /api/rules/:id
//	POST   /api/rules/init
//	GET    /api/rules/export                    POST /api/rules/upload-csv
//	GET    /api/texts                           POST /api/texts
//	GET    /api/statistics?period=
//	/api/admin/...                              admin only
//	GET    /metrics
func (s *Server) registerRoutes() {
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))

	api := s.engine.Group("/api")
	api.GET("/health", s.handleHealth)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/google", s.rateLimit(), s.handleGoogleSignIn)
		authGroup.GET("/me", s.requireAuth(), s.handleMe)
	}

	protected := api.Group("", s.requireAuth())

	grid := protected.Group("/grid-data")
	{
		grid.GET("", s.handleListGrid)
		grid.POST("", s.handleUpsertGrid)
		grid.DELETE("/clear-all", s.handleClearGrid)
		grid.DELETE("/:date/:rule", s.handleDeleteGrid)
		grid.GET("/export", s.handleExportGrid)
		grid.POST("/upload-csv", s.handleUploadGrid)
	}

	rules := protected.Group("/rules")
	{
		rules.GET("", s.handleListRules)
		rules.POST("", s.handleCreateRule)
		rules.POST("/init", s.handleInitRules)
		rules.GET("/export", s.handleExportRules)
		rules.POST("/upload-csv", s.handleUploadRules)
		rules.PUT("/:id", s.handleUpdateRule)
		rules.DELETE("/:id", s.handleDeleteRule)
	}

	texts := protected.Group("/texts")
	{
		texts.GET("", s.handleListTexts)
		texts.POST("", s.handleCreateText)
	}

	protected.GET("/statistics", s.handleStatistics)

	admin := protected.Group("/admin", requireAdmin())
	{
		admin.GET("/users", s.handleAdminUsers)
		admin.GET("/statistics", s.handleAdminStatistics)
		admin.DELETE("/clear-all-grid-data", s.handleAdminClearAll)
		admin.DELETE("/clear-user-grid-data/:userId", s.handleAdminClearUser)
		admin.GET("/export-all-rules", s.handleAdminExportRules)
		admin.GET("/export-all-progress", s.handleAdminExportProgress)
		admin.POST("/upload-all-progress", s.handleAdminUploadProgress)
		admin.POST("/upload-all-rules", s.handleAdminUploadRules)
		admin.POST("/populate", s.handlePopulate)
		admin.GET("/db-dump", s.handleAdminDBDump)
		admin.POST("/reset", s.handleAdminReset)
	}
}
