package http

import (
	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Create controllers with appropriate dependencies
	health := NewHealthController(cfg.Database, cfg.Version)
	importController := NewImportController(cfg.ImportService)
	conversationsController := NewConversationsController(cfg.Database, cfg.Indexer)
	historyController := NewImportHistoryController(cfg.History)
	settingsController := NewImportSettingsController(cfg.SettingsStore)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Import endpoints
	router.POST("/import/:source", importController.Import)

	// Conversation API endpoints
	router.GET("/api/conversations", conversationsController.List)
	router.GET("/api/conversations/search", conversationsController.Search)
	router.GET("/api/conversations/stats", conversationsController.Stats)
	router.GET("/api/conversations/:id", conversationsController.Get)
	router.DELETE("/api/conversations/:id", conversationsController.Delete)

	// Import history endpoints
	router.GET("/api/imports", historyController.List)
	router.GET("/api/imports/:id", historyController.Get)

	// Import settings endpoints
	router.GET("/api/settings/import", settingsController.Get)
	router.PUT("/api/settings/import", settingsController.Update)

	// Reindex sweep trigger (if scheduler is available)
	if cfg.ReindexScheduler != nil {
		router.POST("/api/admin/reindex", func(c *gin.Context) {
			cfg.ReindexScheduler.RunNow()
			c.IndentedJSON(202, gin.H{"status": "reindex sweep triggered"})
		})
	}

	return router
}
