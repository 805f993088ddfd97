package http

import (
	"github.com/gin-gonic/gin"
	"github.com/pricecheck/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware(handler.logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handler.HealthCheck)
		v1.GET("/estimate", handler.Estimate)

		search := v1.Group("/search")
		{
			search.POST("/start", handler.StartSearch)
			search.POST("/chunk", handler.ProcessChunk)
		}

		sessions := v1.Group("/sessions/:id")
		{
			sessions.GET("/results", handler.GetResults)
			sessions.GET("/progress", handler.GetProgress)
			sessions.GET("/progress/stream", handler.StreamProgress)
			sessions.DELETE("", handler.DeleteSession)
		}
	}

	return router
}
