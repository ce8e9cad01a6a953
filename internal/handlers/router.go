package handlers

import (
	"context"

	"ai-artist-backend/internal/config"
	"ai-artist-backend/internal/logger"
	"ai-artist-backend/internal/middleware"
	"ai-artist-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the API. jobCtx is handed to background generations.
func NewRouter(jobCtx context.Context, cfg *config.Config, studio *services.Studio, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health check (no auth)
	router.GET("/health", HealthHandler)

	sessionHandler := NewSessionHandler(cfg, log)
	creationsHandler := NewCreationsHandler(studio)
	preferencesHandler := NewPreferencesHandler(studio)
	studioHandler := NewStudioHandler(jobCtx, studio, log)

	api := router.Group("/api/v1")

	// Session (no auth)
	api.POST("/session", sessionHandler.CreateSession)
	api.DELETE("/session", sessionHandler.DeleteSession)

	protected := api.Group("")
	protected.Use(middleware.SessionMiddleware(cfg))

	// Preferences
	protected.GET("/preferences", preferencesHandler.GetPreferences)
	protected.PUT("/preferences", preferencesHandler.UpdatePreferences)

	// Workspace
	protected.GET("/creations", creationsHandler.ListCreations)
	protected.POST("/creations", creationsHandler.SaveCreation)
	protected.DELETE("/creations", creationsHandler.ClearCreations)
	protected.DELETE("/creations/:id", creationsHandler.DeleteCreation)
	protected.GET("/creations/:id/download", creationsHandler.DownloadCreation)
	protected.POST("/creations/:id/publish", creationsHandler.PublishCreation)
	protected.POST("/creations/:id/edit", creationsHandler.EditCreation)

	// Capabilities
	studioHandler.Register(protected)

	return router
}
