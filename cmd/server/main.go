// @title           AI Artist Backend API
// @version         1.0.0
// @description     Backend API for the AI artist studio: stylized image generation and editing, short video generation, object decomposition and multi-image composition, with a persistent workspace of saved creations and progress streamed over server-sent events.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token from POST /session.

package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ai-artist-backend/internal/config"
	"ai-artist-backend/internal/database"
	"ai-artist-backend/internal/gemini"
	"ai-artist-backend/internal/generation"
	"ai-artist-backend/internal/handlers"
	"ai-artist-backend/internal/logger"
	"ai-artist-backend/internal/preferences"
	"ai-artist-backend/internal/services"
	"ai-artist-backend/internal/supabase"
	"ai-artist-backend/internal/workspace"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLog.Sync()

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Cancelled on SIGINT/SIGTERM; background generations run on it.
	jobCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Workspace database (migrations run on open)
	dialect, err := database.ParseDialect(cfg.DatabaseDriver)
	if err != nil {
		appLog.Fatal("invalid database driver", "error", err.Error())
	}
	store, err := workspace.Open(jobCtx, dialect, cfg.DataSource(), appLog)
	if err != nil {
		appLog.Fatal("failed to open workspace", "driver", cfg.DatabaseDriver, "error", err.Error())
	}

	// A corrupt preferences file falls back to defaults.
	prefs, err := preferences.Load(cfg.PreferencesPath)
	if err != nil {
		appLog.Warn("preferences unreadable, using defaults", "path", cfg.PreferencesPath, "error", err.Error())
	}

	// Initialize Gemini client
	client := gemini.NewClient(cfg.GeminiAPIBaseURL, cfg.GeminiAPIKey, appLog)
	opts := generation.Options{
		Backend: client,
		Models: generation.Models{
			Text:      cfg.TextModel,
			ImageEdit: cfg.ImageEditModel,
			Imagen:    cfg.ImagenModel,
			VeoFast:   cfg.VeoFastModel,
			VeoMulti:  cfg.VeoMultiModel,
		},
		Log: appLog,
	}

	studioOpts := services.Options{
		Store:           store,
		PreferencesPath: cfg.PreferencesPath,
		Preferences:     prefs,
		Image:           generation.NewImageController(opts, prefs.Defaults()),
		Video: generation.NewVideoController(generation.VideoOptions{
			Options:        opts,
			PollInterval:   cfg.VideoPollInterval,
			CheckpointHold: cfg.VideoCheckpointDelay,
			Credentials: func(key string) generation.Backend {
				return client.WithAPIKey(key)
			},
		}),
		Decomposition: generation.NewDecompositionController(opts),
		Composition:   generation.NewCompositionController(opts),
		Log:           appLog,
	}

	// Publishing is optional
	if cfg.PublishingEnabled() {
		supabaseClient, err := supabase.NewClient(cfg)
		if err != nil {
			appLog.Fatal("failed to initialize Supabase client", "error", err.Error())
		}
		studioOpts.Publisher = supabaseClient.Publisher()
		appLog.Info("publishing enabled", "bucket", cfg.SupabaseStorageBucket)
	}

	studio := services.NewStudio(studioOpts)
	defer func() {
		if err := studio.Close(); err != nil {
			appLog.Warn("failed to close studio", "error", err.Error())
		}
	}()

	// Setup router
	router := handlers.NewRouter(jobCtx, cfg, studio, appLog)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Event streams end with jobCtx instead of holding shutdown open.
		BaseContext: func(net.Listener) context.Context { return jobCtx },
	}

	go func() {
		appLog.Info("server starting", "port", port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("failed to start server", "error", err.Error())
		}
	}()

	<-jobCtx.Done()
	appLog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("graceful shutdown failed", "error", err.Error())
	}
}
