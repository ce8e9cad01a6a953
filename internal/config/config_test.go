package config_test

import (
	"testing"
	"time"

	"ai-artist-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("SESSION_JWT_SECRET", "secret")
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("VIDEO_POLL_INTERVAL", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "ai_artist.db", cfg.DataSource())
	assert.Equal(t, 10*time.Second, cfg.VideoPollInterval)
	assert.Equal(t, 30*time.Second, cfg.VideoCheckpointDelay)
	assert.Equal(t, "veo-3.1-fast-generate-preview", cfg.VeoFastModel)
	assert.False(t, cfg.PublishingEnabled())
}

func TestLoad_MissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("SESSION_JWT_SECRET", "secret")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("SESSION_JWT_SECRET", "secret")
	t.Setenv("VIDEO_POLL_INTERVAL", "soon")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VIDEO_POLL_INTERVAL")
}

func TestValidate_Postgres(t *testing.T) {
	cfg := &config.Config{
		GeminiAPIKey:      "key",
		SessionJWTSecret:  "secret",
		DatabaseDriver:    "postgres",
		VideoPollInterval: time.Second,
	}
	assert.Error(t, cfg.Validate())

	cfg.DatabaseURL = "postgres://localhost/artist"
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "postgres://localhost/artist", cfg.DataSource())
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := &config.Config{
		GeminiAPIKey:      "key",
		SessionJWTSecret:  "secret",
		DatabaseDriver:    "mysql",
		VideoPollInterval: time.Second,
	}
	assert.Error(t, cfg.Validate())
}

func TestValidate_SupabaseNeedsKey(t *testing.T) {
	cfg := &config.Config{
		GeminiAPIKey:      "key",
		SessionJWTSecret:  "secret",
		DatabaseDriver:    "sqlite",
		DatabasePath:      "a.db",
		VideoPollInterval: time.Second,
		SupabaseURL:       "https://example.supabase.co",
	}
	assert.Error(t, cfg.Validate())

	cfg.SupabasePublishableKey = "anon"
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.PublishingEnabled())
}

func TestLoadWorkspace_SkipsServerSecrets(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("SESSION_JWT_SECRET", "")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_PATH", "/tmp/workspace.db")

	cfg, err := config.LoadWorkspace()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/workspace.db", cfg.DataSource())

	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	_, err = config.LoadWorkspace()
	assert.Error(t, err)
}
