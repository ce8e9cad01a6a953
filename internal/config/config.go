package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	// Generative AI API
	GeminiAPIKey         string
	GeminiAPIBaseURL     string
	TextModel            string
	ImageEditModel       string
	ImagenModel          string
	VeoFastModel         string
	VeoMultiModel        string
	VideoPollInterval    time.Duration
	VideoCheckpointDelay time.Duration

	// Workspace database
	DatabaseDriver string
	DatabasePath   string
	DatabaseURL    string

	// Preferences
	PreferencesPath string

	// Session
	SessionJWTSecret string
	SessionTTL       time.Duration

	// Supabase (optional publishing target)
	SupabaseURL            string
	SupabasePublishableKey string
	SupabaseStorageBucket  string

	// Server
	Port           string
	Environment    string
	LogMode        string
	AllowedOrigins []string
}

// Load reads the full server configuration.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadWorkspace reads the configuration but only validates the workspace
// database and preferences settings, for offline tooling.
func LoadWorkspace() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.validateDatabase(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func load() (*Config, error) {
	cfg := &Config{
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiAPIBaseURL: getEnv("GEMINI_API_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/"),
		TextModel:        getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		ImageEditModel:   getEnv("GEMINI_IMAGE_EDIT_MODEL", "gemini-2.5-flash-image"),
		ImagenModel:      getEnv("IMAGEN_MODEL", "imagen-4.0-generate-001"),
		VeoFastModel:     getEnv("VEO_FAST_MODEL", "veo-3.1-fast-generate-preview"),
		VeoMultiModel:    getEnv("VEO_MULTI_MODEL", "veo-3.1-generate-preview"),

		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", "sqlite")),
		DatabasePath:   getEnv("DATABASE_PATH", "ai_artist.db"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),

		PreferencesPath: getEnv("PREFERENCES_PATH", "preferences.toml"),

		SessionJWTSecret: getEnv("SESSION_JWT_SECRET", ""),

		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabasePublishableKey: getEnv("SUPABASE_PUBLISHABLE_KEY", ""),
		SupabaseStorageBucket:  getEnv("SUPABASE_STORAGE_BUCKET", "creations"),

		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogMode:        getEnv("LOG_MODE", "dev"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
	}

	var err error
	if cfg.VideoPollInterval, err = getDuration("VIDEO_POLL_INTERVAL", 10*time.Second); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.VideoCheckpointDelay, err = getDuration("VIDEO_CHECKPOINT_DELAY", 30*time.Second); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.SessionJWTSecret == "" {
		return fmt.Errorf("SESSION_JWT_SECRET is required")
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if c.VideoPollInterval <= 0 {
		return fmt.Errorf("VIDEO_POLL_INTERVAL must be positive")
	}
	if c.SupabaseURL != "" && c.SupabasePublishableKey == "" {
		return fmt.Errorf("SUPABASE_PUBLISHABLE_KEY is required when SUPABASE_URL is set")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.DatabaseDriver {
	case "sqlite":
		if c.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("DATABASE_DRIVER must be sqlite or postgres, got %q", c.DatabaseDriver)
	}
	return nil
}

// PublishingEnabled reports whether saved creations can be pushed to the storage bucket.
func (c *Config) PublishingEnabled() bool {
	return c.SupabaseURL != ""
}

// DataSource returns the driver-specific connection string for the workspace database.
func (c *Config) DataSource() string {
	if c.DatabaseDriver == "postgres" {
		return c.DatabaseURL
	}
	return c.DatabasePath
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
