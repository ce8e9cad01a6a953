package supabase

import (
	"errors"
	"strings"

	"ai-artist-backend/internal/config"

	"github.com/supabase-community/supabase-go"
)

var ErrPublishingDisabled = errors.New("publishing is not configured")

type Client struct {
	Supabase *supabase.Client
	Config   *config.Config
}

func NewClient(cfg *config.Config) (*Client, error) {
	if !cfg.PublishingEnabled() {
		return nil, ErrPublishingDisabled
	}
	client, err := supabase.NewClient(strings.TrimRight(cfg.SupabaseURL, "/"), cfg.SupabasePublishableKey, nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		Supabase: client,
		Config:   cfg,
	}, nil
}

// Publisher returns a publisher bound to the configured bucket.
func (c *Client) Publisher() *Publisher {
	return newPublisher(c.Supabase.Storage, c.Config.SupabaseURL, c.Config.SupabaseStorageBucket)
}
