package main

import (
	"context"
	"sync"

	"ai-artist-backend/internal/config"
	"ai-artist-backend/internal/database"
	"ai-artist-backend/internal/workspace"
)

// commandContext lazily loads configuration and the workspace store shared by
// every subcommand.
type commandContext struct {
	configOnce sync.Once
	config     *config.Config
	configErr  error

	store *workspace.Store
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = config.LoadWorkspace()
	})
	return c.config, c.configErr
}

func (c *commandContext) workspace(ctx context.Context) (*workspace.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	dialect, err := database.ParseDialect(cfg.DatabaseDriver)
	if err != nil {
		return nil, err
	}
	store, err := workspace.Open(ctx, dialect, cfg.DataSource(), nil)
	if err != nil {
		return nil, err
	}
	c.store = store
	return store, nil
}

func (c *commandContext) close() error {
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	return err
}
