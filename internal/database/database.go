package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"learnhub/internal/config"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Open connects to Postgres, retrying while the server comes up, and applies
// migrations when auto-migrate is enabled.
func Open(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var manager *Manager
	connect := func() error {
		m, err := NewManager(cfg, logger)
		if err != nil {
			return err
		}
		manager = m
		return nil
	}
	if err := backoff.RetryNotify(connect, startupBackoff(ctx), func(err error, wait time.Duration) {
		logger.Warn("Database not ready, retrying", zap.Error(err), zap.Duration("retry_in", wait))
	}); err != nil {
		return nil, fmt.Errorf("database failed to become available: %w", err)
	}

	if !cfg.AutoMigrate {
		return manager, nil
	}

	path := determineMigrationsPath(cfg.MigrationsPath)
	migrate := func() error { return manager.Migrate(path) }
	if err := backoff.RetryNotify(migrate, backoff.WithMaxRetries(startupBackoff(ctx), 3), func(err error, wait time.Duration) {
		logger.Warn("Migration attempt failed, retrying", zap.Error(err), zap.Duration("retry_in", wait))
	}); err != nil {
		manager.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	return manager, nil
}

func startupBackoff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = time.Minute
	return backoff.WithContext(b, ctx)
}

// determineMigrationsPath falls back to the usual locations when the
// configured path does not exist
func determineMigrationsPath(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}
	for _, path := range []string{"./internal/database/migrations", "./migrations"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return configPath
}
