package repositories

import (
	"context"
	"fmt"
	"time"

	"learnhub/internal/database"

	"go.uber.org/zap"
)

// Collection holds all repository instances for dependency injection
type Collection struct {
	Streak   StreakRepository
	Badge    BadgeRepository
	Award    AwardRepository
	Activity ActivityRepository

	db     *database.Manager
	logger *zap.Logger
}

// NewCollection creates a new repository collection with all dependencies
func NewCollection(db *database.Manager, logger *zap.Logger) (*Collection, error) {
	if db == nil {
		return nil, fmt.Errorf("database manager is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	collection := &Collection{
		Streak:   NewStreakRepository(db, logger),
		Badge:    NewBadgeRepository(db, logger),
		Award:    NewAwardRepository(db, logger),
		Activity: NewActivityRepository(db, logger),
		db:       db,
		logger:   logger,
	}

	logger.Info("Repository collection initialized successfully")
	return collection, nil
}

// HealthCheck reports database reachability and query counters
func (c *Collection) HealthCheck(ctx context.Context) map[string]interface{} {
	start := time.Now()
	err := c.db.Ping(ctx)
	duration := time.Since(start)

	health := map[string]interface{}{
		"healthy":       err == nil,
		"response_time": duration.String(),
		"stats":         c.db.Stats(),
	}
	if err != nil {
		health["error"] = err.Error()
		c.logger.Warn("Database health check failed", zap.Error(err), zap.Duration("duration", duration))
	}
	return health
}

// GetDB returns the underlying database manager for advanced operations
func (c *Collection) GetDB() *database.Manager {
	return c.db
}

// Close closes the database connection pool
func (c *Collection) Close() error {
	c.logger.Info("Closing repository collection")
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
