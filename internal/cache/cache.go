// internal/cache/cache.go
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"learnhub/internal/config"

	"go.uber.org/zap"
)

// ===============================
// CACHE INTERFACE
// ===============================

// Cache stores JSON-encoded values. Get decodes into dest so callers never
// share a cached value with each other.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error

	Stats(ctx context.Context) (*Stats, error)
	Health(ctx context.Context) error
	Close() error
}

// Stats represents cache statistics
type Stats struct {
	Provider string  `json:"provider"`
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	Sets     int64   `json:"sets"`
	Deletes  int64   `json:"deletes"`
	Keys     int64   `json:"keys"`
	HitRatio float64 `json:"hit_ratio"`
}

func (s *Stats) computeHitRatio() {
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRatio = float64(s.Hits) / float64(total)
	}
}

const (
	defaultTTL             = 5 * time.Minute
	defaultMaxKeys         = 10000
	defaultCleanupInterval = time.Minute
)

// ===============================
// FACTORY FUNCTION
// ===============================

// NewCache creates a cache for the configured provider
func NewCache(cfg *config.CacheConfig, logger *zap.Logger) (Cache, error) {
	if cfg == nil {
		cfg = &config.CacheConfig{Provider: "memory"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(cfg.Provider) {
	case "redis":
		return NewRedisCache(cfg, logger)
	case "memory", "":
		logger.Info("Using in-memory cache")
		return NewMemoryCache(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

// matchPattern performs simple wildcard pattern matching
func matchPattern(str, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(str, strings.TrimSuffix(pattern, "*"))
	}
	if strings.HasPrefix(pattern, "*") {
		return strings.HasSuffix(str, strings.TrimPrefix(pattern, "*"))
	}
	return str == pattern
}
