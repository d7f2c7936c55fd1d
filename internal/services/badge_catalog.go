package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"learnhub/internal/cache"
	"learnhub/internal/models"
	"learnhub/internal/repositories"
	"learnhub/internal/validation"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const badgeCachePrefix = "badges:active:"

// invalidBadge is a definition that failed validation at load time
type invalidBadge struct {
	BadgeID int64
	Err     error
}

// badgeCatalog loads active badge definitions through the cache. Concurrent
// misses for the same type set share a single repository query.
type badgeCatalog struct {
	repo   repositories.BadgeRepository
	cache  cache.Cache
	ttl    time.Duration
	group  singleflight.Group
	logger *zap.Logger
}

func newBadgeCatalog(repo repositories.BadgeRepository, c cache.Cache, ttl time.Duration, logger *zap.Logger) *badgeCatalog {
	return &badgeCatalog{repo: repo, cache: c, ttl: ttl, logger: logger}
}

// Active returns valid, active badges of the requested types ordered by tier,
// plus the definitions that were rejected.
func (c *badgeCatalog) Active(ctx context.Context, types []models.BadgeType) ([]*models.Badge, []invalidBadge, error) {
	var all []*models.Badge
	seen := make(map[models.BadgeType]bool, len(types))
	for _, t := range types {
		if seen[t] {
			continue
		}
		seen[t] = true
		badges, err := c.byType(ctx, t)
		if err != nil {
			return nil, nil, err
		}
		all = append(all, badges...)
	}

	valid := make([]*models.Badge, 0, len(all))
	var rejected []invalidBadge
	for _, b := range all {
		if !b.IsActive() {
			continue
		}
		if err := validation.ValidateBadge(b); err != nil {
			rejected = append(rejected, invalidBadge{BadgeID: b.ID, Err: err})
			continue
		}
		valid = append(valid, b)
	}
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].Tier != valid[j].Tier {
			return valid[i].Tier < valid[j].Tier
		}
		return valid[i].ID < valid[j].ID
	})
	return valid, rejected, nil
}

func (c *badgeCatalog) byType(ctx context.Context, t models.BadgeType) ([]*models.Badge, error) {
	key := badgeCachePrefix + string(t)

	if c.cache != nil {
		var cached []*models.Badge
		found, err := c.cache.Get(ctx, key, &cached)
		if err != nil {
			c.logger.Warn("Badge cache read failed", zap.String("key", key), zap.Error(err))
		} else if found {
			return cached, nil
		}
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		badges, err := c.repo.ListActiveByTypes(ctx, []models.BadgeType{t})
		if err != nil {
			return nil, err
		}
		if c.cache != nil {
			if err := c.cache.Set(ctx, key, badges, c.ttl); err != nil {
				c.logger.Warn("Badge cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
		return badges, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s badges: %w", t, err)
	}
	return v.([]*models.Badge), nil
}

// Invalidate drops cached definitions for the given types, or all of them
func (c *badgeCatalog) Invalidate(ctx context.Context, types ...models.BadgeType) error {
	if c.cache == nil {
		return nil
	}
	if len(types) == 0 {
		return c.cache.DeletePattern(ctx, badgeCachePrefix+"*")
	}
	keys := make([]string, len(types))
	for i, t := range types {
		keys[i] = badgeCachePrefix + string(t)
	}
	return c.cache.Delete(ctx, keys...)
}

func typeList(types []models.BadgeType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ",")
}
