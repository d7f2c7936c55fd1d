package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"learnhub/internal/config"

	"go.uber.org/zap"
)

// memoryCache implements Cache using in-memory storage
type memoryCache struct {
	mu      sync.Mutex
	items   map[string]*cacheItem
	maxKeys int
	ttl     time.Duration
	logger  *zap.Logger

	hits, misses, sets, deletes atomic.Int64

	stopOnce sync.Once
	stopCh   chan struct{}
}

type cacheItem struct {
	data       []byte
	expiresAt  time.Time
	accessedAt time.Time
}

// NewMemoryCache creates a new in-memory cache and starts its janitor
func NewMemoryCache(cfg *config.CacheConfig, logger *zap.Logger) Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	c := &memoryCache{
		items:   make(map[string]*cacheItem),
		maxKeys: defaultMaxKeys,
		ttl:     ttl,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
	go c.cleanup(defaultCleanupInterval)
	return c
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	item, ok := c.items[key]
	now := time.Now()
	if ok && now.After(item.expiresAt) {
		delete(c.items, key)
		ok = false
	}
	var data []byte
	if ok {
		item.accessedAt = now
		data = item.data
	}
	c.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached value %q: %w", key, err)
	}
	c.hits.Add(1)
	return true, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %q: %w", key, err)
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxKeys {
		c.evictLRU()
	}
	now := time.Now()
	c.items[key] = &cacheItem{data: data, expiresAt: now.Add(ttl), accessedAt: now}
	c.sets.Add(1)
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		if _, ok := c.items[key]; ok {
			delete(c.items, key)
			c.deletes.Add(1)
		}
	}
	return nil
}

func (c *memoryCache) DeletePattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.items {
		if matchPattern(key, pattern) {
			delete(c.items, key)
			c.deletes.Add(1)
		}
	}
	return nil
}

func (c *memoryCache) Stats(ctx context.Context) (*Stats, error) {
	c.mu.Lock()
	keys := len(c.items)
	c.mu.Unlock()

	stats := &Stats{
		Provider: "memory",
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Sets:     c.sets.Load(),
		Deletes:  c.deletes.Load(),
		Keys:     int64(keys),
	}
	stats.computeHitRatio()
	return stats, nil
}

func (c *memoryCache) Health(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return fmt.Errorf("memory cache is closed")
	default:
		return nil
	}
}

func (c *memoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	return nil
}

func (c *memoryCache) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanupExpired()
		case <-c.stopCh:
			return
		}
	}
}

func (c *memoryCache) cleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	expired := 0
	for key, item := range c.items {
		if now.After(item.expiresAt) {
			delete(c.items, key)
			expired++
		}
	}
	if expired > 0 {
		c.logger.Debug("Cleaned up expired cache items",
			zap.Int("expired_count", expired),
			zap.Int("remaining_count", len(c.items)),
		)
	}
}

// evictLRU drops the least recently read item. Caller holds mu.
func (c *memoryCache) evictLRU() {
	var oldestKey string
	var oldest time.Time
	for key, item := range c.items {
		if oldestKey == "" || item.accessedAt.Before(oldest) {
			oldestKey, oldest = key, item.accessedAt
		}
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
