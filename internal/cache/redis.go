package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"learnhub/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type redisCache struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration

	hits, misses, sets, deletes atomic.Int64
}

// NewRedisCache creates a new Redis-based cache
func NewRedisCache(cfg *config.CacheConfig, logger *zap.Logger) (Cache, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cache config cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	options := &redis.Options{Addr: "localhost:6379"}
	if cfg.RedisURL != "" {
		parsed, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		options = parsed
	}
	if cfg.PoolSize > 0 {
		options.PoolSize = cfg.PoolSize
	}

	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	logger.Info("Redis cache initialized",
		zap.String("addr", options.Addr),
		zap.Int("db", options.DB),
	)
	return newRedisCache(client, ttl, logger), nil
}

func newRedisCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *redisCache {
	return &redisCache{client: client, logger: logger, ttl: ttl}
}

func (r *redisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.misses.Add(1)
		return false, nil
	}
	if err != nil {
		r.logger.Error("Failed to get from Redis", zap.String("key", key), zap.Error(err))
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached value %q: %w", key, err)
	}
	r.hits.Add(1)
	return true, nil
}

func (r *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %q: %w", key, err)
	}
	if ttl <= 0 {
		ttl = r.ttl
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return err
	}
	r.sets.Add(1)
	return nil
}

func (r *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	n, err := r.client.Del(ctx, keys...).Result()
	r.deletes.Add(n)
	return err
}

func (r *redisCache) DeletePattern(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 1000 {
			if err := r.Delete(ctx, keys...); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return r.Delete(ctx, keys...)
}

func (r *redisCache) Stats(ctx context.Context) (*Stats, error) {
	keys, err := r.client.DBSize(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read Redis key count: %w", err)
	}
	stats := &Stats{
		Provider: "redis",
		Hits:     r.hits.Load(),
		Misses:   r.misses.Load(),
		Sets:     r.sets.Load(),
		Deletes:  r.deletes.Load(),
		Keys:     keys,
	}
	stats.computeHitRatio()
	return stats, nil
}

func (r *redisCache) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisCache) Close() error {
	return r.client.Close()
}
