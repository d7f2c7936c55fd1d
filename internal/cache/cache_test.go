package cache

import (
	"context"
	"testing"
	"time"

	"learnhub/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type entry struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func newTestCache(t *testing.T) Cache {
	t.Helper()
	c, err := NewCache(&config.CacheConfig{Provider: "memory", TTL: time.Minute}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	var got []entry
	found, err := c.Get(ctx, "badges:active:term_explorer", &got)
	require.NoError(t, err)
	assert.False(t, found)

	want := []entry{{ID: 1, Name: "Explorer"}, {ID: 2, Name: "Voyager"}}
	require.NoError(t, c.Set(ctx, "badges:active:term_explorer", want, 0))

	found, err = c.Get(ctx, "badges:active:term_explorer", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)

	// decoded values are independent copies
	got[0].Name = "changed"
	var again []entry
	_, err = c.Get(ctx, "badges:active:term_explorer", &again)
	require.NoError(t, err)
	assert.Equal(t, "Explorer", again[0].Name)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Keys)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.Set(ctx, "short", entry{ID: 1}, 10*time.Millisecond))
	time.Sleep(25 * time.Millisecond)

	var got entry
	found, err := c.Get(ctx, "short", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryCacheDeletePattern(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.Set(ctx, "badges:active:streak_master", 1, 0))
	require.NoError(t, c.Set(ctx, "badges:active:perfectionist", 2, 0))
	require.NoError(t, c.Set(ctx, "other", 3, 0))

	require.NoError(t, c.DeletePattern(ctx, "badges:active:*"))

	var v int
	found, _ := c.Get(ctx, "badges:active:streak_master", &v)
	assert.False(t, found)
	found, _ = c.Get(ctx, "other", &v)
	assert.True(t, found)
	assert.Equal(t, 3, v)
}

func TestMemoryCacheClose(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Health(context.Background()))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Error(t, c.Health(context.Background()))
}

func TestNewCacheRejectsUnknownProvider(t *testing.T) {
	_, err := NewCache(&config.CacheConfig{Provider: "memcached"}, nil)
	assert.Error(t, err)
}

func TestMatchPattern(t *testing.T) {
	assert.True(t, matchPattern("anything", "*"))
	assert.True(t, matchPattern("badges:active:x", "badges:*"))
	assert.True(t, matchPattern("user:1:streak", "*:streak"))
	assert.False(t, matchPattern("user:1:streak", "badges:*"))
	assert.True(t, matchPattern("exact", "exact"))
}
