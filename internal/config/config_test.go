package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://localhost/learnhub?sslmode=disable")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "memory", cfg.Cache.Provider)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, []int{3, 5, 7, 10, 14, 21, 30, 50, 100}, cfg.Achievements.Milestones)
	assert.True(t, cfg.Achievements.AsyncEvaluation)
	assert.Equal(t, 2*time.Minute, cfg.Achievements.BadgeCacheTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://localhost/learnhub")
	t.Setenv("STREAK_MILESTONES", "2, 4,8")
	t.Setenv("ACHIEVEMENT_ASYNC_EVALUATION", "false")
	t.Setenv("ACHIEVEMENT_WORKER_COUNT", "3")
	t.Setenv("CACHE_PROVIDER", "REDIS")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []int{2, 4, 8}, cfg.Achievements.Milestones)
	assert.False(t, cfg.Achievements.AsyncEvaluation)
	assert.Equal(t, 3, cfg.Achievements.WorkerCount)
	assert.Equal(t, "redis", cfg.Cache.Provider)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing database url", env: map[string]string{"DATABASE_URL": ""}},
		{name: "idle above open", env: map[string]string{"DB_MAX_OPEN_CONNS": "2", "DB_MAX_IDLE_CONNS": "5"}},
		{name: "redis without url", env: map[string]string{"CACHE_PROVIDER": "redis"}},
		{name: "unknown cache", env: map[string]string{"CACHE_PROVIDER": "memcached"}},
		{name: "negative milestone", env: map[string]string{"STREAK_MILESTONES": "3,-1"}},
		{name: "zero workers", env: map[string]string{"ACHIEVEMENT_WORKER_COUNT": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GO_ENV", "production")
			t.Setenv("DATABASE_URL", "postgres://localhost/learnhub")
			t.Setenv("REDIS_URL", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestGetIntListEnvFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SOME_LIST", "1,two,3")
	assert.Equal(t, []int{9}, getIntListEnv("SOME_LIST", []int{9}))
}
