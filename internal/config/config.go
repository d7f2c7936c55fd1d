package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Cache        CacheConfig
	Logging      LoggingConfig
	Achievements AchievementConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
}

// DatabaseConfig holds the Postgres connection settings
type DatabaseConfig struct {
	URL                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
	SlowQueryThreshold time.Duration
	MigrationsPath     string
	AutoMigrate        bool
}

// CacheConfig selects and tunes the cache provider
type CacheConfig struct {
	Provider string // memory, redis
	RedisURL string
	PoolSize int
	TTL      time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// AchievementConfig tunes the streak and badge engine
type AchievementConfig struct {
	Milestones          []int
	AsyncEvaluation     bool
	WorkerCount         int
	EventBufferSize     int
	BadgeCacheTTL       time.Duration
	StreakUpdateRetries int
}

// Load reads configuration from the environment, loading .env.<GO_ENV>
// outside production.
func Load() (*Config, error) {
	env := getEnv("GO_ENV", "development")
	if env != "production" {
		envFile := fmt.Sprintf(".env.%s", env)
		if _, err := os.Stat(envFile); err == nil {
			_ = godotenv.Load(envFile)
		} else {
			_ = godotenv.Load() // fallback to .env
		}
	}

	config := &Config{
		Server:       loadServerConfig(env),
		Database:     loadDatabaseConfig(),
		Cache:        loadCacheConfig(),
		Logging:      loadLoggingConfig(env),
		Achievements: loadAchievementConfig(),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func loadServerConfig(env string) ServerConfig {
	return ServerConfig{
		Port:            getEnv("PORT", "9000"),
		Environment:     env,
		ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
		GracefulTimeout: getDurationEnv("SERVER_GRACEFUL_TIMEOUT", 20*time.Second),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:                getEnv("DATABASE_URL", ""),
		MaxOpenConns:       getIntEnv("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:       getIntEnv("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime:    getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		ConnMaxIdleTime:    getDurationEnv("DB_CONN_MAX_IDLE_TIME", 10*time.Minute),
		SlowQueryThreshold: getDurationEnv("DB_SLOW_QUERY_THRESHOLD", 100*time.Millisecond),
		MigrationsPath:     getEnv("DB_MIGRATIONS_PATH", "internal/database/migrations"),
		AutoMigrate:        getBoolEnv("DB_AUTO_MIGRATE", true),
	}
}

func loadCacheConfig() CacheConfig {
	return CacheConfig{
		Provider: strings.ToLower(getEnv("CACHE_PROVIDER", "memory")),
		RedisURL: getEnv("REDIS_URL", ""),
		PoolSize: getIntEnv("REDIS_POOL_SIZE", 10),
		TTL:      getDurationEnv("CACHE_TTL", 5*time.Minute),
	}
}

func loadLoggingConfig(env string) LoggingConfig {
	return LoggingConfig{
		Level:  getEnv("LOG_LEVEL", getDefaultLogLevel(env)),
		Format: getEnv("LOG_FORMAT", getDefaultLogFormat(env)),
	}
}

func loadAchievementConfig() AchievementConfig {
	return AchievementConfig{
		Milestones:          getIntListEnv("STREAK_MILESTONES", []int{3, 5, 7, 10, 14, 21, 30, 50, 100}),
		AsyncEvaluation:     getBoolEnv("ACHIEVEMENT_ASYNC_EVALUATION", true),
		WorkerCount:         getIntEnv("ACHIEVEMENT_WORKER_COUNT", 8),
		EventBufferSize:     getIntEnv("ACHIEVEMENT_EVENT_BUFFER", 1000),
		BadgeCacheTTL:       getDurationEnv("BADGE_CACHE_TTL", 2*time.Minute),
		StreakUpdateRetries: getIntEnv("STREAK_UPDATE_RETRIES", 3),
	}
}

// Validate checks every configuration section
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database config: %w", err)
	}

	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}

	if err := c.Achievements.Validate(); err != nil {
		return fmt.Errorf("achievement config: %w", err)
	}

	return nil
}

func (d *DatabaseConfig) Validate() error {
	if d.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if d.MaxOpenConns <= 0 {
		return fmt.Errorf("MaxOpenConns must be positive")
	}

	if d.MaxIdleConns < 0 {
		return fmt.Errorf("MaxIdleConns cannot be negative")
	}

	if d.MaxIdleConns > d.MaxOpenConns {
		return fmt.Errorf("MaxIdleConns cannot be greater than MaxOpenConns")
	}

	if d.ConnMaxLifetime <= 0 {
		return fmt.Errorf("ConnMaxLifetime must be positive")
	}

	return nil
}

func (s *ServerConfig) Validate() error {
	if s.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if s.ReadTimeout <= 0 {
		return fmt.Errorf("ReadTimeout must be positive")
	}

	if s.WriteTimeout <= 0 {
		return fmt.Errorf("WriteTimeout must be positive")
	}

	return nil
}

func (c *CacheConfig) Validate() error {
	switch c.Provider {
	case "memory", "":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis provider")
		}
	default:
		return fmt.Errorf("unsupported cache provider %q", c.Provider)
	}
	return nil
}

func (a *AchievementConfig) Validate() error {
	if len(a.Milestones) == 0 {
		return fmt.Errorf("at least one streak milestone is required")
	}
	for _, m := range a.Milestones {
		if m <= 0 {
			return fmt.Errorf("streak milestone %d must be positive", m)
		}
	}

	if a.WorkerCount < 1 {
		return fmt.Errorf("WorkerCount must be at least 1")
	}

	if a.EventBufferSize < 1 {
		return fmt.Errorf("EventBufferSize must be at least 1")
	}

	if a.StreakUpdateRetries < 0 {
		return fmt.Errorf("StreakUpdateRetries cannot be negative")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getIntListEnv parses a comma separated list; any bad entry falls back to
// the default for the whole list.
func getIntListEnv(key string, defaultValue []int) []int {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return defaultValue
		}
		out = append(out, n)
	}
	return out
}

func getDefaultLogLevel(env string) string {
	switch env {
	case "production":
		return "info"
	default:
		return "debug"
	}
}

func getDefaultLogFormat(env string) string {
	switch env {
	case "production":
		return "json"
	default:
		return "console"
	}
}
