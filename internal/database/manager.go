package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"learnhub/internal/config"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Manager wraps the Postgres connection pool with logging and query stats.
type Manager struct {
	db      *sql.DB
	logger  *zap.Logger
	config  *config.DatabaseConfig
	queries atomic.Int64
	failed  atomic.Int64
	slow    atomic.Int64
}

// Stats is a point-in-time view of query counters and pool usage.
type Stats struct {
	Queries   int64 `json:"queries"`
	Failed    int64 `json:"failed"`
	Slow      int64 `json:"slow"`
	OpenConns int   `json:"open_connections"`
	InUse     int   `json:"in_use"`
	Idle      int   `json:"idle"`
	WaitCount int64 `json:"wait_count"`
}

// NewManager opens and verifies a Postgres connection pool.
func NewManager(cfg *config.DatabaseConfig, logger *zap.Logger) (*Manager, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	configureConnectionPool(db, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database manager initialized",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
		zap.Duration("conn_max_lifetime", cfg.ConnMaxLifetime),
	)

	return &Manager{db: db, logger: logger, config: cfg}, nil
}

func configureConnectionPool(db *sql.DB, cfg *config.DatabaseConfig) {
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// DB returns the underlying connection pool.
func (m *Manager) DB() *sql.DB {
	return m.db
}

// Migrate applies pending migrations from migrationsPath on a dedicated
// connection so the migrator cannot close the main pool.
func (m *Manager) Migrate(migrationsPath string) error {
	m.logger.Info("Starting database migrations", zap.String("path", migrationsPath))

	migrationDB, err := sql.Open("postgres", m.config.URL)
	if err != nil {
		return fmt.Errorf("failed to create migration connection: %w", err)
	}
	defer migrationDB.Close()

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer migrator.Close()

	currentVersion, dirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		m.logger.Warn("Database is in dirty state", zap.Uint("version", currentVersion))
		return fmt.Errorf("database is in dirty state at version %d", currentVersion)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	newVersion, _, err := migrator.Version()
	if err != nil {
		return fmt.Errorf("failed to get new migration version: %w", err)
	}

	m.logger.Info("Migrations completed successfully",
		zap.Uint("from_version", currentVersion),
		zap.Uint("to_version", newVersion),
	)
	return nil
}

// ExecContext executes a statement, logging failures and slow queries.
func (m *Manager) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := m.db.ExecContext(ctx, query, args...)
	m.observe("exec", query, start, err)
	return result, err
}

// QueryContext runs a query that returns rows.
func (m *Manager) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := m.db.QueryContext(ctx, query, args...)
	m.observe("query", query, start, err)
	return rows, err
}

// QueryRowContext runs a single-row query. Scan errors surface to the caller.
func (m *Manager) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	start := time.Now()
	row := m.db.QueryRowContext(ctx, query, args...)
	m.observe("query_row", query, start, row.Err())
	return row
}

// WithTx runs fn inside a transaction, committing on success and rolling back
// on error or panic.
func (m *Manager) WithTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) (err error) {
	tx, err := m.db.BeginTx(ctx, opts)
	if err != nil {
		m.logger.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (m *Manager) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

// Stats returns query counters and pool statistics.
func (m *Manager) Stats() Stats {
	pool := m.db.Stats()
	return Stats{
		Queries:   m.queries.Load(),
		Failed:    m.failed.Load(),
		Slow:      m.slow.Load(),
		OpenConns: pool.OpenConnections,
		InUse:     pool.InUse,
		Idle:      pool.Idle,
		WaitCount: pool.WaitCount,
	}
}

// Close closes the connection pool.
func (m *Manager) Close() error {
	if m.db == nil {
		return nil
	}
	m.logger.Info("Closing database connection")
	return m.db.Close()
}

func (m *Manager) observe(kind, query string, start time.Time, err error) {
	m.queries.Add(1)
	duration := time.Since(start)

	threshold := m.config.SlowQueryThreshold
	if threshold <= 0 {
		threshold = 100 * time.Millisecond
	}
	if duration > threshold {
		m.slow.Add(1)
		m.logger.Warn("Slow query detected",
			zap.String("type", kind),
			zap.Duration("duration", duration),
			zap.String("query", truncateQuery(query)),
		)
	}

	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		m.failed.Add(1)
		m.logger.Error("Query execution failed",
			zap.String("type", kind),
			zap.Error(err),
			zap.String("query", truncateQuery(query)),
		)
	}
}

// truncateQuery truncates long queries for logging
func truncateQuery(query string) string {
	const maxLength = 200
	if len(query) <= maxLength {
		return query
	}
	return query[:maxLength] + "..."
}
