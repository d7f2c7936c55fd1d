package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"learnhub/internal/database"
	"learnhub/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)

const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

// IsUniqueViolation reports whether err is a Postgres unique constraint error.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

// IsRetryable reports whether a transaction failed in a way that is safe to
// retry from the start.
func IsRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == pqSerializationFailure || pqErr.Code == pqDeadlockDetected
}

// BaseRepository provides common database operations
type BaseRepository struct {
	db     *database.Manager
	logger *zap.Logger
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(db *database.Manager, logger *zap.Logger) *BaseRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BaseRepository{
		db:     db,
		logger: logger,
	}
}

// QueryContext executes a query that returns rows
func (r *BaseRepository) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, query, args...)
}

// QueryRowContext executes a query that returns a single row
func (r *BaseRepository) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return r.db.QueryRowContext(ctx, query, args...)
}

// WithTransaction runs fn in a read-committed transaction
func (r *BaseRepository) WithTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	return r.db.WithTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, fn)
}

// IsNotFound checks for an empty single-row result
func (r *BaseRepository) IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// contextArgs expands a filter into three nullable query arguments.
func contextArgs(f models.ContextFilter) []interface{} {
	return []interface{}{nullInt64(f.GradeID), nullInt64(f.SubjectID), nullInt64(f.TermID)}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	out := v.Int64
	return &out
}

func intPtr(v sql.NullInt32) *int {
	if !v.Valid {
		return nil
	}
	out := int(v.Int32)
	return &out
}

// dateArg renders a calendar day for a DATE column.
func dateArg(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format("2006-01-02")
}

func datePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	u := v.Time.UTC()
	d := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

func wrapNotFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}
