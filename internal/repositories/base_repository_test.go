package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"learnhub/internal/models"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		unique    bool
		retryable bool
	}{
		{"unique violation", &pq.Error{Code: "23505"}, true, false},
		{"wrapped unique violation", fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), true, false},
		{"serialization failure", &pq.Error{Code: "40001"}, false, true},
		{"deadlock", &pq.Error{Code: "40P01"}, false, true},
		{"foreign key", &pq.Error{Code: "23503"}, false, false},
		{"plain error", errors.New("boom"), false, false},
		{"nil", nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.unique, IsUniqueViolation(tt.err))
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

func TestWrapNotFound(t *testing.T) {
	err := wrapNotFound(sql.ErrNoRows, "streak for user 1")
	assert.ErrorIs(t, err, ErrNotFound)

	other := wrapNotFound(errors.New("conn reset"), "streak for user 1")
	assert.False(t, errors.Is(other, ErrNotFound))
	assert.Contains(t, other.Error(), "conn reset")
}

func TestContextArgs(t *testing.T) {
	grade := int64(4)
	args := contextArgs(models.ContextFilter{GradeID: &grade})
	require.Len(t, args, 3)
	assert.Equal(t, sql.NullInt64{Int64: 4, Valid: true}, args[0])
	assert.Equal(t, sql.NullInt64{}, args[1])
	assert.Equal(t, sql.NullInt64{}, args[2])
}

func TestDateHelpers(t *testing.T) {
	assert.Nil(t, dateArg(nil))

	at := time.Date(2024, 3, 9, 23, 30, 0, 0, time.FixedZone("EAT", 3*3600))
	assert.Equal(t, "2024-03-09", dateArg(&at))

	assert.Nil(t, datePtr(sql.NullTime{}))
	day := datePtr(sql.NullTime{Time: time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC), Valid: true})
	require.NotNil(t, day)
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), *day)
}
