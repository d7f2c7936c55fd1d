package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"learnhub/internal/database"
	"learnhub/internal/models"

	"go.uber.org/zap"
)

type streakRepository struct {
	*BaseRepository
}

// NewStreakRepository creates the Postgres-backed streak repository
func NewStreakRepository(db *database.Manager, logger *zap.Logger) StreakRepository {
	return &streakRepository{BaseRepository: NewBaseRepository(db, logger)}
}

const selectStreakQuery = `
	SELECT streak_current, streak_best, streak_start, streak_last_active
	FROM users
	WHERE id = $1`

// Get returns the user's current streak snapshot
func (r *streakRepository) Get(ctx context.Context, userID int64) (models.StreakState, error) {
	state, err := scanStreak(r.QueryRowContext(ctx, selectStreakQuery, userID))
	if err != nil {
		return models.StreakState{}, wrapNotFound(err, fmt.Sprintf("streak for user %d", userID))
	}
	return state, nil
}

// Update locks the user row for the duration of the read-modify-write so
// concurrent activity for the same user is serialized
func (r *streakRepository) Update(ctx context.Context, userID int64, mutate StreakMutator) (prev, next models.StreakState, err error) {
	err = r.WithTransaction(ctx, func(tx *sql.Tx) error {
		current, scanErr := scanStreak(tx.QueryRowContext(ctx, selectStreakQuery+" FOR UPDATE", userID))
		if scanErr != nil {
			return wrapNotFound(scanErr, fmt.Sprintf("streak for user %d", userID))
		}

		updated, changed := mutate(current)
		prev, next = current, updated
		if !changed {
			return nil
		}

		_, execErr := tx.ExecContext(ctx, `
			UPDATE users SET
				streak_current = $2, streak_best = $3,
				streak_start = $4, streak_last_active = $5,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = $1`,
			userID, updated.CurrentLength, updated.BestLength,
			dateArg(updated.CurrentStart), dateArg(updated.LastActiveDate),
		)
		if execErr != nil {
			return fmt.Errorf("failed to update streak: %w", execErr)
		}
		return nil
	})
	if err != nil {
		r.logger.Debug("Streak update rolled back", zap.Int64("user_id", userID), zap.Error(err))
		return models.StreakState{}, models.StreakState{}, err
	}
	return prev, next, nil
}

func scanStreak(row *sql.Row) (models.StreakState, error) {
	var (
		state      models.StreakState
		start      sql.NullTime
		lastActive sql.NullTime
	)
	if err := row.Scan(&state.CurrentLength, &state.BestLength, &start, &lastActive); err != nil {
		return models.StreakState{}, err
	}
	state.CurrentStart = datePtr(start)
	state.LastActiveDate = datePtr(lastActive)
	return state, nil
}
