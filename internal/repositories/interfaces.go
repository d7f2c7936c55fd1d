package repositories

import (
	"context"

	"learnhub/internal/models"
)

// ===============================
// ACHIEVEMENT REPOSITORY INTERFACES
// ===============================

// StreakMutator computes the next streak state from the stored one. Returning
// false for changed skips the write.
type StreakMutator func(current models.StreakState) (next models.StreakState, changed bool)

// StreakRepository stores the streak snapshot embedded in the user record
type StreakRepository interface {
	Get(ctx context.Context, userID int64) (models.StreakState, error)
	// Update applies mutate atomically with respect to other updates for the
	// same user and returns the state before and after.
	Update(ctx context.Context, userID int64, mutate StreakMutator) (prev, next models.StreakState, err error)
}

// BadgeRepository reads badge definitions
type BadgeRepository interface {
	ListActiveByTypes(ctx context.Context, types []models.BadgeType) ([]*models.Badge, error)
}

// AwardRepository persists badge grants
type AwardRepository interface {
	// FindByUserAndBadge returns nil, nil when no award exists.
	FindByUserAndBadge(ctx context.Context, userID, badgeID int64) (*models.UserBadgeAward, error)
	// Create inserts the award and returns ErrDuplicate if the pair exists.
	Create(ctx context.Context, award *models.UserBadgeAward) error
	ListByUser(ctx context.Context, userID int64) ([]*models.UserBadgeAward, error)
}

// ActivityRepository reads the activity read models
type ActivityRepository interface {
	// FindCompletedVideos returns the total count and up to limit items;
	// limit <= 0 returns every item.
	FindCompletedVideos(ctx context.Context, userID int64, limit int, filter models.ContextFilter) (int, []models.CompletedVideo, error)
	CountActiveVideos(ctx context.Context, filter models.ContextFilter) (int, error)
	FindCompletedSubjects(ctx context.Context, userID int64) ([]models.CompletedSubject, error)
	FindPerfectQuizVideos(ctx context.Context, userID int64) ([]models.PerfectQuizVideo, error)
}
