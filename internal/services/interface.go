// file: internal/services/interface.go
package services

import (
	"context"
	"time"

	"learnhub/internal/events"
	"learnhub/internal/models"
)

// ===============================
// ACHIEVEMENT SERVICE INTERFACES
// ===============================

// StreakService turns raw activity into the per-user daily streak
type StreakService interface {
	RecordActivity(ctx context.Context, userID int64, at time.Time) (*models.StreakUpdate, error)
	GetStreak(ctx context.Context, userID int64) (*models.StreakState, error)
}

// AwardService grants a badge to a user at most once
type AwardService interface {
	// TryAward reports granted=false without error when the award already
	// exists, including when a concurrent caller created it first.
	TryAward(ctx context.Context, userID int64, badge *models.Badge, evidence models.AwardEvidence) (bool, error)
	ListAwards(ctx context.Context, userID int64) ([]*models.UserBadgeAward, error)
}

// BadgeService is the entry point for every achievement trigger
type BadgeService interface {
	OnLogin(ctx context.Context, userID int64) error
	OnVideoCompleted(ctx context.Context, userID int64, video models.VideoContext) error
	OnQuizSubmitted(ctx context.Context, userID int64) error
	OnSubjectCompleted(ctx context.Context, userID int64) error

	// Evaluate runs the given badge types for a user and awards those newly
	// met. It is safe to replay.
	Evaluate(ctx context.Context, userID int64, types ...models.BadgeType) (*EvaluationReport, error)
	GetBadgeProgress(ctx context.Context, userID int64) ([]*models.BadgeProgress, error)
	GetStreak(ctx context.Context, userID int64) (*models.StreakState, error)
	// InvalidateBadges drops cached definitions of the given types, or of
	// every type when none are given.
	InvalidateBadges(ctx context.Context, types ...models.BadgeType) error
}

// ActivityNotifier informs downstream collaborators about awards and
// milestones. It never reports failure to the caller.
type ActivityNotifier interface {
	Notify(ctx context.Context, event events.Event)
}

// TaskRunner executes evaluation work off the request path
type TaskRunner interface {
	Go(name string, fn func(ctx context.Context) error)
	Shutdown(ctx context.Context) error
}

// EvaluationReport summarizes one Evaluate call
type EvaluationReport struct {
	UserID    int64    `json:"user_id"`
	Evaluated []int64  `json:"evaluated"`
	Awarded   []int64  `json:"awarded"`
	Skipped   []int64  `json:"skipped,omitempty"`
	Errors    []string `json:"errors,omitempty"`
	// Err aggregates every per-badge failure. It is never returned from
	// Evaluate.
	Err error `json:"-"`
}
