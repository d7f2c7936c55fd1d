package services

import (
	"context"
	"errors"
	"time"

	"learnhub/internal/achievement"
	"learnhub/internal/events"
	"learnhub/internal/models"
	"learnhub/internal/repositories"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

type streakService struct {
	repo       repositories.StreakRepository
	notifier   ActivityNotifier
	milestones achievement.MilestoneSet
	retries    int
	now        func() time.Time
	logger     *zap.Logger
}

// StreakServiceOption customizes a streak service
type StreakServiceOption func(*streakService)

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) StreakServiceOption {
	return func(s *streakService) { s.now = now }
}

// WithMilestones overrides the default milestone lengths
func WithMilestones(lengths []int) StreakServiceOption {
	return func(s *streakService) { s.milestones = achievement.NewMilestoneSet(lengths) }
}

// WithUpdateRetries sets how often a conflicting streak update is retried
func WithUpdateRetries(n int) StreakServiceOption {
	return func(s *streakService) { s.retries = n }
}

// NewStreakService creates the streak accumulator
func NewStreakService(repo repositories.StreakRepository, notifier ActivityNotifier, logger *zap.Logger, opts ...StreakServiceOption) StreakService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &streakService{
		repo:       repo,
		notifier:   notifier,
		milestones: achievement.NewMilestoneSet(achievement.DefaultMilestones),
		retries:    3,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger.Debug("Streak service configured",
		zap.Ints("milestones", s.milestones.Values()),
		zap.Int("update_retries", s.retries),
	)
	return s
}

// RecordActivity counts the calendar day of at toward the user's streak. A
// zero at means now. Serialization failures from concurrent updates of the
// same user are retried; every other error is returned as is.
func (s *streakService) RecordActivity(ctx context.Context, userID int64, at time.Time) (*models.StreakUpdate, error) {
	if at.IsZero() {
		at = s.now()
	}

	var (
		outcome    models.StreakOutcome
		prev, next models.StreakState
	)
	mutate := func(current models.StreakState) (models.StreakState, bool) {
		var updated models.StreakState
		updated, outcome = achievement.AdvanceStreak(current, at)
		changed := outcome != models.StreakUnchanged && outcome != models.StreakOutOfOrder
		return updated, changed
	}

	operation := func() error {
		var err error
		prev, next, err = s.repo.Update(ctx, userID, mutate)
		if err == nil {
			return nil
		}
		if repositories.IsRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxElapsedTime = 2 * time.Second
	retries := s.retries
	if retries < 0 {
		retries = 0
	}
	err := backoff.RetryNotify(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx),
		func(err error, d time.Duration) {
			s.logger.Warn("Streak update conflicted, retrying",
				zap.Int64("user_id", userID),
				zap.Duration("backoff", d),
				zap.Error(err),
			)
		},
	)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, EntityNotFoundError("user", userID)
		}
		return nil, NewServiceUnavailableError("failed to record streak activity", err)
	}

	update := &models.StreakUpdate{
		UserID:    userID,
		Previous:  prev,
		State:     next,
		Outcome:   outcome,
		Milestone: s.milestones.Crossed(prev, next),
	}

	if outcome == models.StreakOutOfOrder {
		s.logger.Debug("Ignoring out-of-order activity",
			zap.Int64("user_id", userID),
			zap.Time("activity_at", at),
		)
	}
	if update.Milestone > 0 && s.notifier != nil {
		s.notifier.Notify(ctx, events.NewStreakMilestoneEvent(userID, update.Milestone, next))
	}

	s.logger.Debug("Streak activity recorded",
		zap.Int64("user_id", userID),
		zap.String("outcome", string(outcome)),
		zap.Int("current", next.CurrentLength),
		zap.Int("best", next.BestLength),
	)
	return update, nil
}

func (s *streakService) GetStreak(ctx context.Context, userID int64) (*models.StreakState, error) {
	state, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, translateRepoError(err, "user", userID)
	}
	return &state, nil
}
