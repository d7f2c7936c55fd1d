package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"learnhub/internal/events"
	"learnhub/internal/models"
	"learnhub/internal/repositories"

	"go.uber.org/zap"
)

type awardService struct {
	repo     repositories.AwardRepository
	notifier ActivityNotifier
	now      func() time.Time
	logger   *zap.Logger
}

// NewAwardService creates the award recorder
func NewAwardService(repo repositories.AwardRepository, notifier ActivityNotifier, logger *zap.Logger) AwardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &awardService{repo: repo, notifier: notifier, now: time.Now, logger: logger}
}

// TryAward checks for an existing award first and falls back on the unique
// (user, badge) constraint when a concurrent caller wins the insert.
func (s *awardService) TryAward(ctx context.Context, userID int64, badge *models.Badge, evidence models.AwardEvidence) (bool, error) {
	if badge == nil {
		return false, NewValidationError("badge is required", nil)
	}

	existing, err := s.repo.FindByUserAndBadge(ctx, userID, badge.ID)
	if err != nil {
		return false, fmt.Errorf("failed to check existing award: %w", err)
	}
	if existing != nil {
		return false, nil
	}

	award := &models.UserBadgeAward{
		UserID:          userID,
		BadgeID:         badge.ID,
		EarnedAt:        s.now().UTC(),
		MatchedVideoIDs: evidence.MatchedVideoIDs,
		MatchCount:      evidence.MatchCount,
		Context:         evidence.Context,
	}
	if err := s.repo.Create(ctx, award); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			s.logger.Debug("Award already granted by a concurrent evaluation",
				zap.Int64("user_id", userID),
				zap.Int64("badge_id", badge.ID),
			)
			return false, nil
		}
		return false, fmt.Errorf("failed to create award: %w", err)
	}

	s.logger.Info("Badge awarded",
		zap.Int64("user_id", userID),
		zap.Int64("badge_id", badge.ID),
		zap.String("badge_type", string(badge.Type)),
		zap.Int("match_count", award.MatchCount),
	)
	if s.notifier != nil {
		s.notifier.Notify(ctx, events.NewBadgeAwardedEvent(badge, award))
	}
	return true, nil
}

func (s *awardService) ListAwards(ctx context.Context, userID int64) ([]*models.UserBadgeAward, error) {
	awards, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, translateRepoError(err, "awards", userID)
	}
	return awards, nil
}
