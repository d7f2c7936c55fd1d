package services

import (
	"context"
	"fmt"
	"time"

	"learnhub/internal/achievement"
	"learnhub/internal/cache"
	"learnhub/internal/models"
	"learnhub/internal/repositories"
	"learnhub/internal/validation"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// BadgeServiceDeps wires the badge orchestrator
type BadgeServiceDeps struct {
	Streaks      StreakService
	Awards       AwardService
	Repositories *repositories.Collection
	Cache        cache.Cache
	CacheTTL     time.Duration
	// Runner executes evaluations in the background. Nil evaluates inline
	// and returns systemic errors to the caller.
	Runner TaskRunner
	Logger *zap.Logger
}

type badgeService struct {
	streaks   StreakService
	awards    AwardService
	catalog   *badgeCatalog
	snapshots *snapshotBuilder
	runner    TaskRunner
	logger    *zap.Logger
}

// evaluation narrows a single Evaluate pass
type evaluation struct {
	types  []models.BadgeType
	streak *models.StreakState
	accept func(*models.Badge) bool
}

// NewBadgeService creates the badge orchestrator
func NewBadgeService(deps BadgeServiceDeps) (BadgeService, error) {
	if deps.Streaks == nil || deps.Awards == nil || deps.Repositories == nil {
		return nil, fmt.Errorf("streak service, award service and repositories are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	repos := deps.Repositories
	return &badgeService{
		streaks: deps.Streaks,
		awards:  deps.Awards,
		catalog: newBadgeCatalog(repos.Badge, deps.Cache, deps.CacheTTL, logger),
		snapshots: &snapshotBuilder{
			activity: repos.Activity,
			streaks:  repos.Streak,
		},
		runner: deps.Runner,
		logger: logger,
	}, nil
}

// ===============================
// TRIGGERS
// ===============================

func (s *badgeService) OnLogin(ctx context.Context, userID int64) error {
	update, err := s.streaks.RecordActivity(ctx, userID, time.Time{})
	if err != nil {
		return err
	}
	return s.dispatch(ctx, "login", userID, evaluation{
		types:  []models.BadgeType{models.BadgeTypeStreakMaster},
		streak: &update.State,
	})
}

func (s *badgeService) OnVideoCompleted(ctx context.Context, userID int64, video models.VideoContext) error {
	if err := validation.ValidateStruct(&video); err != nil {
		return NewValidationError("invalid video context", err)
	}
	update, err := s.streaks.RecordActivity(ctx, userID, time.Time{})
	if err != nil {
		return err
	}

	activity := video.Activity()
	return s.dispatch(ctx, "video_completed", userID, evaluation{
		types: []models.BadgeType{
			models.BadgeTypeTermExplorer,
			models.BadgeTypeMasterScholar,
			models.BadgeTypeStreakMaster,
		},
		streak: &update.State,
		// only term badges the watched video can count toward
		accept: func(b *models.Badge) bool {
			return b.Type != models.BadgeTypeTermExplorer || achievement.MatchesContext(b.Context, activity)
		},
	})
}

func (s *badgeService) OnQuizSubmitted(ctx context.Context, userID int64) error {
	return s.dispatch(ctx, "quiz_submitted", userID, evaluation{
		types: []models.BadgeType{models.BadgeTypeQuizPerformance, models.BadgeTypePerfectionist},
	})
}

func (s *badgeService) OnSubjectCompleted(ctx context.Context, userID int64) error {
	return s.dispatch(ctx, "subject_completed", userID, evaluation{
		types: []models.BadgeType{models.BadgeTypeMasterScholar},
	})
}

func (s *badgeService) dispatch(ctx context.Context, trigger string, userID int64, ev evaluation) error {
	if s.runner == nil {
		_, err := s.evaluate(ctx, userID, ev)
		return err
	}
	s.runner.Go(fmt.Sprintf("evaluate:%s:%d", trigger, userID), func(ctx context.Context) error {
		_, err := s.evaluate(ctx, userID, ev)
		return err
	})
	return nil
}

// ===============================
// EVALUATION
// ===============================

func (s *badgeService) Evaluate(ctx context.Context, userID int64, types ...models.BadgeType) (*EvaluationReport, error) {
	if len(types) == 0 {
		types = models.AllBadgeTypes
	}
	for _, t := range types {
		if !t.Valid() {
			return nil, NewValidationError(fmt.Sprintf("unknown badge type %q", t), achievement.ErrUnknownBadgeType)
		}
	}
	return s.evaluate(ctx, userID, evaluation{types: types})
}

// evaluate returns an error only for systemic failures. Per-badge failures
// are collected on the report and never stop the remaining badges.
func (s *badgeService) evaluate(ctx context.Context, userID int64, ev evaluation) (*EvaluationReport, error) {
	report := &EvaluationReport{UserID: userID}

	badges, rejected, err := s.catalog.Active(ctx, ev.types)
	if err != nil {
		s.logger.Error("Failed to load badge definitions",
			zap.Int64("user_id", userID),
			zap.String("types", typeList(ev.types)),
			zap.Error(err),
		)
		return nil, NewServiceUnavailableError("failed to load badge definitions", err)
	}
	for _, r := range rejected {
		s.logger.Warn("Skipping invalid badge definition", zap.Int64("badge_id", r.BadgeID), zap.Error(r.Err))
		report.skip(r.BadgeID, r.Err)
	}

	candidates := badges[:0:0]
	for _, b := range badges {
		if ev.accept == nil || ev.accept(b) {
			candidates = append(candidates, b)
		}
	}
	if len(candidates) == 0 {
		return report, nil
	}

	snap, err := s.snapshots.Build(ctx, userID, candidates, ev.streak)
	if err != nil {
		s.logger.Error("Failed to load user activity", zap.Int64("user_id", userID), zap.Error(err))
		return nil, NewServiceUnavailableError("failed to load user activity", err)
	}

	for _, b := range candidates {
		report.Evaluated = append(report.Evaluated, b.ID)

		progress, err := achievement.Evaluate(b, snap)
		if err != nil {
			s.logger.Warn("Badge evaluation failed", zap.Int64("user_id", userID), zap.Int64("badge_id", b.ID), zap.Error(err))
			report.skip(b.ID, err)
			continue
		}
		if !progress.Met {
			continue
		}

		granted, err := s.awards.TryAward(ctx, userID, b, achievement.Evidence(b, progress))
		if err != nil {
			s.logger.Error("Failed to record award", zap.Int64("user_id", userID), zap.Int64("badge_id", b.ID), zap.Error(err))
			report.skip(b.ID, err)
			continue
		}
		if granted {
			report.Awarded = append(report.Awarded, b.ID)
		}
	}

	level := zap.DebugLevel
	if len(report.Awarded) > 0 || report.Err != nil {
		level = zap.InfoLevel
	}
	if ce := s.logger.Check(level, "Badge evaluation completed"); ce != nil {
		ce.Write(
			zap.Int64("user_id", userID),
			zap.String("types", typeList(ev.types)),
			zap.Int("evaluated", len(report.Evaluated)),
			zap.Int("awarded", len(report.Awarded)),
			zap.Int("failed", len(report.Errors)),
		)
	}
	return report, nil
}

func (r *EvaluationReport) skip(badgeID int64, err error) {
	r.Skipped = append(r.Skipped, badgeID)
	wrapped := fmt.Errorf("badge %d: %w", badgeID, err)
	r.Errors = append(r.Errors, wrapped.Error())
	r.Err = multierr.Append(r.Err, wrapped)
}

// ===============================
// READ MODELS
// ===============================

// GetBadgeProgress reports progress toward every active badge without
// awarding anything
func (s *badgeService) GetBadgeProgress(ctx context.Context, userID int64) ([]*models.BadgeProgress, error) {
	if _, err := s.streaks.GetStreak(ctx, userID); err != nil {
		return nil, err
	}

	badges, _, err := s.catalog.Active(ctx, models.AllBadgeTypes)
	if err != nil {
		return nil, NewServiceUnavailableError("failed to load badge definitions", err)
	}
	awards, err := s.awards.ListAwards(ctx, userID)
	if err != nil {
		return nil, err
	}
	earned := make(map[int64]*models.UserBadgeAward, len(awards))
	for _, a := range awards {
		earned[a.BadgeID] = a
	}

	snap, err := s.snapshots.Build(ctx, userID, badges, nil)
	if err != nil {
		return nil, NewServiceUnavailableError("failed to load user activity", err)
	}

	out := make([]*models.BadgeProgress, 0, len(badges))
	for _, b := range badges {
		item := &models.BadgeProgress{Badge: b}
		if p, err := achievement.Evaluate(b, snap); err != nil {
			item.Error = err.Error()
		} else {
			item.Current, item.Required, item.Met = p.Current, p.Required, p.Met
		}
		if a, ok := earned[b.ID]; ok {
			at := a.EarnedAt
			item.Earned, item.EarnedAt = true, &at
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *badgeService) GetStreak(ctx context.Context, userID int64) (*models.StreakState, error) {
	return s.streaks.GetStreak(ctx, userID)
}

// InvalidateBadges drops cached badge definitions after an administrative edit
func (s *badgeService) InvalidateBadges(ctx context.Context, types ...models.BadgeType) error {
	if err := s.catalog.Invalidate(ctx, types...); err != nil {
		return NewServiceUnavailableError("failed to invalidate badge cache", err)
	}
	return nil
}
