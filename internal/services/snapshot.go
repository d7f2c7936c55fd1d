package services

import (
	"context"
	"fmt"
	"sync"

	"learnhub/internal/achievement"
	"learnhub/internal/models"
	"learnhub/internal/repositories"

	"golang.org/x/sync/errgroup"
)

// snapshotBuilder loads only the activity views the candidate badges need,
// querying the read models concurrently
type snapshotBuilder struct {
	activity repositories.ActivityRepository
	streaks  repositories.StreakRepository
}

func (b *snapshotBuilder) Build(ctx context.Context, userID int64, badges []*models.Badge, streak *models.StreakState) (*achievement.Snapshot, error) {
	var need achievement.View
	for _, badge := range badges {
		need |= achievement.ViewsFor(badge.Type)
	}

	snap := &achievement.Snapshot{Loaded: need}
	g, gctx := errgroup.WithContext(ctx)

	if need.Has(achievement.ViewCompletedVideos) {
		g.Go(func() error {
			_, videos, err := b.activity.FindCompletedVideos(gctx, userID, 0, models.ContextFilter{})
			if err != nil {
				return fmt.Errorf("completed videos: %w", err)
			}
			snap.CompletedVideos = videos
			return nil
		})
	}
	if need.Has(achievement.ViewCompletedSubjects) {
		g.Go(func() error {
			subjects, err := b.activity.FindCompletedSubjects(gctx, userID)
			if err != nil {
				return fmt.Errorf("completed subjects: %w", err)
			}
			snap.CompletedSubjects = subjects
			return nil
		})
	}
	if need.Has(achievement.ViewPerfectQuizzes) {
		g.Go(func() error {
			perfect, err := b.activity.FindPerfectQuizVideos(gctx, userID)
			if err != nil {
				return fmt.Errorf("perfect quizzes: %w", err)
			}
			snap.PerfectQuizVideos = perfect
			return nil
		})
	}
	if need.Has(achievement.ViewStreak) {
		if streak != nil {
			snap.Streak = *streak
		} else {
			g.Go(func() error {
				state, err := b.streaks.Get(gctx, userID)
				if err != nil {
					return fmt.Errorf("streak: %w", err)
				}
				snap.Streak = state
				return nil
			})
		}
	}
	if need.Has(achievement.ViewActiveVideoTotals) {
		snap.ActiveVideoTotals = make(map[string]int)
		var mu sync.Mutex
		seen := make(map[string]struct{})
		for _, badge := range badges {
			if badge.Type != models.BadgeTypePerfectionist || badge.Rule.MinPercentage == 0 {
				continue
			}
			key := achievement.ContextKey(badge.Context)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			filter := badge.Context.Filter()
			g.Go(func() error {
				total, err := b.activity.CountActiveVideos(gctx, filter)
				if err != nil {
					return fmt.Errorf("active videos for %s: %w", key, err)
				}
				mu.Lock()
				snap.ActiveVideoTotals[key] = total
				mu.Unlock()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}
