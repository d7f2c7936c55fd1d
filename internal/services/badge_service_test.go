package services

import (
	"context"
	"testing"
	"time"

	"learnhub/internal/cache"
	"learnhub/internal/config"
	"learnhub/internal/events"
	"learnhub/internal/models"
	"learnhub/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testUser int64 = 1

type orchestratorFixture struct {
	streaks  *fakeStreaks
	badges   *fakeBadges
	awards   *fakeAwards
	activity *fakeActivity
	notifier *recordingNotifier
	service  BadgeService
}

func newOrchestratorFixture(t *testing.T, badges []*models.Badge, videos ...models.VideoContext) *orchestratorFixture {
	t.Helper()
	f := &orchestratorFixture{
		streaks:  newFakeStreaks(testUser),
		badges:   &fakeBadges{badges: badges},
		awards:   newFakeAwards(),
		activity: newFakeActivity(videos...),
		notifier: &recordingNotifier{},
	}
	repos := &repositories.Collection{
		Streak:   f.streaks,
		Badge:    f.badges,
		Award:    f.awards,
		Activity: f.activity,
	}
	memCache := cache.NewMemoryCache(&config.CacheConfig{TTL: time.Minute}, zap.NewNop())
	t.Cleanup(func() { memCache.Close() })

	clock := fixedClock(time.Date(2024, 9, 2, 10, 0, 0, 0, time.UTC))
	streakSvc := NewStreakService(f.streaks, f.notifier, zap.NewNop(), WithClock(clock))
	awardSvc := NewAwardService(f.awards, f.notifier, zap.NewNop())

	svc, err := NewBadgeService(BadgeServiceDeps{
		Streaks:      streakSvc,
		Awards:       awardSvc,
		Repositories: repos,
		Cache:        memCache,
		CacheTTL:     time.Minute,
		Logger:       zap.NewNop(),
	})
	require.NoError(t, err)
	f.service = svc
	return f
}

func badge(id int64, typ models.BadgeType, rule models.BadgeRule, ctx models.BadgeContext) *models.Badge {
	return &models.Badge{
		ID: id, Name: string(typ), Type: typ, Rule: rule, Context: ctx,
		Status: models.BadgeStatusActive,
	}
}

func TestOnVideoCompletedAwardsTermExplorerOnce(t *testing.T) {
	v1 := models.VideoContext{VideoID: 101, GradeID: 1, SubjectID: 5, TermID: 1}
	v2 := models.VideoContext{VideoID: 102, GradeID: 1, SubjectID: 5, TermID: 1}
	f := newOrchestratorFixture(t, []*models.Badge{
		badge(10, models.BadgeTypeTermExplorer, models.BadgeRule{MinVideos: 1}, models.BadgeContext{SubjectID: int64p(5)}),
		badge(11, models.BadgeTypeMasterScholar, models.BadgeRule{MinSubjects: 1}, models.BadgeContext{}),
	}, v1, v2)
	ctx := context.Background()

	f.activity.complete(testUser, v1.VideoID, time.Now())
	require.NoError(t, f.service.OnVideoCompleted(ctx, testUser, v1))

	awards, err := f.awards.ListByUser(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, awards, 1, "subject is only half complete so master scholar must not be granted")
	assert.Equal(t, int64(10), awards[0].BadgeID)
	assert.Equal(t, 1, awards[0].MatchCount)
	assert.Equal(t, []int64{101}, awards[0].MatchedVideoIDs)
	assert.Equal(t, int64(5), awards[0].Context["subject_id"])

	streak, err := f.service.GetStreak(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 1, streak.CurrentLength)

	// the same completion delivered twice
	require.NoError(t, f.service.OnVideoCompleted(ctx, testUser, v1))
	assert.Equal(t, 1, f.awards.count())
	assert.Len(t, f.notifier.ofType(events.EventBadgeAwarded), 1)
}

func TestOnVideoCompletedSkipsTermBadgesOutsideVideoContext(t *testing.T) {
	v1 := models.VideoContext{VideoID: 101, GradeID: 1, SubjectID: 5, TermID: 1}
	other := models.VideoContext{VideoID: 201, GradeID: 1, SubjectID: 6, TermID: 1}
	f := newOrchestratorFixture(t, []*models.Badge{
		badge(10, models.BadgeTypeTermExplorer, models.BadgeRule{MinVideos: 1}, models.BadgeContext{SubjectID: int64p(6)}),
	}, v1, other)

	// a prior completion in subject 6 exists, but this trigger is for subject 5
	f.activity.complete(testUser, other.VideoID, time.Now())
	f.activity.complete(testUser, v1.VideoID, time.Now())
	require.NoError(t, f.service.OnVideoCompleted(context.Background(), testUser, v1))
	assert.Zero(t, f.awards.count())

	// a full evaluation still catches it
	report, err := f.service.Evaluate(context.Background(), testUser, models.BadgeTypeTermExplorer)
	require.NoError(t, err)
	assert.Equal(t, []int64{10}, report.Awarded)
}

func TestOnVideoCompletedValidatesInput(t *testing.T) {
	f := newOrchestratorFixture(t, nil)
	err := f.service.OnVideoCompleted(context.Background(), testUser, models.VideoContext{})
	assert.True(t, IsValidationError(err))
	assert.Zero(t, f.streaks.updates)
}

func TestOnSubjectCompletedAwardsMasterScholar(t *testing.T) {
	v1 := models.VideoContext{VideoID: 101, GradeID: 1, SubjectID: 5, TermID: 1}
	v2 := models.VideoContext{VideoID: 102, GradeID: 1, SubjectID: 5, TermID: 2}
	f := newOrchestratorFixture(t, []*models.Badge{
		badge(11, models.BadgeTypeMasterScholar, models.BadgeRule{}, models.BadgeContext{GradeID: int64p(1)}),
	}, v1, v2)
	f.activity.complete(testUser, v1.VideoID, time.Now())
	f.activity.complete(testUser, v2.VideoID, time.Now())

	require.NoError(t, f.service.OnSubjectCompleted(context.Background(), testUser))

	awards, _ := f.awards.ListByUser(context.Background(), testUser)
	require.Len(t, awards, 1)
	assert.Equal(t, []int64{5}, awards[0].Context["subject_ids"])
	assert.Empty(t, awards[0].MatchedVideoIDs)
}

func TestOnLoginAwardsStreakMasterFromFreshState(t *testing.T) {
	f := newOrchestratorFixture(t, []*models.Badge{
		badge(20, models.BadgeTypeStreakMaster, models.BadgeRule{MinStreakDays: 3}, models.BadgeContext{}),
	})
	last := day(2024, 9, 1)
	start := day(2024, 8, 31)
	f.streaks.states[testUser] = models.StreakState{CurrentLength: 2, BestLength: 2, CurrentStart: &start, LastActiveDate: &last}

	require.NoError(t, f.service.OnLogin(context.Background(), testUser))

	awards, _ := f.awards.ListByUser(context.Background(), testUser)
	require.Len(t, awards, 1)
	assert.Equal(t, 3, awards[0].MatchCount)
	assert.Equal(t, 3, awards[0].Context["streak_days"])
	assert.Len(t, f.notifier.ofType(events.EventStreakMilestone), 1)
}

func TestOnQuizSubmittedPerfectionistThreshold(t *testing.T) {
	var videos []models.VideoContext
	for i := int64(1); i <= 10; i++ {
		videos = append(videos, models.VideoContext{VideoID: i, GradeID: 2, SubjectID: 9, TermID: 1})
	}
	f := newOrchestratorFixture(t, []*models.Badge{
		badge(30, models.BadgeTypePerfectionist, models.BadgeRule{MinPercentage: 50}, models.BadgeContext{SubjectID: int64p(9)}),
		badge(31, models.BadgeTypePerfectionist, models.BadgeRule{MinPercentage: 50, MinVideos: 7}, models.BadgeContext{SubjectID: int64p(9)}),
		badge(32, models.BadgeTypeQuizPerformance, models.BadgeRule{MinVideos: 2}, models.BadgeContext{}),
	}, videos...)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		f.activity.perfectQuiz(testUser, i, time.Now())
	}
	// a repeated perfect attempt on the same video counts once
	f.activity.perfectQuiz(testUser, 1, time.Now())

	require.NoError(t, f.service.OnQuizSubmitted(ctx, testUser))

	progress, err := f.service.GetBadgeProgress(ctx, testUser)
	require.NoError(t, err)
	byID := make(map[int64]*models.BadgeProgress)
	for _, p := range progress {
		byID[p.Badge.ID] = p
	}

	require.Contains(t, byID, int64(30))
	assert.Equal(t, 5, byID[30].Required)
	assert.True(t, byID[30].Earned)

	require.Contains(t, byID, int64(31))
	assert.Equal(t, 7, byID[31].Required)
	assert.Equal(t, 5, byID[31].Current)
	assert.False(t, byID[31].Earned)

	assert.True(t, byID[32].Earned)
	assert.NotNil(t, byID[32].EarnedAt)
}

func TestEvaluateIsolatesPerBadgeFailures(t *testing.T) {
	v1 := models.VideoContext{VideoID: 101, GradeID: 1, SubjectID: 5, TermID: 1}
	broken := badge(40, models.BadgeTypeTermExplorer, models.BadgeRule{MinVideos: 1}, models.BadgeContext{})
	broken.Name = ""
	f := newOrchestratorFixture(t, []*models.Badge{
		broken,
		badge(41, models.BadgeTypeTermExplorer, models.BadgeRule{MinVideos: 1}, models.BadgeContext{}),
		badge(42, models.BadgeTypeTermExplorer, models.BadgeRule{MinVideos: 1}, models.BadgeContext{GradeID: int64p(1)}),
	}, v1)
	f.activity.complete(testUser, v1.VideoID, time.Now())
	f.awards.failOn[41] = errStoreDown

	report, err := f.service.Evaluate(context.Background(), testUser, models.BadgeTypeTermExplorer)
	require.NoError(t, err)

	assert.Equal(t, []int64{41, 42}, report.Evaluated)
	assert.Equal(t, []int64{42}, report.Awarded)
	assert.ElementsMatch(t, []int64{40, 41}, report.Skipped)
	assert.Len(t, report.Errors, 2)
	assert.ErrorIs(t, report.Err, errStoreDown)
}

func TestEvaluateIgnoresRepeatedTypes(t *testing.T) {
	v1 := models.VideoContext{VideoID: 101, GradeID: 1, SubjectID: 5, TermID: 1}
	f := newOrchestratorFixture(t, []*models.Badge{
		badge(50, models.BadgeTypeTermExplorer, models.BadgeRule{MinVideos: 1}, models.BadgeContext{}),
	}, v1)
	f.activity.complete(testUser, v1.VideoID, time.Now())

	report, err := f.service.Evaluate(context.Background(), testUser,
		models.BadgeTypeTermExplorer, models.BadgeTypeTermExplorer)
	require.NoError(t, err)

	assert.Equal(t, []int64{50}, report.Evaluated)
	assert.Equal(t, []int64{50}, report.Awarded)
	assert.Empty(t, report.Skipped)
	assert.Equal(t, 1, f.badges.calls)
}

func TestEvaluateSystemicFailure(t *testing.T) {
	f := newOrchestratorFixture(t, nil)
	f.badges.err = errStoreDown

	_, err := f.service.Evaluate(context.Background(), testUser)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, "SERVICE_UNAVAILABLE"))
	assert.ErrorIs(t, err, errStoreDown)
}

func TestEvaluateRejectsUnknownType(t *testing.T) {
	f := newOrchestratorFixture(t, nil)
	_, err := f.service.Evaluate(context.Background(), testUser, models.BadgeType("leaderboard"))
	assert.True(t, IsValidationError(err))
}

func TestBadgeDefinitionsAreCached(t *testing.T) {
	f := newOrchestratorFixture(t, []*models.Badge{
		badge(20, models.BadgeTypeStreakMaster, models.BadgeRule{MinStreakDays: 30}, models.BadgeContext{}),
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.service.Evaluate(ctx, testUser, models.BadgeTypeStreakMaster)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, f.badges.calls)

	require.NoError(t, f.service.InvalidateBadges(ctx))
	_, err := f.service.Evaluate(ctx, testUser, models.BadgeTypeStreakMaster)
	require.NoError(t, err)
	assert.Equal(t, 2, f.badges.calls)
}

func TestAsyncTriggersRunOnTaskRunner(t *testing.T) {
	v1 := models.VideoContext{VideoID: 101, GradeID: 1, SubjectID: 5, TermID: 1}
	f := newOrchestratorFixture(t, nil, v1)
	f.badges.badges = []*models.Badge{
		badge(10, models.BadgeTypeTermExplorer, models.BadgeRule{MinVideos: 1}, models.BadgeContext{}),
	}
	runner := NewTaskRunner(2, time.Second, zap.NewNop())

	repos := &repositories.Collection{Streak: f.streaks, Badge: f.badges, Award: f.awards, Activity: f.activity}
	svc, err := NewBadgeService(BadgeServiceDeps{
		Streaks:      NewStreakService(f.streaks, nil, zap.NewNop()),
		Awards:       NewAwardService(f.awards, nil, zap.NewNop()),
		Repositories: repos,
		Runner:       runner,
	})
	require.NoError(t, err)

	f.activity.complete(testUser, v1.VideoID, time.Now())
	require.NoError(t, svc.OnVideoCompleted(context.Background(), testUser, v1))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, runner.Shutdown(ctx))
	assert.Equal(t, 1, f.awards.count())
}

func TestGetBadgeProgressUnknownUser(t *testing.T) {
	f := newOrchestratorFixture(t, nil)
	_, err := f.service.GetBadgeProgress(context.Background(), 404)
	assert.True(t, IsNotFoundError(err))
}
