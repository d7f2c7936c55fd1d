package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"learnhub/internal/events"
	"learnhub/internal/models"
	"learnhub/internal/repositories"
)

// ===============================
// STREAKS
// ===============================

type fakeStreaks struct {
	mu     sync.Mutex
	states map[int64]models.StreakState
	// failures are returned, in order, before any update succeeds
	failures []error
	updates  int
}

func newFakeStreaks(users ...int64) *fakeStreaks {
	f := &fakeStreaks{states: make(map[int64]models.StreakState)}
	for _, id := range users {
		f.states[id] = models.StreakState{}
	}
	return f
}

func (f *fakeStreaks) Get(ctx context.Context, userID int64) (models.StreakState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.states[userID]
	if !ok {
		return models.StreakState{}, repositories.ErrNotFound
	}
	return s, nil
}

func (f *fakeStreaks) Update(ctx context.Context, userID int64, mutate repositories.StreakMutator) (models.StreakState, models.StreakState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return models.StreakState{}, models.StreakState{}, err
	}
	current, ok := f.states[userID]
	if !ok {
		return models.StreakState{}, models.StreakState{}, repositories.ErrNotFound
	}
	next, changed := mutate(current)
	if changed {
		f.states[userID] = next
	}
	return current, next, nil
}

// ===============================
// BADGES
// ===============================

type fakeBadges struct {
	mu     sync.Mutex
	badges []*models.Badge
	err    error
	calls  int
}

func (f *fakeBadges) ListActiveByTypes(ctx context.Context, types []models.BadgeType) ([]*models.Badge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	want := make(map[models.BadgeType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	var out []*models.Badge
	for _, b := range f.badges {
		if want[b.Type] && b.IsActive() {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ===============================
// AWARDS
// ===============================

type fakeAwards struct {
	mu     sync.Mutex
	awards map[[2]int64]*models.UserBadgeAward
	nextID int64
	// afterFind runs between the existence check and the insert
	afterFind func()
	failOn    map[int64]error
}

func newFakeAwards() *fakeAwards {
	return &fakeAwards{awards: make(map[[2]int64]*models.UserBadgeAward), failOn: make(map[int64]error)}
}

func (f *fakeAwards) FindByUserAndBadge(ctx context.Context, userID, badgeID int64) (*models.UserBadgeAward, error) {
	f.mu.Lock()
	a := f.awards[[2]int64{userID, badgeID}]
	hook := f.afterFind
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return a, nil
}

func (f *fakeAwards) Create(ctx context.Context, award *models.UserBadgeAward) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[award.BadgeID]; err != nil {
		return err
	}
	key := [2]int64{award.UserID, award.BadgeID}
	if _, exists := f.awards[key]; exists {
		return repositories.ErrDuplicate
	}
	f.nextID++
	award.ID = f.nextID
	cp := *award
	f.awards[key] = &cp
	return nil
}

func (f *fakeAwards) ListByUser(ctx context.Context, userID int64) ([]*models.UserBadgeAward, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.UserBadgeAward
	for key, a := range f.awards {
		if key[0] == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeAwards) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.awards)
}

// ===============================
// ACTIVITY
// ===============================

// fakeActivity derives every read model from a video catalog plus raw
// completions and perfect quiz results
type fakeActivity struct {
	mu          sync.Mutex
	catalog     map[int64]models.VideoContext
	completions map[int64]map[int64]time.Time
	perfect     map[int64][]models.PerfectQuizVideo
	err         error
}

func newFakeActivity(videos ...models.VideoContext) *fakeActivity {
	f := &fakeActivity{
		catalog:     make(map[int64]models.VideoContext),
		completions: make(map[int64]map[int64]time.Time),
		perfect:     make(map[int64][]models.PerfectQuizVideo),
	}
	for _, v := range videos {
		f.catalog[v.VideoID] = v
	}
	return f
}

func (f *fakeActivity) complete(userID, videoID int64, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completions[userID] == nil {
		f.completions[userID] = make(map[int64]time.Time)
	}
	f.completions[userID][videoID] = at
}

func (f *fakeActivity) perfectQuiz(userID, videoID int64, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.catalog[videoID]
	f.perfect[userID] = append(f.perfect[userID], models.PerfectQuizVideo{
		VideoID: videoID, GradeID: v.GradeID, SubjectID: v.SubjectID, TermID: v.TermID, CompletedAt: at,
	})
}

func matchesFilter(f models.ContextFilter, v models.VideoContext) bool {
	return (f.GradeID == nil || *f.GradeID == v.GradeID) &&
		(f.SubjectID == nil || *f.SubjectID == v.SubjectID) &&
		(f.TermID == nil || *f.TermID == v.TermID)
}

func (f *fakeActivity) FindCompletedVideos(ctx context.Context, userID int64, limit int, filter models.ContextFilter) (int, []models.CompletedVideo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, nil, f.err
	}
	var items []models.CompletedVideo
	for videoID, at := range f.completions[userID] {
		v := f.catalog[videoID]
		if !matchesFilter(filter, v) {
			continue
		}
		items = append(items, models.CompletedVideo{
			VideoID: videoID, GradeID: v.GradeID, SubjectID: v.SubjectID, TermID: v.TermID, WatchedAt: at,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].VideoID < items[j].VideoID })
	total := len(items)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return total, items, nil
}

func (f *fakeActivity) CountActiveVideos(ctx context.Context, filter models.ContextFilter) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, v := range f.catalog {
		if matchesFilter(filter, v) {
			n++
		}
	}
	return n, nil
}

func (f *fakeActivity) FindCompletedSubjects(ctx context.Context, userID int64) ([]models.CompletedSubject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	type key struct{ grade, subject int64 }
	agg := make(map[key]*models.CompletedSubject)
	for id, v := range f.catalog {
		k := key{v.GradeID, v.SubjectID}
		s := agg[k]
		if s == nil {
			s = &models.CompletedSubject{GradeID: v.GradeID, SubjectID: v.SubjectID}
			agg[k] = s
		}
		s.TotalCount++
		if _, done := f.completions[userID][id]; done {
			s.CompletedCount++
		}
	}
	var out []models.CompletedSubject
	for _, s := range agg {
		if s.CompletedCount > 0 {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubjectID < out[j].SubjectID })
	return out, nil
}

func (f *fakeActivity) FindPerfectQuizVideos(ctx context.Context, userID int64) ([]models.PerfectQuizVideo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.PerfectQuizVideo(nil), f.perfect[userID]...), nil
}

// ===============================
// NOTIFIER
// ===============================

type recordingNotifier struct {
	mu     sync.Mutex
	events []events.Event
}

func (n *recordingNotifier) Notify(ctx context.Context, event events.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) ofType(eventType string) []events.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []events.Event
	for _, e := range n.events {
		if e.GetEventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// ===============================
// HELPERS
// ===============================

var errStoreDown = errors.New("store unavailable")

func int64p(v int64) *int64 { return &v }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
