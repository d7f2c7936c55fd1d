package achievement

import (
	"errors"
	"fmt"

	"learnhub/internal/models"
)

var (
	// ErrUnknownBadgeType is returned for a badge whose type has no evaluator.
	ErrUnknownBadgeType = errors.New("unknown badge type")
	// ErrMissingActivity is returned when the snapshot lacks a view the
	// evaluator needs.
	ErrMissingActivity = errors.New("activity view not loaded")
)

// View names one aggregate of a user's activity.
type View uint8

const (
	ViewCompletedVideos View = 1 << iota
	ViewCompletedSubjects
	ViewPerfectQuizzes
	ViewStreak
	ViewActiveVideoTotals
)

// Has reports whether every view in want is present in v.
func (v View) Has(want View) bool {
	return v&want == want
}

// ViewsFor returns the snapshot views a badge type needs.
func ViewsFor(t models.BadgeType) View {
	switch t {
	case models.BadgeTypeTermExplorer:
		return ViewCompletedVideos
	case models.BadgeTypeMasterScholar:
		return ViewCompletedSubjects
	case models.BadgeTypeStreakMaster:
		return ViewStreak
	case models.BadgeTypeQuizPerformance:
		return ViewPerfectQuizzes
	case models.BadgeTypePerfectionist:
		return ViewPerfectQuizzes | ViewActiveVideoTotals
	}
	return 0
}

// Snapshot is the activity a user has accumulated, computed once per trigger.
// Loaded records which views were filled in.
type Snapshot struct {
	Loaded            View
	CompletedVideos   []models.CompletedVideo
	CompletedSubjects []models.CompletedSubject
	PerfectQuizVideos []models.PerfectQuizVideo
	Streak            models.StreakState
	// ActiveVideoTotals is keyed by ContextKey of the badge context.
	ActiveVideoTotals map[string]int
}

func (s *Snapshot) require(v View) error {
	if s == nil || !s.Loaded.Has(v) {
		return ErrMissingActivity
	}
	return nil
}

// Progress is the outcome of evaluating one badge against a snapshot.
type Progress struct {
	Current    int     `json:"current"`
	Required   int     `json:"required"`
	Met        bool    `json:"met"`
	MatchedIDs []int64 `json:"-"`
}

func newProgress(current, required int, matched []int64) Progress {
	return Progress{
		Current:    current,
		Required:   required,
		Met:        required > 0 && current >= required,
		MatchedIDs: matched,
	}
}

// Evaluate dispatches to the evaluator for the badge's type.
func Evaluate(b *models.Badge, s *Snapshot) (Progress, error) {
	if b == nil {
		return Progress{}, errors.New("nil badge")
	}
	switch b.Type {
	case models.BadgeTypeTermExplorer:
		return EvaluateTermExplorer(b, s)
	case models.BadgeTypeMasterScholar:
		return EvaluateMasterScholar(b, s)
	case models.BadgeTypeStreakMaster:
		return EvaluateStreakMaster(b, s)
	case models.BadgeTypeQuizPerformance:
		return EvaluateQuizPerformance(b, s)
	case models.BadgeTypePerfectionist:
		return EvaluatePerfectionist(b, s)
	}
	return Progress{}, fmt.Errorf("%w: %q", ErrUnknownBadgeType, b.Type)
}

// EvaluateTermExplorer counts completed videos inside the badge context.
func EvaluateTermExplorer(b *models.Badge, s *Snapshot) (Progress, error) {
	if err := s.require(ViewCompletedVideos); err != nil {
		return Progress{}, err
	}
	seen := make(map[int64]struct{}, len(s.CompletedVideos))
	var matched []int64
	for _, v := range s.CompletedVideos {
		if !MatchesContext(b.Context, v.Activity()) {
			continue
		}
		if _, dup := seen[v.VideoID]; dup {
			continue
		}
		seen[v.VideoID] = struct{}{}
		matched = append(matched, v.VideoID)
	}
	return newProgress(len(matched), b.Rule.MinVideos, matched), nil
}

// EvaluateMasterScholar counts fully completed subjects inside the badge
// context. A missing threshold defaults to one subject.
func EvaluateMasterScholar(b *models.Badge, s *Snapshot) (Progress, error) {
	if err := s.require(ViewCompletedSubjects); err != nil {
		return Progress{}, err
	}
	required := b.Rule.MinSubjects
	if required <= 0 {
		required = 1
	}
	seen := make(map[int64]struct{}, len(s.CompletedSubjects))
	var matched []int64
	for _, subj := range s.CompletedSubjects {
		if !subj.IsComplete() || !matchesSubject(b.Context, subj) {
			continue
		}
		if _, dup := seen[subj.SubjectID]; dup {
			continue
		}
		seen[subj.SubjectID] = struct{}{}
		matched = append(matched, subj.SubjectID)
	}
	return newProgress(len(matched), required, matched), nil
}

// EvaluateStreakMaster compares the current streak with the threshold.
func EvaluateStreakMaster(b *models.Badge, s *Snapshot) (Progress, error) {
	if err := s.require(ViewStreak); err != nil {
		return Progress{}, err
	}
	return newProgress(s.Streak.CurrentLength, b.Rule.MinStreakDays, nil), nil
}

// EvaluateQuizPerformance counts distinct videos with a perfect quiz score.
func EvaluateQuizPerformance(b *models.Badge, s *Snapshot) (Progress, error) {
	if err := s.require(ViewPerfectQuizzes); err != nil {
		return Progress{}, err
	}
	matched := perfectVideosInContext(b.Context, s.PerfectQuizVideos)
	return newProgress(len(matched), b.Rule.MinVideos, matched), nil
}

// EvaluatePerfectionist is quiz performance with a threshold that is the
// larger of the explicit minimum and a share of all active videos in the
// badge context.
func EvaluatePerfectionist(b *models.Badge, s *Snapshot) (Progress, error) {
	if err := s.require(ViewPerfectQuizzes); err != nil {
		return Progress{}, err
	}
	required := b.Rule.MinVideos
	if b.Rule.MinPercentage > 0 {
		if err := s.require(ViewActiveVideoTotals); err != nil {
			return Progress{}, err
		}
		total, ok := s.ActiveVideoTotals[ContextKey(b.Context)]
		if !ok {
			return Progress{}, fmt.Errorf("%w: no active video total for %s", ErrMissingActivity, ContextKey(b.Context))
		}
		required = max(required, PercentageThreshold(b.Rule.MinPercentage, total))
	}
	matched := perfectVideosInContext(b.Context, s.PerfectQuizVideos)
	return newProgress(len(matched), required, matched), nil
}

// PercentageThreshold returns ceil(percentage/100 * total).
func PercentageThreshold(percentage, total int) int {
	if percentage <= 0 || total <= 0 {
		return 0
	}
	return (percentage*total + 99) / 100
}

func perfectVideosInContext(c models.BadgeContext, items []models.PerfectQuizVideo) []int64 {
	seen := make(map[int64]struct{}, len(items))
	var matched []int64
	for _, q := range items {
		if !MatchesContext(c, q.Activity()) {
			continue
		}
		if _, dup := seen[q.VideoID]; dup {
			continue
		}
		seen[q.VideoID] = struct{}{}
		matched = append(matched, q.VideoID)
	}
	return matched
}

// Evidence builds the award payload for a met badge. At most Required matched
// ids are kept.
func Evidence(b *models.Badge, p Progress) models.AwardEvidence {
	ctx := b.Context.Snapshot()
	ctx["badge_type"] = string(b.Type)
	ctx["required"] = p.Required

	ids := p.MatchedIDs
	if p.Required > 0 && len(ids) > p.Required {
		ids = ids[:p.Required]
	}
	ids = append([]int64(nil), ids...)

	ev := models.AwardEvidence{MatchCount: p.Current, Context: ctx}
	switch b.Type {
	case models.BadgeTypeMasterScholar:
		ctx["subject_ids"] = ids
	case models.BadgeTypeStreakMaster:
		ctx["streak_days"] = p.Current
	default:
		ev.MatchedVideoIDs = ids
	}
	return ev
}
