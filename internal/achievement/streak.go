// Package achievement holds the side-effect free rules of the achievement
// engine: daily streak accounting and badge criteria evaluation.
package achievement

import (
	"sort"
	"time"

	"learnhub/internal/models"
)

// DefaultMilestones are the streak lengths that trigger a notification.
var DefaultMilestones = []int{3, 5, 7, 10, 14, 21, 30, 50, 100}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the number of whole calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// AdvanceStreak applies one activity on the calendar day containing at.
// It never mutates prev.
func AdvanceStreak(prev models.StreakState, at time.Time) (models.StreakState, models.StreakOutcome) {
	today := Day(at)
	next := prev

	if prev.LastActiveDate == nil {
		next.CurrentLength = 1
		next.CurrentStart = &today
		next.BestLength = max(prev.BestLength, 1)
		next.LastActiveDate = &today
		return next, models.StreakStarted
	}

	gap := daysBetween(*prev.LastActiveDate, today)
	switch {
	case gap < 0:
		// events arriving out of order never regress the stored state
		return prev, models.StreakOutOfOrder
	case gap == 0:
		return prev, models.StreakUnchanged
	case gap == 1:
		next.CurrentLength = prev.CurrentLength + 1
		next.BestLength = max(prev.BestLength, next.CurrentLength)
		if prev.CurrentStart == nil {
			start := Day(*prev.LastActiveDate)
			next.CurrentStart = &start
		}
		next.LastActiveDate = &today
		return next, models.StreakExtended
	default:
		next.CurrentLength = 1
		next.CurrentStart = &today
		next.BestLength = max(prev.BestLength, 1)
		next.LastActiveDate = &today
		return next, models.StreakReset
	}
}

// MilestoneSet answers whether a streak length is notable.
type MilestoneSet struct {
	values map[int]struct{}
	sorted []int
}

// NewMilestoneSet builds a set from the given lengths, ignoring values < 1.
func NewMilestoneSet(lengths []int) MilestoneSet {
	set := MilestoneSet{values: make(map[int]struct{}, len(lengths))}
	for _, l := range lengths {
		if l < 1 {
			continue
		}
		if _, dup := set.values[l]; dup {
			continue
		}
		set.values[l] = struct{}{}
		set.sorted = append(set.sorted, l)
	}
	sort.Ints(set.sorted)
	return set
}

// Contains reports whether length is a milestone.
func (m MilestoneSet) Contains(length int) bool {
	_, ok := m.values[length]
	return ok
}

// Values returns the milestones in ascending order.
func (m MilestoneSet) Values() []int {
	out := make([]int, len(m.sorted))
	copy(out, m.sorted)
	return out
}

// Crossed returns the milestone reached by moving from prev to next, or 0.
// Only growth counts; a reset to 1 never emits.
func (m MilestoneSet) Crossed(prev, next models.StreakState) int {
	if next.CurrentLength <= prev.CurrentLength {
		return 0
	}
	if m.Contains(next.CurrentLength) {
		return next.CurrentLength
	}
	return 0
}
