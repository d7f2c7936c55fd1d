package models

import "time"

// StreakState is the per-user daily streak snapshot stored on the user row.
// Dates are UTC calendar days at midnight.
type StreakState struct {
	CurrentLength  int        `json:"current_length" db:"streak_current"`
	BestLength     int        `json:"best_length" db:"streak_best"`
	CurrentStart   *time.Time `json:"current_start,omitempty" db:"streak_start"`
	LastActiveDate *time.Time `json:"last_active_date,omitempty" db:"streak_last_active"`
}

// StreakOutcome describes what a single activity did to a streak.
type StreakOutcome string

const (
	StreakStarted    StreakOutcome = "started"
	StreakExtended   StreakOutcome = "extended"
	StreakReset      StreakOutcome = "reset"
	StreakUnchanged  StreakOutcome = "unchanged"
	StreakOutOfOrder StreakOutcome = "out_of_order"
)

// StreakUpdate is the result of recording one activity.
type StreakUpdate struct {
	UserID    int64         `json:"user_id"`
	Previous  StreakState   `json:"previous"`
	State     StreakState   `json:"state"`
	Outcome   StreakOutcome `json:"outcome"`
	Milestone int           `json:"milestone,omitempty"`
}
