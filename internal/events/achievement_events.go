package events

import (
	"time"

	"learnhub/internal/models"
)

const (
	EventBadgeAwarded    = "achievement.badge_awarded"
	EventStreakMilestone = "achievement.streak_milestone"

	// AchievementPattern matches every achievement event.
	AchievementPattern = "achievement.*"
)

// BadgeAwardedEvent is emitted once per newly created award
type BadgeAwardedEvent struct {
	BaseEvent
	AwardID    int64            `json:"award_id"`
	BadgeID    int64            `json:"badge_id"`
	BadgeName  string           `json:"badge_name"`
	BadgeIcon  string           `json:"badge_icon"`
	BadgeTier  int              `json:"badge_tier"`
	BadgeType  models.BadgeType `json:"badge_type"`
	MatchCount int              `json:"match_count"`
	EarnedAt   time.Time        `json:"earned_at"`
}

// NewBadgeAwardedEvent creates a badge awarded event
func NewBadgeAwardedEvent(badge *models.Badge, award *models.UserBadgeAward) *BadgeAwardedEvent {
	userID := award.UserID
	return &BadgeAwardedEvent{
		BaseEvent:  NewBaseEvent(EventBadgeAwarded, &userID),
		AwardID:    award.ID,
		BadgeID:    badge.ID,
		BadgeName:  badge.Name,
		BadgeIcon:  badge.Icon,
		BadgeTier:  badge.Tier,
		BadgeType:  badge.Type,
		MatchCount: award.MatchCount,
		EarnedAt:   award.EarnedAt,
	}
}

// StreakMilestoneEvent is emitted when a growing streak lands on a milestone
type StreakMilestoneEvent struct {
	BaseEvent
	Milestone int       `json:"milestone"`
	Current   int       `json:"current"`
	Best      int       `json:"best"`
	ReachedOn time.Time `json:"reached_on"`
}

// NewStreakMilestoneEvent creates a streak milestone event
func NewStreakMilestoneEvent(userID int64, milestone int, state models.StreakState) *StreakMilestoneEvent {
	e := &StreakMilestoneEvent{
		BaseEvent: NewBaseEvent(EventStreakMilestone, &userID),
		Milestone: milestone,
		Current:   state.CurrentLength,
		Best:      state.BestLength,
	}
	if state.LastActiveDate != nil {
		e.ReachedOn = *state.LastActiveDate
	}
	return e
}
