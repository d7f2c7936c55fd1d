package models

import "time"

// UserBadgeAward records that a user earned a badge. The (UserID, BadgeID)
// pair is unique.
type UserBadgeAward struct {
	ID              int64                  `json:"id" db:"id"`
	UserID          int64                  `json:"user_id" db:"user_id"`
	BadgeID         int64                  `json:"badge_id" db:"badge_id"`
	EarnedAt        time.Time              `json:"earned_at" db:"earned_at"`
	MatchedVideoIDs []int64                `json:"matched_video_ids" db:"matched_video_ids"`
	MatchCount      int                    `json:"match_count" db:"match_count"`
	Context         map[string]interface{} `json:"context,omitempty" db:"context"`
}

// AwardEvidence is what the evaluator found when a badge was met.
type AwardEvidence struct {
	MatchedVideoIDs []int64
	MatchCount      int
	Context         map[string]interface{}
}
