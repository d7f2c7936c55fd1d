package models

import "time"

// BadgeType is the closed set of badge evaluation kinds.
type BadgeType string

const (
	BadgeTypeTermExplorer    BadgeType = "term_explorer"
	BadgeTypeMasterScholar   BadgeType = "master_scholar"
	BadgeTypeStreakMaster    BadgeType = "streak_master"
	BadgeTypeQuizPerformance BadgeType = "quiz_performance"
	BadgeTypePerfectionist   BadgeType = "perfectionist"
)

// AllBadgeTypes lists every supported badge type in evaluation order.
var AllBadgeTypes = []BadgeType{
	BadgeTypeTermExplorer,
	BadgeTypeMasterScholar,
	BadgeTypeStreakMaster,
	BadgeTypeQuizPerformance,
	BadgeTypePerfectionist,
}

// Valid reports whether t is one of the known badge types.
func (t BadgeType) Valid() bool {
	for _, known := range AllBadgeTypes {
		if t == known {
			return true
		}
	}
	return false
}

const (
	BadgeStatusActive   = "active"
	BadgeStatusInactive = "inactive"
)

// Badge is an achievement definition. Badges are created and edited by
// administrators; the achievement engine only reads them.
type Badge struct {
	ID          int64        `json:"id" db:"id"`
	Name        string       `json:"name" db:"name" validate:"required,max=150"`
	Description string       `json:"description" db:"description"`
	Icon        string       `json:"icon" db:"icon"`
	Tier        int          `json:"tier" db:"tier" validate:"min=0"`
	Type        BadgeType    `json:"type" db:"type" validate:"required,badge_type"`
	Rule        BadgeRule    `json:"rule" db:"rule"`
	Context     BadgeContext `json:"context" db:"-"`
	Status      string       `json:"status" db:"status" validate:"required,oneof=active inactive"`
	Deleted     bool         `json:"deleted" db:"deleted"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   *time.Time   `json:"updated_at,omitempty" db:"updated_at"`
}

// IsActive reports whether the badge can currently be earned.
func (b *Badge) IsActive() bool {
	return b.Status == BadgeStatusActive && !b.Deleted
}

// BadgeRule holds the normalized thresholds of a badge. Only the fields
// relevant to the badge's type are consulted.
type BadgeRule struct {
	MinVideos     int `json:"min_videos,omitempty" validate:"min=0"`
	MinSubjects   int `json:"min_subjects,omitempty" validate:"min=0"`
	MinStreakDays int `json:"min_streak_days,omitempty" validate:"min=0"`
	// MinPercentage is only meaningful for perfectionist badges.
	MinPercentage int `json:"min_percentage,omitempty" validate:"omitempty,min=1,max=100"`
}

// ResolveBadgeRule merges the flat shortcut columns with the nested rule
// document. A set, non-zero shortcut wins over the nested value.
func ResolveBadgeRule(shortcut BadgeRuleShortcut, nested BadgeRule) BadgeRule {
	rule := nested
	if shortcut.MinVideos != nil && *shortcut.MinVideos > 0 {
		rule.MinVideos = *shortcut.MinVideos
	}
	if shortcut.MinSubjects != nil && *shortcut.MinSubjects > 0 {
		rule.MinSubjects = *shortcut.MinSubjects
	}
	if shortcut.MinStreakDays != nil && *shortcut.MinStreakDays > 0 {
		rule.MinStreakDays = *shortcut.MinStreakDays
	}
	if shortcut.MinPercentage != nil && *shortcut.MinPercentage > 0 {
		rule.MinPercentage = *shortcut.MinPercentage
	}
	return rule
}

// BadgeRuleShortcut mirrors the legacy top-level threshold columns on the
// badges table.
type BadgeRuleShortcut struct {
	MinVideos     *int
	MinSubjects   *int
	MinStreakDays *int
	MinPercentage *int
}

// BadgeContext narrows which activity counts toward a badge. A nil field is a
// wildcard.
type BadgeContext struct {
	GradeID   *int64 `json:"grade_id,omitempty"`
	SubjectID *int64 `json:"subject_id,omitempty"`
	TermID    *int64 `json:"term_id,omitempty"`
}

// Snapshot renders the context as a plain map for storage on an award.
func (c BadgeContext) Snapshot() map[string]interface{} {
	out := make(map[string]interface{}, 3)
	if c.GradeID != nil {
		out["grade_id"] = *c.GradeID
	}
	if c.SubjectID != nil {
		out["subject_id"] = *c.SubjectID
	}
	if c.TermID != nil {
		out["term_id"] = *c.TermID
	}
	return out
}

// BadgeProgress is the per-badge view returned to API callers.
type BadgeProgress struct {
	Badge    *Badge     `json:"badge"`
	Current  int        `json:"current"`
	Required int        `json:"required"`
	Met      bool       `json:"met"`
	Earned   bool       `json:"earned"`
	EarnedAt *time.Time `json:"earned_at,omitempty"`
	Error    string     `json:"error,omitempty"`
}
