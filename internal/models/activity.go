package models

import "time"

// ActivityContext is the curriculum position of a piece of activity.
type ActivityContext struct {
	GradeID   int64 `json:"grade_id"`
	SubjectID int64 `json:"subject_id"`
	TermID    int64 `json:"term_id"`
}

// VideoContext identifies a completed video and where it sits in the
// curriculum.
type VideoContext struct {
	VideoID   int64 `json:"video_id" validate:"required,gt=0"`
	GradeID   int64 `json:"grade_id" validate:"min=0"`
	SubjectID int64 `json:"subject_id" validate:"min=0"`
	TermID    int64 `json:"term_id" validate:"min=0"`
}

// Activity returns the curriculum position of the video.
func (v VideoContext) Activity() ActivityContext {
	return ActivityContext{GradeID: v.GradeID, SubjectID: v.SubjectID, TermID: v.TermID}
}

// CompletedVideo is one video the user has fully watched.
type CompletedVideo struct {
	VideoID   int64     `json:"video_id" db:"video_id"`
	GradeID   int64     `json:"grade_id" db:"grade_id"`
	SubjectID int64     `json:"subject_id" db:"subject_id"`
	TermID    int64     `json:"term_id" db:"term_id"`
	WatchedAt time.Time `json:"watched_at" db:"completed_at"`
}

// Activity returns the curriculum position of the video.
func (v CompletedVideo) Activity() ActivityContext {
	return ActivityContext{GradeID: v.GradeID, SubjectID: v.SubjectID, TermID: v.TermID}
}

// CompletedSubject aggregates a user's progress through one subject.
type CompletedSubject struct {
	SubjectID      int64 `json:"subject_id" db:"subject_id"`
	GradeID        int64 `json:"grade_id" db:"grade_id"`
	CompletedCount int   `json:"completed_count" db:"completed_count"`
	TotalCount     int   `json:"total_count" db:"total_count"`
}

// IsComplete reports whether every active video of the subject was watched.
func (s CompletedSubject) IsComplete() bool {
	return s.TotalCount > 0 && s.CompletedCount >= s.TotalCount
}

// PerfectQuizVideo is a video whose quiz the user answered with full marks.
// There is at most one entry per video.
type PerfectQuizVideo struct {
	VideoID     int64     `json:"video_id" db:"video_id"`
	GradeID     int64     `json:"grade_id" db:"grade_id"`
	SubjectID   int64     `json:"subject_id" db:"subject_id"`
	TermID      int64     `json:"term_id" db:"term_id"`
	CompletedAt time.Time `json:"completed_at" db:"submitted_at"`
}

// Activity returns the curriculum position of the video.
func (p PerfectQuizVideo) Activity() ActivityContext {
	return ActivityContext{GradeID: p.GradeID, SubjectID: p.SubjectID, TermID: p.TermID}
}

// ContextFilter narrows read-model queries. Nil fields do not filter.
type ContextFilter struct {
	GradeID   *int64
	SubjectID *int64
	TermID    *int64
}

// Filter converts a badge context into a read-model filter.
func (c BadgeContext) Filter() ContextFilter {
	return ContextFilter{GradeID: c.GradeID, SubjectID: c.SubjectID, TermID: c.TermID}
}
