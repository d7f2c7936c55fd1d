package achievement

import (
	"strconv"
	"strings"

	"learnhub/internal/models"
)

// MatchesContext reports whether an activity item counts toward a badge
// scoped by c. Unset badge fields match anything.
func MatchesContext(c models.BadgeContext, a models.ActivityContext) bool {
	if c.GradeID != nil && *c.GradeID != a.GradeID {
		return false
	}
	if c.SubjectID != nil && *c.SubjectID != a.SubjectID {
		return false
	}
	if c.TermID != nil && *c.TermID != a.TermID {
		return false
	}
	return true
}

// matchesSubject compares grade and subject only; a subject aggregate spans
// every term of the subject.
func matchesSubject(c models.BadgeContext, s models.CompletedSubject) bool {
	if c.GradeID != nil && *c.GradeID != s.GradeID {
		return false
	}
	if c.SubjectID != nil && *c.SubjectID != s.SubjectID {
		return false
	}
	return true
}

// ContextKey renders a badge context as a stable map key.
func ContextKey(c models.BadgeContext) string {
	var b strings.Builder
	writePart := func(tag string, v *int64) {
		b.WriteString(tag)
		if v == nil {
			b.WriteString("*")
			return
		}
		b.WriteString(strconv.FormatInt(*v, 10))
	}
	writePart("g:", c.GradeID)
	b.WriteString("|")
	writePart("s:", c.SubjectID)
	b.WriteString("|")
	writePart("t:", c.TermID)
	return b.String()
}
