package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"learnhub/internal/database"
	"learnhub/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type badgeRepository struct {
	*BaseRepository
}

// NewBadgeRepository creates the Postgres-backed badge repository
func NewBadgeRepository(db *database.Manager, logger *zap.Logger) BadgeRepository {
	return &badgeRepository{BaseRepository: NewBaseRepository(db, logger)}
}

// ListActiveByTypes returns active, non-deleted badges of the given types
// ordered by tier. The legacy shortcut columns and the rule document are
// folded into one normalized rule here.
func (r *badgeRepository) ListActiveByTypes(ctx context.Context, types []models.BadgeType) ([]*models.Badge, error) {
	if len(types) == 0 {
		return nil, nil
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}

	query := `
		SELECT
			b.id, b.name, b.description, b.icon, b.tier, b.type,
			b.min_videos, b.min_subjects, b.min_streak_days, b.min_percentage,
			b.rule, b.grade_id, b.subject_id, b.term_id,
			b.status, b.deleted, b.created_at, b.updated_at
		FROM badges b
		WHERE b.status = 'active' AND b.deleted = false AND b.type = ANY($1)
		ORDER BY b.tier, b.id`

	rows, err := r.QueryContext(ctx, query, pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("failed to list active badges: %w", err)
	}
	defer rows.Close()

	var badges []*models.Badge
	for rows.Next() {
		badge, err := r.scanBadge(rows)
		if err != nil {
			return nil, err
		}
		badges = append(badges, badge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate badges: %w", err)
	}
	return badges, nil
}

func (r *badgeRepository) scanBadge(rows *sql.Rows) (*models.Badge, error) {
	var (
		badge     models.Badge
		badgeType string
		ruleDoc   []byte
		updatedAt sql.NullTime

		minVideos, minSubjects, minStreak, minPct sql.NullInt32
		gradeID, subjectID, termID                sql.NullInt64
	)
	err := rows.Scan(
		&badge.ID, &badge.Name, &badge.Description, &badge.Icon, &badge.Tier, &badgeType,
		&minVideos, &minSubjects, &minStreak, &minPct,
		&ruleDoc, &gradeID, &subjectID, &termID,
		&badge.Status, &badge.Deleted, &badge.CreatedAt, &updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan badge: %w", err)
	}

	var nested models.BadgeRule
	if len(ruleDoc) > 0 {
		if err := json.Unmarshal(ruleDoc, &nested); err != nil {
			// a broken rule document only disables the nested values
			r.logger.Warn("Ignoring malformed badge rule document",
				zap.Int64("badge_id", badge.ID),
				zap.Error(err),
			)
			nested = models.BadgeRule{}
		}
	}

	badge.Type = models.BadgeType(badgeType)
	badge.Rule = models.ResolveBadgeRule(models.BadgeRuleShortcut{
		MinVideos:     intPtr(minVideos),
		MinSubjects:   intPtr(minSubjects),
		MinStreakDays: intPtr(minStreak),
		MinPercentage: intPtr(minPct),
	}, nested)
	badge.Context = models.BadgeContext{
		GradeID:   int64Ptr(gradeID),
		SubjectID: int64Ptr(subjectID),
		TermID:    int64Ptr(termID),
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		badge.UpdatedAt = &t
	}
	return &badge, nil
}
