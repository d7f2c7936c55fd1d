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

type awardRepository struct {
	*BaseRepository
}

// NewAwardRepository creates the Postgres-backed award repository
func NewAwardRepository(db *database.Manager, logger *zap.Logger) AwardRepository {
	return &awardRepository{BaseRepository: NewBaseRepository(db, logger)}
}

const awardColumns = `id, user_id, badge_id, earned_at, matched_video_ids, match_count, context`

// FindByUserAndBadge returns the existing award or nil
func (r *awardRepository) FindByUserAndBadge(ctx context.Context, userID, badgeID int64) (*models.UserBadgeAward, error) {
	row := r.QueryRowContext(ctx,
		`SELECT `+awardColumns+` FROM user_badges WHERE user_id = $1 AND badge_id = $2`,
		userID, badgeID,
	)
	award, err := scanAward(row)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find award: %w", err)
	}
	return award, nil
}

// Create inserts a new award. The (user_id, badge_id) unique constraint is
// the last line against double grants.
func (r *awardRepository) Create(ctx context.Context, award *models.UserBadgeAward) error {
	contextDoc, err := json.Marshal(award.Context)
	if err != nil {
		return fmt.Errorf("failed to encode award context: %w", err)
	}
	if award.Context == nil {
		contextDoc = []byte("{}")
	}
	ids := award.MatchedVideoIDs
	if ids == nil {
		ids = []int64{}
	}

	err = r.QueryRowContext(ctx, `
		INSERT INTO user_badges (user_id, badge_id, earned_at, matched_video_ids, match_count, context)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		award.UserID, award.BadgeID, award.EarnedAt, pq.Array(ids), award.MatchCount, contextDoc,
	).Scan(&award.ID)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("award for user %d badge %d: %w", award.UserID, award.BadgeID, ErrDuplicate)
		}
		return fmt.Errorf("failed to create award: %w", err)
	}

	r.logger.Debug("Award persisted",
		zap.Int64("award_id", award.ID),
		zap.Int64("user_id", award.UserID),
		zap.Int64("badge_id", award.BadgeID),
	)
	return nil
}

// ListByUser returns every award the user holds, newest first
func (r *awardRepository) ListByUser(ctx context.Context, userID int64) ([]*models.UserBadgeAward, error) {
	rows, err := r.QueryContext(ctx,
		`SELECT `+awardColumns+` FROM user_badges WHERE user_id = $1 ORDER BY earned_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list awards: %w", err)
	}
	defer rows.Close()

	var awards []*models.UserBadgeAward
	for rows.Next() {
		award, err := scanAward(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan award: %w", err)
		}
		awards = append(awards, award)
	}
	return awards, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAward(row rowScanner) (*models.UserBadgeAward, error) {
	var (
		award      models.UserBadgeAward
		ids        pq.Int64Array
		contextDoc []byte
	)
	if err := row.Scan(
		&award.ID, &award.UserID, &award.BadgeID, &award.EarnedAt,
		&ids, &award.MatchCount, &contextDoc,
	); err != nil {
		return nil, err
	}
	award.MatchedVideoIDs = []int64(ids)
	if len(contextDoc) > 0 {
		if err := json.Unmarshal(contextDoc, &award.Context); err != nil {
			return nil, fmt.Errorf("failed to decode award context: %w", err)
		}
	}
	return &award, nil
}

var _ rowScanner = (*sql.Row)(nil)
