package repositories

import (
	"context"
	"fmt"

	"learnhub/internal/database"
	"learnhub/internal/models"

	"go.uber.org/zap"
)

type activityRepository struct {
	*BaseRepository
}

// NewActivityRepository creates the read-model repository over videos,
// completions and quiz attempts
func NewActivityRepository(db *database.Manager, logger *zap.Logger) ActivityRepository {
	return &activityRepository{BaseRepository: NewBaseRepository(db, logger)}
}

// Nullable filter arguments at $2..$4 (or $1..$3) match everything when NULL.
const completedVideoFilter = `
	FROM video_completions vc
	JOIN videos v ON v.id = vc.video_id
	WHERE vc.user_id = $1
		AND ($2::BIGINT IS NULL OR v.grade_id = $2)
		AND ($3::BIGINT IS NULL OR v.subject_id = $3)
		AND ($4::BIGINT IS NULL OR v.term_id = $4)`

func (r *activityRepository) FindCompletedVideos(ctx context.Context, userID int64, limit int, filter models.ContextFilter) (int, []models.CompletedVideo, error) {
	args := append([]interface{}{userID}, contextArgs(filter)...)

	var total int
	if err := r.QueryRowContext(ctx, `SELECT COUNT(*) `+completedVideoFilter, args...).Scan(&total); err != nil {
		return 0, nil, fmt.Errorf("failed to count completed videos: %w", err)
	}
	if total == 0 {
		return 0, nil, nil
	}

	query := `SELECT vc.video_id, v.grade_id, v.subject_id, v.term_id, vc.completed_at ` +
		completedVideoFilter + ` ORDER BY vc.completed_at, vc.video_id`
	if limit > 0 {
		query += ` LIMIT $5`
		args = append(args, limit)
	}

	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to list completed videos: %w", err)
	}
	defer rows.Close()

	videos := make([]models.CompletedVideo, 0, total)
	for rows.Next() {
		var v models.CompletedVideo
		if err := rows.Scan(&v.VideoID, &v.GradeID, &v.SubjectID, &v.TermID, &v.WatchedAt); err != nil {
			return 0, nil, fmt.Errorf("failed to scan completed video: %w", err)
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}
	return total, videos, nil
}

func (r *activityRepository) CountActiveVideos(ctx context.Context, filter models.ContextFilter) (int, error) {
	var total int
	err := r.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM videos v
		WHERE v.status = 'active' AND v.deleted = false
			AND ($1::BIGINT IS NULL OR v.grade_id = $1)
			AND ($2::BIGINT IS NULL OR v.subject_id = $2)
			AND ($3::BIGINT IS NULL OR v.term_id = $3)`,
		contextArgs(filter)...,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count active videos: %w", err)
	}
	return total, nil
}

// FindCompletedSubjects aggregates completions per (grade, subject) against the
// active video catalog. Subjects the user never touched are omitted.
func (r *activityRepository) FindCompletedSubjects(ctx context.Context, userID int64) ([]models.CompletedSubject, error) {
	rows, err := r.QueryContext(ctx, `
		SELECT v.grade_id, v.subject_id,
			COUNT(vc.video_id) AS completed_count,
			COUNT(v.id) AS total_count
		FROM videos v
		LEFT JOIN video_completions vc ON vc.video_id = v.id AND vc.user_id = $1
		WHERE v.status = 'active' AND v.deleted = false
		GROUP BY v.grade_id, v.subject_id
		HAVING COUNT(vc.video_id) > 0
		ORDER BY v.grade_id, v.subject_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate subjects: %w", err)
	}
	defer rows.Close()

	var subjects []models.CompletedSubject
	for rows.Next() {
		var s models.CompletedSubject
		if err := rows.Scan(&s.GradeID, &s.SubjectID, &s.CompletedCount, &s.TotalCount); err != nil {
			return nil, fmt.Errorf("failed to scan subject progress: %w", err)
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

// perfectQuizQuery keeps the earliest full-marks attempt per video. A quiz
// with no marks available is never perfect.
const perfectQuizQuery = `
	SELECT DISTINCT ON (qa.video_id)
		qa.video_id, v.grade_id, v.subject_id, v.term_id, qa.submitted_at
	FROM quiz_attempts qa
	JOIN videos v ON v.id = qa.video_id
	WHERE qa.user_id = $1 AND qa.total_marks > 0 AND qa.score_earned = qa.total_marks
	ORDER BY qa.video_id, qa.submitted_at`

// FindPerfectQuizVideos returns one row per video where some attempt scored
// full marks, keeping the earliest such attempt.
func (r *activityRepository) FindPerfectQuizVideos(ctx context.Context, userID int64) ([]models.PerfectQuizVideo, error) {
	rows, err := r.QueryContext(ctx, perfectQuizQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list perfect quizzes: %w", err)
	}
	defer rows.Close()

	var out []models.PerfectQuizVideo
	for rows.Next() {
		var p models.PerfectQuizVideo
		if err := rows.Scan(&p.VideoID, &p.GradeID, &p.SubjectID, &p.TermID, &p.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan perfect quiz: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.logger.Debug("Loaded perfect quizzes", zap.Int64("user_id", userID), zap.Int("count", len(out)))
	return out, nil
}
