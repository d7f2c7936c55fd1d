// ===============================
// FILE: internal/handlers/api/v1/achievements/achievements_controller.go
// ===============================

package achievements

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"learnhub/internal/models"
	"learnhub/internal/response"
	"learnhub/internal/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// AchievementController exposes the achievement triggers and read models
type AchievementController struct {
	badges          services.BadgeService
	logger          *zap.Logger
	responseBuilder *response.Builder
}

// NewAchievementController creates a new achievement controller
func NewAchievementController(
	badges services.BadgeService,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *AchievementController {
	return &AchievementController{
		badges:          badges,
		logger:          logger,
		responseBuilder: responseBuilder,
	}
}

// TriggerAccepted is returned by every activity endpoint
type TriggerAccepted struct {
	UserID  int64  `json:"user_id"`
	Trigger string `json:"trigger"`
}

// Routes mounts the controller on r
func (c *AchievementController) Routes(r chi.Router) {
	r.Route("/users/{userID}", func(r chi.Router) {
		r.Post("/activity/login", c.RecordLogin)
		r.Post("/activity/videos", c.RecordVideoCompleted)
		r.Post("/activity/quizzes", c.RecordQuizSubmitted)
		r.Post("/activity/subjects", c.RecordSubjectCompleted)
		r.Post("/evaluate", c.Evaluate)
		r.Get("/badges", c.GetBadgeProgress)
		r.Get("/streak", c.GetStreak)
	})
	r.Delete("/badges/cache", c.InvalidateBadgeCache)
}

// ===============================
// TRIGGERS
// ===============================

// RecordLogin handles POST /api/v1/users/{userID}/activity/login
func (c *AchievementController) RecordLogin(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.userID(w, r)
	if !ok {
		return
	}
	if err := c.badges.OnLogin(r.Context(), userID); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteAccepted(w, r, TriggerAccepted{UserID: userID, Trigger: "login"})
}

// RecordVideoCompleted handles POST /api/v1/users/{userID}/activity/videos
func (c *AchievementController) RecordVideoCompleted(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.userID(w, r)
	if !ok {
		return
	}

	var video models.VideoContext
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&video); err != nil {
		c.logger.Warn("Failed to decode video completion", zap.Error(err))
		c.responseBuilder.WriteError(w, r, services.NewValidationError("Invalid request body format", err))
		return
	}

	if err := c.badges.OnVideoCompleted(r.Context(), userID, video); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteAccepted(w, r, TriggerAccepted{UserID: userID, Trigger: "video_completed"})
}

// RecordQuizSubmitted handles POST /api/v1/users/{userID}/activity/quizzes
func (c *AchievementController) RecordQuizSubmitted(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.userID(w, r)
	if !ok {
		return
	}
	if err := c.badges.OnQuizSubmitted(r.Context(), userID); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteAccepted(w, r, TriggerAccepted{UserID: userID, Trigger: "quiz_submitted"})
}

// RecordSubjectCompleted handles POST /api/v1/users/{userID}/activity/subjects
func (c *AchievementController) RecordSubjectCompleted(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.userID(w, r)
	if !ok {
		return
	}
	if err := c.badges.OnSubjectCompleted(r.Context(), userID); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteAccepted(w, r, TriggerAccepted{UserID: userID, Trigger: "subject_completed"})
}

// Evaluate handles POST /api/v1/users/{userID}/evaluate?type=a,b
func (c *AchievementController) Evaluate(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.userID(w, r)
	if !ok {
		return
	}
	report, err := c.badges.Evaluate(r.Context(), userID, badgeTypes(r)...)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, report)
}

// ===============================
// READ MODELS
// ===============================

// GetBadgeProgress handles GET /api/v1/users/{userID}/badges
func (c *AchievementController) GetBadgeProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.userID(w, r)
	if !ok {
		return
	}
	progress, err := c.badges.GetBadgeProgress(r.Context(), userID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, progress)
}

// GetStreak handles GET /api/v1/users/{userID}/streak
func (c *AchievementController) GetStreak(w http.ResponseWriter, r *http.Request) {
	userID, ok := c.userID(w, r)
	if !ok {
		return
	}
	streak, err := c.badges.GetStreak(r.Context(), userID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, streak)
}

// InvalidateBadgeCache handles DELETE /api/v1/badges/cache?type=a,b
func (c *AchievementController) InvalidateBadgeCache(w http.ResponseWriter, r *http.Request) {
	types := badgeTypes(r)
	for _, t := range types {
		if !t.Valid() {
			c.responseBuilder.WriteError(w, r, services.NewValidationError("unknown badge type "+strconv.Quote(string(t)), nil))
			return
		}
	}
	if err := c.badges.InvalidateBadges(r.Context(), types...); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.logger.Info("Badge cache invalidated", zap.Int("types", len(types)))
	c.responseBuilder.WriteSuccess(w, r, map[string]interface{}{"invalidated": true})
}

// ===============================
// HELPERS
// ===============================

func (c *AchievementController) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id <= 0 {
		c.responseBuilder.WriteError(w, r, services.NewValidationError("Invalid user ID", err))
		return 0, false
	}
	return id, true
}

// badgeTypes reads repeated or comma separated ?type= values
func badgeTypes(r *http.Request) []models.BadgeType {
	var out []models.BadgeType
	for _, raw := range r.URL.Query()["type"] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, models.BadgeType(part))
			}
		}
	}
	return out
}
