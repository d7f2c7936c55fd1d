package achievements

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"learnhub/internal/models"
	"learnhub/internal/response"
	"learnhub/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockBadgeService records trigger calls and returns canned read models
type mockBadgeService struct {
	calls       []string
	video       models.VideoContext
	types       []models.BadgeType
	err         error
	streak      *models.StreakState
	progress    []*models.BadgeProgress
	invalidated []models.BadgeType
}

func (m *mockBadgeService) OnLogin(ctx context.Context, userID int64) error {
	m.calls = append(m.calls, "login")
	return m.err
}

func (m *mockBadgeService) OnVideoCompleted(ctx context.Context, userID int64, video models.VideoContext) error {
	m.calls = append(m.calls, "video")
	m.video = video
	return m.err
}

func (m *mockBadgeService) OnQuizSubmitted(ctx context.Context, userID int64) error {
	m.calls = append(m.calls, "quiz")
	return m.err
}

func (m *mockBadgeService) OnSubjectCompleted(ctx context.Context, userID int64) error {
	m.calls = append(m.calls, "subject")
	return m.err
}

func (m *mockBadgeService) Evaluate(ctx context.Context, userID int64, types ...models.BadgeType) (*services.EvaluationReport, error) {
	m.types = types
	if m.err != nil {
		return nil, m.err
	}
	return &services.EvaluationReport{UserID: userID, Evaluated: []int64{1, 2}, Awarded: []int64{2}}, nil
}

func (m *mockBadgeService) GetBadgeProgress(ctx context.Context, userID int64) ([]*models.BadgeProgress, error) {
	return m.progress, m.err
}

func (m *mockBadgeService) GetStreak(ctx context.Context, userID int64) (*models.StreakState, error) {
	return m.streak, m.err
}

func (m *mockBadgeService) InvalidateBadges(ctx context.Context, types ...models.BadgeType) error {
	m.invalidated = types
	return m.err
}

func newTestRouter(svc services.BadgeService) http.Handler {
	controller := NewAchievementController(svc, zap.NewNop(), response.NewBuilder(nil, zap.NewNop()))
	r := chi.NewRouter()
	controller.Routes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, response.APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var envelope response.APIResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope), rr.Body.String())
	return rr, envelope
}

func TestTriggerEndpointsAccept(t *testing.T) {
	tests := []struct {
		path string
		body string
		call string
	}{
		{"/users/7/activity/login", "", "login"},
		{"/users/7/activity/videos", `{"video_id":3,"grade_id":1,"subject_id":2,"term_id":1}`, "video"},
		{"/users/7/activity/quizzes", "", "quiz"},
		{"/users/7/activity/subjects", "", "subject"},
	}

	for _, tt := range tests {
		t.Run(tt.call, func(t *testing.T) {
			svc := &mockBadgeService{}
			rr, envelope := do(t, newTestRouter(svc), http.MethodPost, tt.path, tt.body)

			assert.Equal(t, http.StatusAccepted, rr.Code)
			assert.True(t, envelope.Success)
			assert.Equal(t, []string{tt.call}, svc.calls)
		})
	}
}

func TestRecordVideoCompletedDecodesBody(t *testing.T) {
	svc := &mockBadgeService{}
	_, _ = do(t, newTestRouter(svc), http.MethodPost, "/users/7/activity/videos",
		`{"video_id":3,"grade_id":1,"subject_id":2,"term_id":4}`)
	assert.Equal(t, models.VideoContext{VideoID: 3, GradeID: 1, SubjectID: 2, TermID: 4}, svc.video)
}

func TestRecordVideoCompletedRejectsMalformedBody(t *testing.T) {
	svc := &mockBadgeService{}
	rr, envelope := do(t, newTestRouter(svc), http.MethodPost, "/users/7/activity/videos", `{"video_id":`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Type)
	assert.Empty(t, svc.calls)
}

func TestInvalidUserID(t *testing.T) {
	for _, path := range []string{"/users/abc/streak", "/users/0/streak", "/users/-4/badges"} {
		rr, envelope := do(t, newTestRouter(&mockBadgeService{}), http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, path)
		assert.False(t, envelope.Success)
	}
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", services.NewNotFoundError("user not found"), http.StatusNotFound},
		{"unavailable", services.NewServiceUnavailableError("store down", nil), http.StatusServiceUnavailable},
		{"validation", services.NewValidationError("bad", nil), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockBadgeService{err: tt.err}
			rr, envelope := do(t, newTestRouter(svc), http.MethodPost, "/users/7/activity/login", "")
			assert.Equal(t, tt.status, rr.Code)
			assert.False(t, envelope.Success)
		})
	}
}

func TestGetStreak(t *testing.T) {
	svc := &mockBadgeService{streak: &models.StreakState{CurrentLength: 4, BestLength: 9}}
	rr, envelope := do(t, newTestRouter(svc), http.MethodGet, "/users/7/streak", "")

	require.Equal(t, http.StatusOK, rr.Code)
	data := envelope.Data.(map[string]interface{})
	assert.EqualValues(t, 4, data["current_length"])
	assert.EqualValues(t, 9, data["best_length"])
}

func TestGetBadgeProgress(t *testing.T) {
	svc := &mockBadgeService{progress: []*models.BadgeProgress{
		{Badge: &models.Badge{ID: 1, Name: "Explorer", Type: models.BadgeTypeTermExplorer}, Current: 2, Required: 5},
	}}
	rr, envelope := do(t, newTestRouter(svc), http.MethodGet, "/users/7/badges", "")

	require.Equal(t, http.StatusOK, rr.Code)
	items := envelope.Data.([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.EqualValues(t, 2, item["current"])
	assert.EqualValues(t, 5, item["required"])
}

func TestEvaluatePassesTypes(t *testing.T) {
	svc := &mockBadgeService{}
	rr, envelope := do(t, newTestRouter(svc), http.MethodPost, "/users/7/evaluate?type=streak_master,perfectionist", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []models.BadgeType{models.BadgeTypeStreakMaster, models.BadgeTypePerfectionist}, svc.types)
	data := envelope.Data.(map[string]interface{})
	assert.Equal(t, []interface{}{float64(2)}, data["awarded"])
}

func TestInvalidateBadgeCache(t *testing.T) {
	svc := &mockBadgeService{}
	rr, _ := do(t, newTestRouter(svc), http.MethodDelete, "/badges/cache?type=streak_master", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []models.BadgeType{models.BadgeTypeStreakMaster}, svc.invalidated)

	rr, _ = do(t, newTestRouter(svc), http.MethodDelete, "/badges/cache?type=leaderboard", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
