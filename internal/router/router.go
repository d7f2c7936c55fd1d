package router

import (
	"context"
	"net/http"

	"learnhub/internal/handlers/api/v1/achievements"
	"learnhub/internal/middleware"
	"learnhub/internal/response"
	"learnhub/internal/services"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// HealthFunc reports the health of the running services
type HealthFunc func(ctx context.Context) *services.ServiceHealth

// Deps is everything the router needs to serve requests
type Deps struct {
	Badges          services.BadgeService
	Health          HealthFunc
	ResponseBuilder *response.Builder
	Logger          *zap.Logger
}

// SetupRouter configures all HTTP routes and returns the main handler
func SetupRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	builder := deps.ResponseBuilder
	if builder == nil {
		builder = response.NewBuilder(nil, logger)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID(logger))
	r.Use(middleware.AccessLog())
	r.Use(middleware.RecoverPanic(builder))

	r.Get("/health", healthHandler(deps.Health, builder))

	controller := achievements.NewAchievementController(deps.Badges, logger.Named("api"), builder)
	r.Route("/api/v1", controller.Routes)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		builder.WriteError(w, r, services.NewNotFoundError("route not found"))
	})
	return r
}

// healthHandler answers 200 when healthy or degraded and 503 when the
// database is unreachable
func healthHandler(health HealthFunc, builder *response.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if health == nil {
			builder.WriteSuccess(w, r, map[string]string{"status": "healthy"})
			return
		}
		status := health(r.Context())
		code := http.StatusOK
		if status.Status == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		builder.WriteJSON(w, r, &response.APIResponse{
			Success: code == http.StatusOK,
			Data:    status,
		}, code)
	}
}
