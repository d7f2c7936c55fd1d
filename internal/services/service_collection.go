// file: internal/services/service_collection.go
package services

import (
	"context"
	"fmt"
	"time"

	"learnhub/internal/cache"
	"learnhub/internal/config"
	"learnhub/internal/database"
	"learnhub/internal/events"
	"learnhub/internal/repositories"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const evaluationTimeout = 30 * time.Second

// ServiceCollection holds the achievement services and their infrastructure
type ServiceCollection struct {
	StreakService StreakService
	AwardService  AwardService
	BadgeService  BadgeService
	Notifier      ActivityNotifier

	Repositories *repositories.Collection
	Cache        cache.Cache
	EventBus     events.EventBus
	Runner       TaskRunner
	Logger       *zap.Logger
	Config       *config.Config
	DBManager    *database.Manager

	startTime time.Time
}

// ServiceHealth represents the health status of the service collection
type ServiceHealth struct {
	Status       string                   `json:"status"`
	Timestamp    time.Time                `json:"timestamp"`
	Dependencies map[string]ServiceStatus `json:"dependencies"`
	Uptime       string                   `json:"uptime"`
	Issues       []string                 `json:"issues,omitempty"`
}

// ServiceStatus represents the status of one dependency
type ServiceStatus struct {
	Name         string      `json:"name"`
	Status       string      `json:"status"`
	ResponseTime string      `json:"response_time"`
	Error        string      `json:"error,omitempty"`
	Details      interface{} `json:"details,omitempty"`
}

// NewServiceCollection builds every service on top of an open database
func NewServiceCollection(dbManager *database.Manager, cfg *config.Config, logger *zap.Logger) (*ServiceCollection, error) {
	if dbManager == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	sc := &ServiceCollection{
		Config:    cfg,
		Logger:    logger,
		DBManager: dbManager,
		startTime: time.Now(),
	}

	var err error
	sc.Cache, err = cache.NewCache(&cfg.Cache, logger.Named("cache"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	sc.EventBus = events.NewEventBus(&events.EventBusConfig{
		BufferSize:  cfg.Achievements.EventBufferSize,
		WorkerCount: cfg.Achievements.WorkerCount,
	}, logger.Named("events"))

	sc.Repositories, err = repositories.NewCollection(dbManager, logger.Named("repositories"))
	if err != nil {
		return nil, fmt.Errorf("failed to create repository collection: %w", err)
	}

	if err := sc.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Info("Service collection initialized successfully",
		zap.String("cache_provider", cfg.Cache.Provider),
		zap.Bool("async_evaluation", cfg.Achievements.AsyncEvaluation),
	)
	return sc, nil
}

func (sc *ServiceCollection) initializeServices() error {
	ac := sc.Config.Achievements
	logger := sc.Logger.Named("achievements")

	sc.Notifier = NewActivityNotifier(sc.EventBus, logger)

	sc.StreakService = NewStreakService(
		sc.Repositories.Streak,
		sc.Notifier,
		logger,
		WithMilestones(ac.Milestones),
		WithUpdateRetries(ac.StreakUpdateRetries),
	)

	sc.AwardService = NewAwardService(sc.Repositories.Award, sc.Notifier, logger)

	if ac.AsyncEvaluation {
		sc.Runner = NewTaskRunner(ac.WorkerCount, evaluationTimeout, logger)
	}

	var err error
	sc.BadgeService, err = NewBadgeService(BadgeServiceDeps{
		Streaks:      sc.StreakService,
		Awards:       sc.AwardService,
		Repositories: sc.Repositories,
		Cache:        sc.Cache,
		CacheTTL:     ac.BadgeCacheTTL,
		Runner:       sc.Runner,
		Logger:       logger,
	})
	return err
}

// ===============================
// SERVICE LIFECYCLE MANAGEMENT
// ===============================

// Start starts the event bus workers
func (sc *ServiceCollection) Start(ctx context.Context) error {
	if err := sc.EventBus.Start(ctx); err != nil {
		return fmt.Errorf("failed to start event bus: %w", err)
	}
	sc.Logger.Info("Service collection started successfully")
	return nil
}

// Shutdown drains background evaluations first so their notifications still
// reach the bus, then stops the bus and closes connections
func (sc *ServiceCollection) Shutdown(ctx context.Context) error {
	sc.Logger.Info("Shutting down service collection")

	var errs error
	if sc.Runner != nil {
		errs = multierr.Append(errs, wrapShutdown("task runner", sc.Runner.Shutdown(ctx)))
	}
	errs = multierr.Append(errs, wrapShutdown("event bus", sc.EventBus.Stop(ctx)))
	errs = multierr.Append(errs, wrapShutdown("cache", sc.Cache.Close()))
	errs = multierr.Append(errs, wrapShutdown("database", sc.Repositories.Close()))

	if errs != nil {
		sc.Logger.Error("Errors occurred during shutdown", zap.Error(errs))
		return errs
	}
	sc.Logger.Info("Service collection shutdown completed successfully")
	return nil
}

func wrapShutdown(component string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s shutdown: %w", component, err)
}

// ===============================
// HEALTH AND MONITORING
// ===============================

// HealthCheck reports database, cache and event bus status
func (sc *ServiceCollection) HealthCheck(ctx context.Context) *ServiceHealth {
	health := &ServiceHealth{
		Status:       "healthy",
		Timestamp:    time.Now(),
		Dependencies: make(map[string]ServiceStatus),
		Uptime:       time.Since(sc.startTime).Round(time.Second).String(),
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	check := func(name string, fn func(context.Context) error, details func() interface{}) {
		start := time.Now()
		status := ServiceStatus{Name: name, Status: "healthy"}
		if err := fn(checkCtx); err != nil {
			status.Status = "unhealthy"
			status.Error = err.Error()
			health.Issues = append(health.Issues, fmt.Sprintf("%s: %s", name, err))
		}
		status.ResponseTime = time.Since(start).String()
		if details != nil {
			status.Details = details()
		}
		health.Dependencies[name] = status
	}

	check("database", sc.DBManager.Ping, func() interface{} { return sc.DBManager.Stats() })
	check("cache", sc.Cache.Health, func() interface{} {
		stats, err := sc.Cache.Stats(checkCtx)
		if err != nil {
			return nil
		}
		return stats
	})
	check("event_bus", func(context.Context) error { return sc.EventBus.Health() }, func() interface{} {
		return sc.EventBus.Stats()
	})

	if db := health.Dependencies["database"]; db.Status != "healthy" {
		health.Status = "unhealthy"
	} else if len(health.Issues) > 0 {
		health.Status = "degraded"
	}

	sc.Logger.Debug("Health check completed",
		zap.String("status", health.Status),
		zap.Int("issues", len(health.Issues)),
	)
	return health
}
