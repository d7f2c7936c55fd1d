package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"learnhub/internal/config"
	"learnhub/internal/database"
	"learnhub/internal/events"
	"learnhub/internal/response"
	"learnhub/internal/router"
	"learnhub/internal/services"

	"go.uber.org/zap"
)

func main() {
	logger, level, err := initLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	logger.Info("Starting LearnHub achievements service")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.Logging.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
			logger.Warn("Ignoring invalid LOG_LEVEL", zap.String("level", cfg.Logging.Level))
		}
	}
	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
	)

	startupCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	dbManager, err := database.Open(startupCtx, &cfg.Database, logger.Named("database"))
	cancel()
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	sc, err := services.NewServiceCollection(dbManager, cfg, logger)
	if err != nil {
		dbManager.Close()
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}

	if err := subscribeAchievementLog(sc.EventBus, logger.Named("notifications")); err != nil {
		logger.Fatal("Failed to subscribe notification handler", zap.Error(err))
	}
	if err := sc.Start(context.Background()); err != nil {
		logger.Fatal("Failed to start services", zap.Error(err))
	}

	responseConfig := response.DefaultConfig()
	responseConfig.PrettyJSON = cfg.IsDevelopment()
	handler := router.SetupRouter(router.Deps{
		Badges:          sc.BadgeService,
		Health:          sc.HealthCheck,
		ResponseBuilder: response.NewBuilder(responseConfig, logger.Named("response")),
		Logger:          logger.Named("http"),
	})

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-quit:
		logger.Info("Shutting down application...")
	case err := <-serverErr:
		logger.Error("HTTP server failed", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := sc.Shutdown(shutdownCtx); err != nil {
		logger.Error("Service shutdown incomplete", zap.Error(err))
	}
	logger.Info("Application shutdown completed")
}

// subscribeAchievementLog is the default downstream consumer of achievement
// notifications
func subscribeAchievementLog(bus events.EventBus, logger *zap.Logger) error {
	if err := bus.SubscribePattern(events.AchievementPattern, events.EventHandlerFunc{
		ID: "achievement-audit",
		Func: func(ctx context.Context, event events.Event) error {
			fields := []zap.Field{
				zap.String("event_id", event.GetEventID()),
				zap.String("event_type", event.GetEventType()),
			}
			if userID := event.GetUserID(); userID != nil {
				fields = append(fields, zap.Int64("user_id", *userID))
			}
			logger.Debug("Achievement event delivered", fields...)
			return nil
		},
	}); err != nil {
		return err
	}

	if err := bus.Subscribe(events.EventBadgeAwarded, events.NewTypedEventHandler("badge-awarded-log",
		func(ctx context.Context, e *events.BadgeAwardedEvent) error {
			logger.Info("Badge awarded",
				zap.Int64p("user_id", e.GetUserID()),
				zap.Int64("badge_id", e.BadgeID),
				zap.String("badge_name", e.BadgeName),
				zap.Int("match_count", e.MatchCount),
			)
			return nil
		})); err != nil {
		return err
	}

	return bus.Subscribe(events.EventStreakMilestone, events.NewTypedEventHandler("streak-milestone-log",
		func(ctx context.Context, e *events.StreakMilestoneEvent) error {
			logger.Info("Streak milestone reached",
				zap.Int64p("user_id", e.GetUserID()),
				zap.Int("milestone", e.Milestone),
			)
			return nil
		}))
}

// initLogger initializes the structured logger based on environment. The
// returned level can be adjusted once configuration is loaded.
func initLogger() (*zap.Logger, zap.AtomicLevel, error) {
	env := os.Getenv("GO_ENV")
	var config zap.Config

	switch env {
	case "production":
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "staging":
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	default:
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, config.Level, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, config.Level, nil
}
