package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/deadline-sync-api/internal/config"
	"github.com/noah-isme/deadline-sync-api/internal/database"
	"github.com/noah-isme/deadline-sync-api/internal/handler"
	"github.com/noah-isme/deadline-sync-api/internal/middleware"
	"github.com/noah-isme/deadline-sync-api/internal/observability"
	"github.com/noah-isme/deadline-sync-api/internal/repository"
	"github.com/noah-isme/deadline-sync-api/internal/router"
	"github.com/noah-isme/deadline-sync-api/internal/scheduler"
	"github.com/noah-isme/deadline-sync-api/internal/service"
	"github.com/noah-isme/deadline-sync-api/pkg/ai"
	"github.com/noah-isme/deadline-sync-api/pkg/calendar"
	"github.com/noah-isme/deadline-sync-api/pkg/classroom"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx := context.Background()
	observability.RegisterMetrics()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	redisClient, err := database.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	var publisher service.EventPublisher
	if cfg.NATSURL != "" {
		conn, err := nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName), nats.MaxReconnects(-1))
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, sync events will not be published")
		} else {
			defer conn.Drain()
			publisher = conn
		}
	}

	// A missing credential is not fatal: extraction endpoints answer 503 until it is set.
	inferencer, err := ai.NewInferencer(ctx, ai.ProviderConfig{
		Provider:      cfg.AIProvider,
		Model:         cfg.AIModel,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		GeminiBaseURL: cfg.GeminiBaseURL,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		Logger:        logger,
	})
	if err != nil {
		logger.Warn().Err(err).Str("provider", cfg.AIProvider).Msg("inference provider not configured")
	}

	validate := handler.NewValidator()

	syncRunRepo := repository.NewSyncRunRepository(db)
	sessionStore := service.NewSessionStore(redisClient, cfg.SessionTTL, logger)

	classroomClient := classroom.NewClient(classroom.Config{BaseURL: cfg.ClassroomBaseURL})
	calendarClient := calendar.NewClient(calendar.Config{BaseURL: cfg.CalendarBaseURL, CalendarID: cfg.CalendarID})

	fetcher := service.NewClassroomFetcher(classroomClient, service.ClassroomFetcherConfig{
		Cutoff:      cfg.ClassroomCutoff,
		Concurrency: cfg.ClassroomConcurrency,
	}, logger)

	syncService := service.NewSyncService(service.SyncDependencies{
		Sessions:   sessionStore,
		Classroom:  fetcher,
		Extraction: service.NewExtractionService(inferencer, time.Now, logger),
		Dedup:      service.NewDeduplicationService(inferencer, time.Now, logger),
		Calendar:   calendarClient,
		Builder: service.NewEventBuilder(service.EventBuilderConfig{
			DisplayOffsetMinutes: cfg.DisplayOffsetMinutes,
			DisplayLabel:         cfg.DisplayLabel,
		}),
		Runs:      syncRunRepo,
		Publisher: publisher,
	}, logger)
	syncRunService := service.NewSyncRunService(syncRunRepo, logger)

	retention := scheduler.NewRetentionScheduler(syncRunRepo, scheduler.RetentionConfig{
		Spec:      cfg.RetentionSchedule,
		Retention: cfg.SyncRunRetention,
	}, logger)
	if err := retention.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start retention scheduler")
	}
	defer retention.Stop()

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		SessionHandler:       handler.NewSessionHandler(sessionStore, validate, cfg.JWTSecret, cfg.SessionTTL, logger),
		DeadlineHandler:      handler.NewDeadlineHandler(syncService, logger),
		SyncHandler:          handler.NewSyncHandler(syncService, logger),
		CalendarEventHandler: handler.NewCalendarEventHandler(syncService, validate, logger),
		SyncRunHandler:       handler.NewSyncRunHandler(syncRunService, validate, logger),
		SessionMiddleware:    middleware.SessionProtected(cfg.JWTSecret, sessionStore),
		AIRateLimit:          middleware.RateLimit("ai", cfg.AIRateLimit, cfg.AIRateWindow),
		AIReady:              inferencer != nil,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
