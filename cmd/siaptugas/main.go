package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/siaptugas/siaptugas/internal/activities"
	"github.com/siaptugas/siaptugas/internal/app"
	"github.com/siaptugas/siaptugas/internal/auth"
	"github.com/siaptugas/siaptugas/internal/observability"
	"github.com/siaptugas/siaptugas/internal/performance"
	"github.com/siaptugas/siaptugas/internal/platform/cache"
	"github.com/siaptugas/siaptugas/internal/platform/db"
	"github.com/siaptugas/siaptugas/internal/profiles"
	"github.com/siaptugas/siaptugas/internal/shared"
	"github.com/siaptugas/siaptugas/internal/storage"
	"github.com/siaptugas/siaptugas/internal/tasks"
	"github.com/siaptugas/siaptugas/jobs"
)

// driveStore adapts the bridge client to the task service port.
type driveStore struct {
	client *storage.Client
}

func (s driveStore) Upload(ctx context.Context, up tasks.AttachmentUpload) (string, string, error) {
	obj, err := s.client.Upload(ctx, up.Filename, up.ContentType, up.Data)
	if err != nil {
		return "", "", err
	}
	return obj.URL, obj.Handle, nil
}

func (s driveStore) Delete(ctx context.Context, handle string) error {
	return s.client.Delete(ctx, handle)
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "siaptugas_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditor := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()

	driveClient := storage.NewClient(cfg.DriveBridgeURL)
	if err := driveClient.Ping(ctx); err != nil {
		logger.Warn("drive bridge ping", slog.Any("error", err))
	}

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	profileRepo := profiles.NewRepository(dbpool)
	profileService := profiles.NewService(profileRepo, logger)
	profilesHandler := profiles.NewHandler(logger, profileService)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, profileService, sessionManager, csrfManager)

	taskRepo := tasks.NewRepository(dbpool)
	taskService := tasks.NewService(taskRepo, profileRepo, driveStore{client: driveClient}, jobs.NewQueueNotifier(jobClient), auditor, logger)
	tasksHandler := tasks.NewHandler(logger, taskService)

	performanceRepo := performance.NewRepository(dbpool)
	performanceService := performance.NewService(performanceRepo, profileRepo, logger)
	performanceHandler := performance.NewHandler(logger, performanceService)

	activityRepo := activities.NewRepository(dbpool)
	activityService := activities.NewService(activityRepo, profileRepo, logger)
	activitiesHandler := activities.NewHandler(logger, activityService)

	jobInspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	jobHandler := jobs.NewHandler(jobInspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		AuthHandler:        authHandler,
		ProfilesHandler:    profilesHandler,
		TasksHandler:       tasksHandler,
		PerformanceHandler: performanceHandler,
		ActivitiesHandler:  activitiesHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.Any("error", err))
	}
}
