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

	"github.com/forecourt-hq/sentinel/internal/app"
	"github.com/forecourt-hq/sentinel/internal/auth"
	"github.com/forecourt-hq/sentinel/internal/camera"
	"github.com/forecourt-hq/sentinel/internal/ingest"
	"github.com/forecourt-hq/sentinel/internal/platform/cache"
	"github.com/forecourt-hq/sentinel/internal/platform/db"
	"github.com/forecourt-hq/sentinel/internal/review"
	"github.com/forecourt-hq/sentinel/internal/shared"
	"github.com/forecourt-hq/sentinel/internal/video"
	"github.com/forecourt-hq/sentinel/jobs"
)

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

	sessionManager := shared.NewSessionManager(redisClient, "sentinel_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	authService := auth.NewService(cfg.ManagerPasswordHash)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	reviewRepo := review.NewRepository(dbpool)
	reviewService := review.NewService(reviewRepo)
	reviewHandler := review.NewHandler(logger, reviewService)

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

	uploadGuard := ingest.NewUploadGuard(dbpool)
	ingestService := ingest.NewService(uploadGuard, reviewService, jobClient, logger)
	ingestHandler := ingest.NewHandler(logger, ingestService, cfg.MaxUploadSize)

	videoRepo := video.NewRepository(dbpool)
	videoService := video.NewService(videoRepo, cfg.UploadDir)
	videoHandler := video.NewHandler(logger, videoService, cfg.MaxUploadSize)

	cameraRepo := camera.NewRepository(dbpool)
	cameraService := camera.NewService(cameraRepo)
	cameraHandler := camera.NewHandler(logger, cameraService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthHandler:    authHandler,
		ReviewHandler:  reviewHandler,
		IngestHandler:  ingestHandler,
		VideoHandler:   videoHandler,
		CameraHandler:  cameraHandler,
		JobHandler:     jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
