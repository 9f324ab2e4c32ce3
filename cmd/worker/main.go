package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/forecourt-hq/sentinel/internal/app"
	"github.com/forecourt-hq/sentinel/internal/ingest"
	"github.com/forecourt-hq/sentinel/internal/platform/cache"
	"github.com/forecourt-hq/sentinel/internal/platform/db"
	"github.com/forecourt-hq/sentinel/internal/risk"
	"github.com/forecourt-hq/sentinel/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	var scorer risk.Scorer
	scorer, err = risk.NewGeminiScorer(ctx, cfg.RiskModel)
	if err != nil {
		logger.Warn("model scorer unavailable, using rule scorer", slog.Any("error", err))
		scorer = risk.RuleScorer{}
	}

	riskRepo := risk.NewRepository(pool)
	riskService := risk.NewService(riskRepo, scorer, logger, cfg.RiskBatchSize, cfg.RiskBatchDelay)
	riskJob := jobs.NewRiskScanJob(riskService, logger)

	uploadGuard := ingest.NewUploadGuard(pool)
	cleanupJob := jobs.NewBatchCleanupJob(uploadGuard, logger, 0)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskRiskScan, Handler: riskJob.Handle},
			{Type: jobs.TaskBatchCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "45 3 * * *", Task: jobs.NewBatchCleanupTask(), Options: []asynq.Option{asynq.MaxRetry(2)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started")
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker shut down")
}
