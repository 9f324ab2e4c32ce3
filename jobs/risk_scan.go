package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// BatchScanner scores all transactions of one ingest batch.
type BatchScanner interface {
	ScanBatch(ctx context.Context, batchID string) error
}

// RiskScanJob runs the background risk scoring for an ingest batch.
type RiskScanJob struct {
	Scanner BatchScanner
	Logger  *slog.Logger
	clock   func() time.Time
}

// NewRiskScanJob initialises the risk scan handler.
func NewRiskScanJob(scanner BatchScanner, logger *slog.Logger) *RiskScanJob {
	return &RiskScanJob{
		Scanner: scanner,
		Logger:  logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the risk scan for the task's batch.
func (j *RiskScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Scanner == nil {
		return errors.New("risk scan: handler not configured")
	}
	var payload RiskScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.BatchID == "" {
		return asynq.SkipRetry
	}

	start := j.now()
	logger := j.logger().With(slog.String("batch", payload.BatchID))
	logger.Info("starting risk scan")

	if err := j.Scanner.ScanBatch(ctx, payload.BatchID); err != nil {
		logger.Error("risk scan failed", slog.Any("error", err))
		return err
	}

	logger.Info("completed risk scan", slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *RiskScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskRiskScan))
	}
	return slog.Default().With(slog.String("job", TaskRiskScan))
}

func (j *RiskScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
