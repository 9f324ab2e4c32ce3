package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// BatchPruner removes ingest batch records older than the retention window.
type BatchPruner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// BatchCleanupJob prunes old ingest batch records on a schedule. The content
// hashes stay long enough to catch accidental re-uploads without growing the
// table forever.
type BatchCleanupJob struct {
	Pruner    BatchPruner
	Logger    *slog.Logger
	Retention time.Duration
}

// NewBatchCleanupJob initialises the cleanup handler.
func NewBatchCleanupJob(pruner BatchPruner, logger *slog.Logger, retention time.Duration) *BatchCleanupJob {
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	return &BatchCleanupJob{Pruner: pruner, Logger: logger, Retention: retention}
}

// Handle executes the cleanup.
func (j *BatchCleanupJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Pruner == nil {
		return errors.New("batch cleanup: handler not configured")
	}
	logger := j.logger()
	if err := j.Pruner.Cleanup(ctx, j.Retention); err != nil {
		logger.Error("batch cleanup failed", slog.Any("error", err))
		return err
	}
	logger.Info("batch cleanup complete", slog.Duration("retention", j.Retention))
	return nil
}

func (j *BatchCleanupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskBatchCleanup))
	}
	return slog.Default().With(slog.String("job", TaskBatchCleanup))
}
