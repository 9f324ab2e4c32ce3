package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRiskScan scores the transactions of one ingest batch.
	TaskRiskScan = "risk:scan"
	// TaskBatchCleanup prunes old ingest batch records.
	TaskBatchCleanup = "ingest:cleanup"
)

// RiskScanPayload identifies the batch to score.
type RiskScanPayload struct {
	BatchID string `json:"batchId"`
}

// NewRiskScanTask constructs an Asynq task.
func NewRiskScanTask(payload RiskScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRiskScan, data), nil
}

// NewBatchCleanupTask constructs the periodic cleanup task.
func NewBatchCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskBatchCleanup, nil)
}
