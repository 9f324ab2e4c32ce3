package jobs

import (
	"context"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type stubScanner struct {
	batches []string
	err     error
}

func (s *stubScanner) ScanBatch(_ context.Context, batchID string) error {
	s.batches = append(s.batches, batchID)
	return s.err
}

func TestRiskScanJobHandle(t *testing.T) {
	scanner := &stubScanner{}
	job := NewRiskScanJob(scanner, nil)

	task, err := NewRiskScanTask(RiskScanPayload{BatchID: "batch-1"})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, []string{"batch-1"}, scanner.batches)
}

func TestRiskScanJobBadPayload(t *testing.T) {
	scanner := &stubScanner{}
	job := NewRiskScanJob(scanner, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskRiskScan, []byte("{not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Empty(t, scanner.batches)
}

func TestRiskScanJobMissingBatch(t *testing.T) {
	scanner := &stubScanner{}
	job := NewRiskScanJob(scanner, nil)

	task, err := NewRiskScanTask(RiskScanPayload{})
	require.NoError(t, err)

	require.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)
	require.Empty(t, scanner.batches)
}
