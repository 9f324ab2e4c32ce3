package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forecourt-hq/sentinel/internal/review"
)

type memoryGuard struct {
	seen    map[string]string
	batches int
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{seen: make(map[string]string)}
}

func (g *memoryGuard) CheckAndRecord(ctx context.Context, hash, filename, actor string) (string, error) {
	if _, ok := g.seen[hash]; ok {
		return "", ErrDuplicateFile
	}
	g.batches++
	id := filename
	g.seen[hash] = id
	return id, nil
}

func (g *memoryGuard) Release(ctx context.Context, batchID string) error {
	for hash, id := range g.seen {
		if id == batchID {
			delete(g.seen, hash)
		}
	}
	return nil
}

type memoryRecorder struct {
	txns map[string]review.Transaction
}

func newMemoryRecorder() *memoryRecorder {
	return &memoryRecorder{txns: make(map[string]review.Transaction)}
}

func (r *memoryRecorder) Record(ctx context.Context, draft review.TransactionDraft) (review.Transaction, error) {
	if _, ok := r.txns[draft.ID]; ok {
		return review.Transaction{}, review.ErrDuplicateTransaction
	}
	t := review.Apply(draft)
	r.txns[t.ID] = t
	return t, nil
}

type recordingEnqueuer struct {
	batches []string
}

func (e *recordingEnqueuer) EnqueueRiskScan(ctx context.Context, batchID string) error {
	e.batches = append(e.batches, batchID)
	return nil
}

const twoRowCSV = `transaction_id,date,transaction_type,amount,employee_name
TXN-1,2026-03-14 09:30:00,refund,$75.00,Dana
TXN-2,2026-03-14 09:45:00,sale,$10.00,Lee
`

func TestProcessUploadEndToEnd(t *testing.T) {
	guard := newMemoryGuard()
	recorder := newMemoryRecorder()
	enqueuer := &recordingEnqueuer{}
	svc := NewService(guard, recorder, enqueuer, nil)
	ctx := context.Background()

	summary, err := svc.ProcessUpload(ctx, "export.csv", []byte(twoRowCSV), "manager")
	require.NoError(t, err)
	require.Equal(t, 2, summary.Processed)
	require.Equal(t, 1, summary.Flagged)
	require.Equal(t, 0, summary.Skipped)

	refund := recorder.txns["TXN-1"]
	require.True(t, refund.IsFlagged)
	require.Equal(t, review.ReasonHighValueRefund, refund.FlaggedReason)
	require.Equal(t, review.StatusPending, refund.Status)

	sale := recorder.txns["TXN-2"]
	require.False(t, sale.IsFlagged)
	require.Equal(t, review.StatusApproved, sale.Status)

	require.Len(t, enqueuer.batches, 1)
}

func TestProcessUploadRejectsDuplicateContent(t *testing.T) {
	guard := newMemoryGuard()
	recorder := newMemoryRecorder()
	svc := NewService(guard, recorder, nil, nil)
	ctx := context.Background()

	_, err := svc.ProcessUpload(ctx, "export.csv", []byte(twoRowCSV), "manager")
	require.NoError(t, err)
	before := len(recorder.txns)

	_, err = svc.ProcessUpload(ctx, "renamed.csv", []byte(twoRowCSV), "manager")
	require.ErrorIs(t, err, ErrDuplicateFile)
	require.Equal(t, before, len(recorder.txns), "no new transactions on duplicate upload")
}

func TestProcessUploadReleasesBatchOnParseError(t *testing.T) {
	guard := newMemoryGuard()
	svc := NewService(guard, newMemoryRecorder(), nil, nil)
	ctx := context.Background()

	_, err := svc.ProcessUpload(ctx, "export.csv", []byte("a,\"b\nbroken"), "manager")
	require.ErrorIs(t, err, ErrParse)
	require.Empty(t, guard.seen, "hash released so a retry is possible")
}

func TestProcessUploadReportsRowOutcomes(t *testing.T) {
	guard := newMemoryGuard()
	recorder := newMemoryRecorder()
	svc := NewService(guard, recorder, nil, nil)
	ctx := context.Background()

	input := `transaction_id,date,transaction_type,amount
TXN-1,2026-03-14,refund,$75.00
TXN-2,not a date,sale,$10.00
TXN-1,2026-03-14,sale,$5.00
TXN-3,2026-03-14,sale,abc
`
	summary, err := svc.ProcessUpload(ctx, "export.csv", []byte(input), "manager")
	require.NoError(t, err)
	require.Equal(t, 2, summary.Processed, "bad rows do not abort the batch")
	require.Equal(t, 1, summary.Flagged)
	require.Equal(t, 2, summary.Skipped)
	require.Len(t, summary.Outcomes, 4)

	require.Equal(t, OutcomeFlagged, summary.Outcomes[0].Status)
	require.Equal(t, OutcomeSkipped, summary.Outcomes[1].Status, "unparsable date rejects the row")
	require.Equal(t, OutcomeFailed, summary.Outcomes[2].Status, "duplicate transaction id")
	require.Equal(t, OutcomeProcessed, summary.Outcomes[3].Status)
	require.Contains(t, summary.Outcomes[3].Detail, "amount", "degraded amount surfaces in the outcome")

	require.True(t, recorder.txns["TXN-3"].Amount.IsZero())
}

func TestProcessUploadEmptyFile(t *testing.T) {
	svc := NewService(newMemoryGuard(), newMemoryRecorder(), nil, nil)
	_, err := svc.ProcessUpload(context.Background(), "export.csv", nil, "manager")
	require.ErrorIs(t, err, ErrParse)
}
