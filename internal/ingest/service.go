package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/forecourt-hq/sentinel/internal/review"
)

// GuardPort abstracts the duplicate-upload guard.
type GuardPort interface {
	CheckAndRecord(ctx context.Context, hash, filename, actor string) (string, error)
	Release(ctx context.Context, batchID string) error
}

// RecorderPort persists flagged transactions.
type RecorderPort interface {
	Record(ctx context.Context, draft review.TransactionDraft) (review.Transaction, error)
}

// RiskEnqueuer submits a background risk-scan request after ingestion.
type RiskEnqueuer interface {
	EnqueueRiskScan(ctx context.Context, batchID string) error
}

// RowOutcome reports what happened to a single source row. One bad row never
// aborts the batch; its failure is returned here instead of being swallowed.
type RowOutcome struct {
	Row           int    `json:"row"`
	TransactionID string `json:"transactionId,omitempty"`
	Status        string `json:"status"`
	Detail        string `json:"detail,omitempty"`
}

// Row outcome statuses.
const (
	OutcomeProcessed = "processed"
	OutcomeFlagged   = "flagged"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Summary aggregates the result of one upload.
type Summary struct {
	BatchID   string       `json:"batchId"`
	Processed int          `json:"processed"`
	Flagged   int          `json:"flagged"`
	Skipped   int          `json:"skipped"`
	Outcomes  []RowOutcome `json:"outcomes"`
}

// Service runs the ingestion pipeline: guard, parse, normalize, flag, store.
type Service struct {
	guard    GuardPort
	recorder RecorderPort
	risk     RiskEnqueuer
	logger   *slog.Logger
}

// NewService builds Service.
func NewService(guard GuardPort, recorder RecorderPort, risk RiskEnqueuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{guard: guard, recorder: recorder, risk: risk, logger: logger}
}

// ProcessUpload ingests one POS export file.
func (s *Service) ProcessUpload(ctx context.Context, filename string, content []byte, actor string) (Summary, error) {
	if len(content) == 0 {
		return Summary{}, fmt.Errorf("%w: empty file", ErrParse)
	}

	hash := HashContent(content)
	batchID, err := s.guard.CheckAndRecord(ctx, hash, filename, actor)
	if err != nil {
		return Summary{}, err
	}

	rows, err := ParseFile(bytes.NewReader(content), filename)
	if err != nil {
		if relErr := s.guard.Release(ctx, batchID); relErr != nil {
			s.logger.Warn("release ingest batch", slog.String("batch", batchID), slog.Any("error", relErr))
		}
		return Summary{}, err
	}

	summary := Summary{BatchID: batchID, Outcomes: []RowOutcome{}}
	for i, row := range rows {
		outcome := s.processRow(ctx, batchID, i+1, row)
		switch outcome.Status {
		case OutcomeProcessed:
			summary.Processed++
		case OutcomeFlagged:
			summary.Processed++
			summary.Flagged++
		case OutcomeSkipped, OutcomeFailed:
			summary.Skipped++
		}
		summary.Outcomes = append(summary.Outcomes, outcome)
	}

	s.logger.Info("pos upload ingested",
		slog.String("batch", batchID),
		slog.String("filename", filename),
		slog.Int("rows", len(rows)),
		slog.Int("processed", summary.Processed),
		slog.Int("flagged", summary.Flagged),
		slog.Int("skipped", summary.Skipped),
	)

	if s.risk != nil && summary.Processed > 0 {
		if err := s.risk.EnqueueRiskScan(ctx, batchID); err != nil {
			// Risk scoring is best effort; the rule engine already ran.
			s.logger.Warn("enqueue risk scan", slog.String("batch", batchID), slog.Any("error", err))
		}
	}

	return summary, nil
}

func (s *Service) processRow(ctx context.Context, batchID string, rowNum int, row RawRow) RowOutcome {
	draft, issues := Normalize(row)
	draft.BatchID = batchID

	detail := ""
	for _, issue := range issues {
		if issue.Fatal {
			return RowOutcome{Row: rowNum, Status: OutcomeSkipped, Detail: issue.String()}
		}
		if detail != "" {
			detail += "; "
		}
		detail += issue.String()
	}

	txn, err := s.recorder.Record(ctx, draft)
	if err != nil {
		if errors.Is(err, review.ErrDuplicateTransaction) {
			return RowOutcome{Row: rowNum, TransactionID: draft.ID, Status: OutcomeFailed, Detail: "duplicate transaction id"}
		}
		s.logger.Warn("record transaction", slog.Int("row", rowNum), slog.Any("error", err))
		return RowOutcome{Row: rowNum, TransactionID: draft.ID, Status: OutcomeFailed, Detail: "storage failure"}
	}

	status := OutcomeProcessed
	if txn.IsFlagged {
		status = OutcomeFlagged
		if detail != "" {
			detail += "; "
		}
		detail += txn.FlaggedReason
	}
	return RowOutcome{Row: rowNum, TransactionID: txn.ID, Status: status, Detail: detail}
}
