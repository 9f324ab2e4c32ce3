package risk

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/forecourt-hq/sentinel/internal/review"
)

// RepositoryPort abstracts score persistence.
type RepositoryPort interface {
	ListByBatch(ctx context.Context, batchID string) ([]review.Transaction, error)
	SaveAssessment(ctx context.Context, transactionID string, score float64, note string) error
}

// Service scores ingested transactions in paced batches. Model failures never
// fail a scan: the affected chunk falls back to rule-derived scores.
type Service struct {
	repo      RepositoryPort
	scorer    Scorer
	logger    *slog.Logger
	batchSize int
	delay     time.Duration
	sleep     func(context.Context, time.Duration) error
}

// NewService builds Service.
func NewService(repo RepositoryPort, scorer Scorer, logger *slog.Logger, batchSize int, delay time.Duration) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Service{
		repo:      repo,
		scorer:    scorer,
		logger:    logger,
		batchSize: batchSize,
		delay:     delay,
		sleep:     sleepCtx,
	}
}

// ScanBatch scores every unscored transaction of one ingest batch.
func (s *Service) ScanBatch(ctx context.Context, batchID string) error {
	txns, err := s.repo.ListByBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if len(txns) == 0 {
		return nil
	}

	scored := 0
	fallback := 0
	for start := 0; start < len(txns); start += s.batchSize {
		if start > 0 && s.delay > 0 {
			if err := s.sleep(ctx, s.delay); err != nil {
				return err
			}
		}
		end := start + s.batchSize
		if end > len(txns) {
			end = len(txns)
		}
		chunk := txns[start:end]

		assessments, err := s.scorer.Score(ctx, chunk)
		if err != nil {
			s.logger.Warn("risk scorer unavailable, using rule scores",
				slog.String("batch", batchID), slog.Any("error", err))
			assessments = ruleAssessments(chunk)
			fallback += len(chunk)
		}

		byID := make(map[string]Assessment, len(assessments))
		for _, a := range assessments {
			byID[a.TransactionID] = a
		}
		for _, t := range chunk {
			a, ok := byID[t.ID]
			if !ok {
				a = ruleAssessment(t)
			}
			if err := s.repo.SaveAssessment(ctx, t.ID, a.Score, a.Note); err != nil {
				return err
			}
			scored++
		}
	}

	s.logger.Info("risk scan complete",
		slog.String("batch", batchID),
		slog.Int("scored", scored),
		slog.Int("fallback", fallback),
	)
	return nil
}

// RuleScorer scores with the local rules only, for deployments without model
// credentials.
type RuleScorer struct{}

// Score derives assessments from the flag signals.
func (RuleScorer) Score(_ context.Context, txns []review.Transaction) ([]Assessment, error) {
	return ruleAssessments(txns), nil
}

var highValueLine = decimal.NewFromInt(200)

// ruleAssessment derives a score from the same signals the flag engine uses.
func ruleAssessment(t review.Transaction) Assessment {
	score := 0.1
	note := "No risk signals"
	switch {
	case t.IsFlagged && t.Amount.GreaterThan(highValueLine):
		score = 0.8
		note = t.FlaggedReason
	case t.IsFlagged:
		score = 0.6
		note = t.FlaggedReason
	case t.Amount.GreaterThan(highValueLine):
		score = 0.4
		note = "High amount, not flagged"
	}
	return Assessment{TransactionID: t.ID, Score: score, Note: note}
}

func ruleAssessments(txns []review.Transaction) []Assessment {
	out := make([]Assessment, 0, len(txns))
	for _, t := range txns {
		out = append(out, ruleAssessment(t))
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
