package risk

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/forecourt-hq/sentinel/internal/review"
)

// Repository reads scan candidates and writes scores back to transactions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListByBatch returns the transactions of one ingest batch that have not been
// scored yet, oldest first.
func (r *Repository) ListByBatch(ctx context.Context, batchID string) ([]review.Transaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, tx_date, register_id, employee_name, tx_type, amount, is_flagged, COALESCE(flagged_reason,'')
FROM transactions WHERE batch_id=$1 AND ai_risk_score IS NULL ORDER BY tx_date ASC, id ASC`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txns := []review.Transaction{}
	for rows.Next() {
		var (
			t      review.Transaction
			amount decimal.Decimal
		)
		if err := rows.Scan(&t.ID, &t.Date, &t.RegisterID, &t.EmployeeName, &t.Type, &amount, &t.IsFlagged, &t.FlaggedReason); err != nil {
			return nil, err
		}
		t.Amount = amount
		t.BatchID = batchID
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// SaveAssessment stores a score and note on a transaction.
func (r *Repository) SaveAssessment(ctx context.Context, transactionID string, score float64, note string) error {
	_, err := r.pool.Exec(ctx, `UPDATE transactions SET ai_risk_score=$2, ai_risk_note=$3 WHERE id=$1`,
		transactionID, score, note)
	return err
}
