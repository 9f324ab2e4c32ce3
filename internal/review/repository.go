package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/forecourt-hq/sentinel/internal/shared"
)

// Repository persists review data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the status update.
type TxRepository interface {
	GetStatusForUpdate(ctx context.Context, id string) (Status, error)
	SetStatus(ctx context.Context, id string, status Status) error
	InsertAuditEntry(ctx context.Context, entry AuditEntry) error
}

type txRepository struct {
	tx pgx.Tx
}

// ErrDuplicateTransaction indicates a transaction id already on record.
var ErrDuplicateTransaction = errors.New("review: duplicate transaction id")

// WithTx executes the callback inside a transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("review repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// InsertTransaction stores a freshly ingested transaction.
func (r *Repository) InsertTransaction(ctx context.Context, t Transaction) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO transactions (id, tx_date, register_id, employee_name, tx_type, amount, status, is_flagged, flagged_reason, store_id, batch_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW())`,
		t.ID, t.Date, t.RegisterID, t.EmployeeName, t.Type, t.Amount, string(t.Status), t.IsFlagged, nullString(t.FlaggedReason), t.StoreID, nullString(t.BatchID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateTransaction
		}
		return err
	}
	return nil
}

// List returns all transactions matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Transaction, error) {
	query := `SELECT id, tx_date, register_id, employee_name, tx_type, amount, status, is_flagged, COALESCE(flagged_reason,''), store_id, ai_risk_score, COALESCE(ai_risk_note,''), created_at
FROM transactions`
	var (
		clauses []string
		args    []any
	)
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(id ILIKE $%d OR employee_name ILIKE $%d)", n, n))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		clauses = append(clauses, fmt.Sprintf("LOWER(tx_type) = LOWER($%d)", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY tx_date DESC, id DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txns := []Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// Get loads one transaction with its linked clip and notes.
func (r *Repository) Get(ctx context.Context, id string) (Detail, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, tx_date, register_id, employee_name, tx_type, amount, status, is_flagged, COALESCE(flagged_reason,''), store_id, ai_risk_score, COALESCE(ai_risk_note,''), created_at
FROM transactions WHERE id=$1`, id)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Detail{}, shared.ErrNotFound
		}
		return Detail{}, err
	}

	detail := Detail{Transaction: t, Notes: []Note{}}

	clipRow := r.pool.QueryRow(ctx, `SELECT id, COALESCE(transaction_id,''), stored_name, filename, size_bytes, duration_seconds, uploaded_by, created_at
FROM video_clips WHERE transaction_id=$1 ORDER BY created_at DESC LIMIT 1`, id)
	var clip Clip
	err = clipRow.Scan(&clip.ID, &clip.TransactionID, &clip.StoredName, &clip.Filename, &clip.Size, &clip.Duration, &clip.UploadedBy, &clip.CreatedAt)
	switch {
	case err == nil:
		detail.Clip = &clip
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return Detail{}, err
	}

	noteRows, err := r.pool.Query(ctx, `SELECT id, transaction_id, content, author, created_at FROM notes WHERE transaction_id=$1 ORDER BY created_at ASC`, id)
	if err != nil {
		return Detail{}, err
	}
	defer noteRows.Close()
	for noteRows.Next() {
		var n Note
		if err := noteRows.Scan(&n.ID, &n.TransactionID, &n.Content, &n.Author, &n.CreatedAt); err != nil {
			return Detail{}, err
		}
		detail.Notes = append(detail.Notes, n)
	}
	return detail, noteRows.Err()
}

// InsertNote appends an immutable note to a transaction.
func (r *Repository) InsertNote(ctx context.Context, note Note) (Note, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO notes (transaction_id, content, author, created_at) VALUES ($1,$2,$3,NOW()) RETURNING id, created_at`,
		note.TransactionID, note.Content, note.Author).Scan(&note.ID, &note.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Note{}, shared.ErrNotFound
		}
		return Note{}, err
	}
	return note, nil
}

// Stats computes dashboard counters.
func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	dayStart := time.Now().UTC().Truncate(24 * time.Hour)
	err := r.pool.QueryRow(ctx, `SELECT
    COUNT(*) FILTER (WHERE status='pending'),
    COUNT(*) FILTER (WHERE is_flagged AND created_at >= $1),
    COUNT(*) FILTER (WHERE status='approved'),
    (SELECT COUNT(*) FROM video_clips)
FROM transactions`, dayStart).Scan(&s.Pending, &s.FlaggedToday, &s.Approved, &s.VideoClips)
	return s, err
}

// AuditTrail lists audit entries for a transaction, oldest first.
func (r *Repository) AuditTrail(ctx context.Context, transactionID string) ([]AuditEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, transaction_id, action, COALESCE(previous_status,''), actor, detail, created_at
FROM audit_logs WHERE transaction_id=$1 ORDER BY created_at ASC, id ASC`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []AuditEntry{}
	for rows.Next() {
		var e AuditEntry
		var action, prev string
		if err := rows.Scan(&e.ID, &e.TransactionID, &action, &prev, &e.Actor, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = Status(action)
		e.PreviousStatus = Status(prev)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *txRepository) GetStatusForUpdate(ctx context.Context, id string) (Status, error) {
	var status string
	err := r.tx.QueryRow(ctx, `SELECT status FROM transactions WHERE id=$1 FOR UPDATE`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	return Status(status), nil
}

func (r *txRepository) SetStatus(ctx context.Context, id string, status Status) error {
	_, err := r.tx.Exec(ctx, `UPDATE transactions SET status=$2 WHERE id=$1`, id, string(status))
	return err
}

func (r *txRepository) InsertAuditEntry(ctx context.Context, entry AuditEntry) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO audit_logs (transaction_id, action, previous_status, actor, detail, created_at)
VALUES ($1,$2,$3,$4,$5,NOW())`,
		entry.TransactionID, string(entry.Action), nullString(string(entry.PreviousStatus)), entry.Actor, entry.Detail)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var (
		t      Transaction
		status string
		amount decimal.Decimal
	)
	err := row.Scan(&t.ID, &t.Date, &t.RegisterID, &t.EmployeeName, &t.Type, &amount, &status, &t.IsFlagged, &t.FlaggedReason, &t.StoreID, &t.AIRiskScore, &t.AIRiskNote, &t.CreatedAt)
	if err != nil {
		return Transaction{}, err
	}
	t.Amount = amount
	t.Status = Status(status)
	return t, nil
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
