package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateFile indicates the upload's content hash was seen before.
var ErrDuplicateFile = errors.New("ingest: file already processed")

// UploadGuard rejects re-processing of previously ingested files. Hashes are
// persisted with the ingestion batch so the guard survives restarts; the old
// in-memory set forgot everything on redeploy.
type UploadGuard struct {
	pool *pgxpool.Pool
}

// NewUploadGuard constructs the guard.
func NewUploadGuard(pool *pgxpool.Pool) *UploadGuard {
	return &UploadGuard{pool: pool}
}

// HashContent computes the order-sensitive whole-file content hash.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// CheckAndRecord registers the hash and returns the new batch id, or
// ErrDuplicateFile when the hash is already on record.
func (g *UploadGuard) CheckAndRecord(ctx context.Context, hash, filename, actor string) (string, error) {
	if g == nil {
		return "", errors.New("upload guard not initialised")
	}
	if hash == "" {
		return "", errors.New("content hash required")
	}
	batchID := uuid.NewString()
	_, err := g.pool.Exec(ctx, `INSERT INTO ingest_batches (id, content_hash, filename, uploaded_by, created_at) VALUES ($1,$2,$3,$4,NOW())`,
		batchID, hash, filename, actor)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", ErrDuplicateFile
		}
		return "", err
	}
	return batchID, nil
}

// Release removes a batch record, used to roll back failed processing so the
// same file can be retried.
func (g *UploadGuard) Release(ctx context.Context, batchID string) error {
	if g == nil || batchID == "" {
		return nil
	}
	_, err := g.pool.Exec(ctx, `DELETE FROM ingest_batches WHERE id=$1`, batchID)
	return err
}

// Cleanup removes batch records older than the retention window.
func (g *UploadGuard) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if g == nil {
		return nil
	}
	cutoff := time.Now().Add(-olderThan)
	_, err := g.pool.Exec(ctx, `DELETE FROM ingest_batches WHERE created_at < $1`, cutoff)
	return err
}
