package video

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forecourt-hq/sentinel/internal/review"
	"github.com/forecourt-hq/sentinel/internal/shared"
)

// Repository persists clip metadata in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertClip stores clip metadata.
func (r *Repository) InsertClip(ctx context.Context, clip review.Clip) (review.Clip, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO video_clips (transaction_id, stored_name, filename, size_bytes, duration_seconds, uploaded_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW()) RETURNING id, created_at`,
		nullString(clip.TransactionID), clip.StoredName, clip.Filename, clip.Size, clip.Duration, clip.UploadedBy).
		Scan(&clip.ID, &clip.CreatedAt)
	if err != nil {
		return review.Clip{}, err
	}
	return clip, nil
}

// GetClip loads clip metadata by id.
func (r *Repository) GetClip(ctx context.Context, id int64) (review.Clip, error) {
	var clip review.Clip
	err := r.pool.QueryRow(ctx, `SELECT id, COALESCE(transaction_id,''), stored_name, filename, size_bytes, duration_seconds, uploaded_by, created_at
FROM video_clips WHERE id=$1`, id).
		Scan(&clip.ID, &clip.TransactionID, &clip.StoredName, &clip.Filename, &clip.Size, &clip.Duration, &clip.UploadedBy, &clip.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return review.Clip{}, shared.ErrNotFound
		}
		return review.Clip{}, err
	}
	return clip, nil
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ RepositoryPort = (*Repository)(nil)
