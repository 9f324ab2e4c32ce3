package camera

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forecourt-hq/sentinel/internal/shared"
)

// Repository persists cameras in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, cam Camera) (Camera, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO cameras (name, host, port, username, model, enabled, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW()) RETURNING id, created_at, updated_at`,
		cam.Name, cam.Host, cam.Port, cam.Username, cam.Model, cam.Enabled).
		Scan(&cam.ID, &cam.CreatedAt, &cam.UpdatedAt)
	if err != nil {
		return Camera{}, err
	}
	return cam, nil
}

func (r *Repository) Update(ctx context.Context, cam Camera) (Camera, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE cameras SET name=$2, host=$3, port=$4, username=$5, model=$6, enabled=$7, updated_at=NOW() WHERE id=$1`,
		cam.ID, cam.Name, cam.Host, cam.Port, cam.Username, cam.Model, cam.Enabled)
	if err != nil {
		return Camera{}, err
	}
	if tag.RowsAffected() == 0 {
		return Camera{}, shared.ErrNotFound
	}
	return r.Get(ctx, cam.ID)
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cameras WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Camera, error) {
	var cam Camera
	err := r.pool.QueryRow(ctx, `SELECT id, name, host, port, COALESCE(username,''), COALESCE(model,''), enabled, created_at, updated_at FROM cameras WHERE id=$1`, id).
		Scan(&cam.ID, &cam.Name, &cam.Host, &cam.Port, &cam.Username, &cam.Model, &cam.Enabled, &cam.CreatedAt, &cam.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Camera{}, shared.ErrNotFound
		}
		return Camera{}, err
	}
	return cam, nil
}

func (r *Repository) List(ctx context.Context) ([]Camera, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, host, port, COALESCE(username,''), COALESCE(model,''), enabled, created_at, updated_at FROM cameras ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cams := []Camera{}
	for rows.Next() {
		var cam Camera
		if err := rows.Scan(&cam.ID, &cam.Name, &cam.Host, &cam.Port, &cam.Username, &cam.Model, &cam.Enabled, &cam.CreatedAt, &cam.UpdatedAt); err != nil {
			return nil, err
		}
		cams = append(cams, cam)
	}
	return cams, rows.Err()
}

var _ RepositoryPort = (*Repository)(nil)
