package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gameshop-hub/internal/repository"
)

type settingsRepository struct {
	pool *pgxpool.Pool
}

func NewSettingsRepository(pool *pgxpool.Pool) repository.SettingsRepository {
	return &settingsRepository{pool: pool}
}

var _ repository.SettingsRepository = (*settingsRepository)(nil)

func (r *settingsRepository) Get(ctx context.Context, kind string) ([]byte, error) {
	var data []byte
	err := r.pool.QueryRow(ctx, `SELECT data FROM settings WHERE kind = $1`, kind).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, kind string, data []byte) error {
	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO settings (kind, data, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (kind) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		kind,
		data,
		time.Now().UTC(),
	)
	return err
}
