package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/touristroute/internal/core/domain"
)

// StateRepo implements ports.StateStore and ports.StatePurger on state_blobs.
type StateRepo struct {
	db *DB
}

func NewStateRepo(db *DB) *StateRepo {
	return &StateRepo{db: db}
}

func (r *StateRepo) Get(ctx context.Context, key string) ([]byte, error) {
	var blob []byte
	err := r.db.Pool.QueryRow(ctx, `SELECT blob FROM state_blobs WHERE key = $1`, key).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get state %s: %w", key, err)
	}
	return blob, nil
}

func (r *StateRepo) Set(ctx context.Context, key string, blob []byte) error {
	_, err := r.db.Pool.Exec(ctx, `
        INSERT INTO state_blobs (key, blob, updated_at)
        VALUES ($1, $2, now())
        ON CONFLICT (key) DO UPDATE SET
            blob = EXCLUDED.blob,
            updated_at = EXCLUDED.updated_at
    `, key, blob)
	if err != nil {
		return fmt.Errorf("set state %s: %w", key, err)
	}
	return nil
}

func (r *StateRepo) Delete(ctx context.Context, key string) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM state_blobs WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete state %s: %w", key, err)
	}
	return nil
}

// PurgeOlderThan removes blobs not written since cutoff.
func (r *StateRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM state_blobs WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge state: %w", err)
	}
	return tag.RowsAffected(), nil
}
