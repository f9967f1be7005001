package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/touristroute/internal/core/domain"
)

// SearchRepo implements ports.SearchRepository.
type SearchRepo struct {
	db *DB
}

func NewSearchRepo(db *DB) *SearchRepo {
	return &SearchRepo{db: db}
}

func (r *SearchRepo) Insert(ctx context.Context, rec *domain.SearchRecord) error {
	_, err := r.db.Pool.Exec(ctx, `
        INSERT INTO searches (id, session_id, start_city, end_city, status, place_count, error, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (id) DO NOTHING
    `, rec.ID, rec.SessionID, rec.StartCity, rec.EndCity, string(rec.Status), rec.PlaceCount, rec.Error, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert search: %w", err)
	}
	return nil
}

// ListBySession returns one page of a session's searches, newest first, and
// the total count. Both queries run in a single round trip.
func (r *SearchRepo) ListBySession(ctx context.Context, sessionID string, offset, limit int) ([]domain.SearchRecord, int, error) {
	batch := &pgx.Batch{}
	batch.Queue(`SELECT count(*) FROM searches WHERE session_id = $1`, sessionID)
	batch.Queue(`
        SELECT id::text, session_id, start_city, end_city, status, place_count, error, created_at
        FROM searches
        WHERE session_id = $1
        ORDER BY created_at DESC, id
        OFFSET $2 LIMIT $3
    `, sessionID, offset, limit)

	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()

	var total int
	if err := br.QueryRow().Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count searches: %w", err)
	}

	rows, err := br.Query()
	if err != nil {
		return nil, 0, fmt.Errorf("list searches: %w", err)
	}
	defer rows.Close()

	recs := make([]domain.SearchRecord, 0, limit)
	for rows.Next() {
		var rec domain.SearchRecord
		var status string
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.StartCity, &rec.EndCity,
			&status, &rec.PlaceCount, &rec.Error, &rec.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan search: %w", err)
		}
		rec.Status = domain.SearchStatus(status)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

// PurgeOlderThan deletes searches created before cutoff.
func (r *SearchRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM searches WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge searches: %w", err)
	}
	return tag.RowsAffected(), nil
}
