package ports

import (
	"context"
	"time"

	"github.com/samirrijal/touristroute/internal/core/domain"
)

// StateStore is an opaque blob store keyed by string.
// Get returns domain.ErrNotFound when the key is absent.
type StateStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, blob []byte) error
	Delete(ctx context.Context, key string) error
}

// StatePurger removes blobs that have not been written since cutoff.
type StatePurger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// SearchRepository persists the search history.
type SearchRepository interface {
	Insert(ctx context.Context, rec *domain.SearchRecord) error
	ListBySession(ctx context.Context, sessionID string, offset, limit int) ([]domain.SearchRecord, int, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
