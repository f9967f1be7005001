package valkey

import (
	"context"
)

const statePrefix = "routeview:state:"

// StateStore implements ports.StateStore on top of the cache connection.
// Entries expire after ttlSeconds when it is positive.
type StateStore struct {
	cache      *Cache
	ttlSeconds int
}

func NewStateStore(cache *Cache, ttlSeconds int) *StateStore {
	return &StateStore{cache: cache, ttlSeconds: ttlSeconds}
}

func (s *StateStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.cache.Get(ctx, statePrefix+key)
}

func (s *StateStore) Set(ctx context.Context, key string, blob []byte) error {
	return s.cache.Set(ctx, statePrefix+key, blob, s.ttlSeconds)
}

func (s *StateStore) Delete(ctx context.Context, key string) error {
	return s.cache.Delete(ctx, statePrefix+key)
}
