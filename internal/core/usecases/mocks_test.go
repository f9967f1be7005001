package usecases_test

import (
	"context"
	"sync"
	"time"

	"github.com/samirrijal/touristroute/internal/core/domain"
)

// --- Mock RecommendationClient ---

type mockRecClient struct {
	fetchFn func(ctx context.Context, start, end string) (*domain.RecommendationResponse, error)
}

func (m *mockRecClient) FetchRecommendations(ctx context.Context, start, end string) (*domain.RecommendationResponse, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, start, end)
	}
	return nil, nil
}

// --- Mock AuthClient ---

type mockAuthClient struct {
	loginFn    func(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error)
	registerFn func(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error)
}

func (m *mockAuthClient) Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, creds)
	}
	return &domain.AuthResult{Status: "success"}, nil
}

func (m *mockAuthClient) Register(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, creds)
	}
	return &domain.AuthResult{Status: "success"}, nil
}

// --- In-memory StateStore ---

type memStore struct {
	mu     sync.Mutex
	blobs  map[string][]byte
	setErr error
	// setHook runs before each write; tests use it to stall a key.
	setHook func(key string)
}

func newMemStore() *memStore { return &memStore{blobs: map[string][]byte{}} }

func (m *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

func (m *memStore) Set(ctx context.Context, key string, blob []byte) error {
	if m.setHook != nil {
		m.setHook(key)
	}
	if m.setErr != nil {
		return m.setErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), blob...)
	return nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}

func (m *memStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.blobs))
	for k := range m.blobs {
		out = append(out, k)
	}
	return out
}

// --- Mock SearchRepository ---

type mockSearchRepo struct {
	mu       sync.Mutex
	inserted []domain.SearchRecord
	listFn   func(ctx context.Context, sid string, offset, limit int) ([]domain.SearchRecord, int, error)
	purgeFn  func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *mockSearchRepo) Insert(ctx context.Context, rec *domain.SearchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserted = append(m.inserted, *rec)
	return nil
}

func (m *mockSearchRepo) ListBySession(ctx context.Context, sid string, offset, limit int) ([]domain.SearchRecord, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, sid, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockSearchRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.purgeFn != nil {
		return m.purgeFn(ctx, cutoff)
	}
	return 0, nil
}

func (m *mockSearchRepo) statuses() []domain.SearchStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.SearchStatus, len(m.inserted))
	for i, r := range m.inserted {
		out[i] = r.Status
	}
	return out
}

// --- Mock StatePurger ---

type mockPurger struct {
	purgeFn func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *mockPurger) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return m.purgeFn(ctx, cutoff)
}

// --- In-memory CacheService ---

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (m *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

func (m *memCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

func (m *memCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Recording EventPublisher ---

type mockPublisher struct {
	mu    sync.Mutex
	views map[string]int
}

func (m *mockPublisher) PublishViewUpdated(ctx context.Context, sid string, view *domain.RouteView) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.views == nil {
		m.views = map[string]int{}
	}
	m.views[sid]++
	return nil
}

func (m *mockPublisher) PublishSearchRecorded(ctx context.Context, rec *domain.SearchRecord) error {
	return nil
}

// --- Fixtures ---

func mumbaiDelhi() *domain.RecommendationResponse {
	text := "Stop at Jaipur."
	return &domain.RecommendationResponse{
		Start: &domain.CityLocation{City: "Mumbai", Location: domain.GeoPoint{Lat: 19.0760, Lon: 72.8777}},
		End:   &domain.CityLocation{City: "Delhi", Location: domain.GeoPoint{Lat: 28.6139, Lon: 77.2090}},
		Route: domain.RouteSummary{DistanceKm: 1400, DurationHours: 24},
		Path: domain.RawPath{
			Order:       domain.OrderLonLat,
			Coordinates: [][]float64{{72.8777, 19.0760}, {75.7873, 26.9124}, {77.2090, 28.6139}},
		},
		Places: []domain.Place{
			{Name: "Hawa Mahal", Location: domain.GeoPoint{Lat: 26.9239, Lon: 75.8267}, Category: "palace"},
			{Name: "Ajanta Caves", Location: domain.GeoPoint{Lat: 20.5519, Lon: 75.7033}, Category: "heritage"},
		},
		HighlightedNames:   []string{"Hawa Mahal"},
		RecommendationText: &text,
	}
}
