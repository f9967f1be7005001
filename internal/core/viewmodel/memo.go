package viewmodel

import (
	"sync"

	"github.com/samirrijal/touristroute/internal/core/domain"
)

// Memo remembers the view derived from the last input pointer. Callers must
// treat returned views as read-only since repeated calls share them.
type Memo struct {
	deriver *Deriver

	mu       sync.Mutex
	lastIn   *domain.RecommendationResponse
	lastView *domain.RouteView
	hasLast  bool
}

// NewMemo wraps d.
func NewMemo(d *Deriver) *Memo {
	return &Memo{deriver: d}
}

// Derive returns the cached view when resp is the same pointer as last time.
// Errors are not cached.
func (m *Memo) Derive(resp *domain.RecommendationResponse) (*domain.RouteView, error) {
	m.mu.Lock()
	if m.hasLast && m.lastIn == resp {
		v := m.lastView
		m.mu.Unlock()
		return v, nil
	}
	m.mu.Unlock()

	v, err := m.deriver.Derive(resp)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.lastIn, m.lastView, m.hasLast = resp, v, true
	m.mu.Unlock()
	return v, nil
}
