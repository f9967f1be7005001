package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samirrijal/touristroute/internal/core/domain"
	"github.com/samirrijal/touristroute/internal/core/ports"
)

// HistoryService exposes the search history and its retention.
type HistoryService struct {
	searches ports.SearchRepository
	state    ports.StatePurger
}

// NewHistoryService creates a new HistoryService. state may be nil.
func NewHistoryService(searches ports.SearchRepository, state ports.StatePurger) *HistoryService {
	return &HistoryService{searches: searches, state: state}
}

// List returns one page of a session's searches, newest first, and the total.
func (s *HistoryService) List(ctx context.Context, sessionID string, offset, limit int) ([]domain.SearchRecord, int, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, 0, &domain.ValidationError{Field: "session_id", Message: "must not be empty"}
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.searches.ListBySession(ctx, sessionID, offset, limit)
}

// PurgeResult counts what a retention run removed.
type PurgeResult struct {
	Searches int64 `json:"searches"`
	States   int64 `json:"states"`
}

// Purge deletes searches and state blobs older than maxAge.
func (s *HistoryService) Purge(ctx context.Context, maxAge time.Duration) (*PurgeResult, error) {
	if maxAge <= 0 {
		return nil, &domain.ValidationError{Field: "max_age", Message: "must be positive"}
	}
	cutoff := time.Now().UTC().Add(-maxAge)

	var res PurgeResult
	n, err := s.searches.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("purge searches: %w", err)
	}
	res.Searches = n

	if s.state != nil {
		n, err = s.state.PurgeOlderThan(ctx, cutoff)
		if err != nil {
			return &res, fmt.Errorf("purge state: %w", err)
		}
		res.States = n
	}
	return &res, nil
}
