package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/touristroute/internal/core/domain"
	"github.com/samirrijal/touristroute/internal/core/ports"
	"github.com/samirrijal/touristroute/internal/core/viewmodel"
	"github.com/samirrijal/touristroute/internal/pkg/metrics"
)

const (
	maxCityLen = 100

	// DefaultResponseTTL matches the backend's 7-day freshness window.
	DefaultResponseTTL = 7 * 24 * 60 * 60
)

// PlannerService runs route searches and keeps each session's latest view.
type PlannerService struct {
	client    ports.RecommendationClient
	deriver   *viewmodel.Deriver
	noData    *viewmodel.Memo // shared, read-only "no data" view
	state     ports.StateStore
	searches  ports.SearchRepository
	cache     ports.CacheService
	publisher ports.EventPublisher

	cacheTTL int
	newID    func() string
	now      func() time.Time

	mu       sync.Mutex // guards seq, latest and sessions
	seq      uint64
	latest   map[string]uint64 // session -> newest issued sequence
	sessions map[string]*sessionLock
}

// sessionLock serializes commits of one session.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewPlannerService creates a new PlannerService. state, searches, cache and
// publisher may be nil.
func NewPlannerService(
	client ports.RecommendationClient,
	deriver *viewmodel.Deriver,
	state ports.StateStore,
	searches ports.SearchRepository,
	cache ports.CacheService,
	publisher ports.EventPublisher,
) *PlannerService {
	if deriver == nil {
		deriver = &viewmodel.Deriver{}
	}
	return &PlannerService{
		client:    client,
		deriver:   deriver,
		noData:    viewmodel.NewMemo(deriver),
		state:     state,
		searches:  searches,
		cache:     cache,
		publisher: publisher,
		cacheTTL:  DefaultResponseTTL,
		newID:     func() string { return uuid.NewString() },
		now:       time.Now,
		latest:    make(map[string]uint64),
		sessions:  make(map[string]*sessionLock),
	}
}

// SetCacheTTL changes how long raw responses are cached; <= 0 disables caching.
func (s *PlannerService) SetCacheTTL(seconds int) {
	s.cacheTTL = seconds
}

// Search validates the cities, fetches recommendations and derives the view.
// With a session ID the view becomes the session's latest unless a newer
// search for that session was started meanwhile, in which case
// domain.ErrSuperseded is returned and nothing is stored.
func (s *PlannerService) Search(ctx context.Context, sessionID, startCity, endCity string) (*domain.RouteView, error) {
	start, end, err := validateCities(startCity, endCity)
	if err != nil {
		return nil, err
	}

	rec := &domain.SearchRecord{
		ID:        s.newID(),
		SessionID: sessionID,
		StartCity: start,
		EndCity:   end,
		CreatedAt: s.now().UTC(),
	}
	seq := s.begin(sessionID)

	resp, hit, err := s.fetch(ctx, start, end)
	if err != nil {
		s.finish(sessionID, seq)
		status := domain.SearchFailed
		if errors.Is(err, domain.ErrMalformedResponse) {
			status = domain.SearchMalformed
		}
		s.record(ctx, rec, status, err)
		return nil, fmt.Errorf("fetch recommendations: %w", err)
	}

	view, err := s.deriver.Derive(resp)
	if err != nil {
		s.finish(sessionID, seq)
		if hit {
			s.evict(ctx, start, end)
		}
		s.record(ctx, rec, domain.SearchMalformed, err)
		return nil, err
	}
	if !hit {
		s.store(ctx, start, end, resp)
	}
	view.RequestID = rec.ID
	view.GeneratedAt = rec.CreatedAt
	rec.PlaceCount = len(view.RankedPlaces)

	if sessionID != "" {
		if err := s.commit(ctx, sessionID, seq, view); err != nil {
			if errors.Is(err, domain.ErrSuperseded) {
				s.record(ctx, rec, domain.SearchSuperseded, nil)
			} else {
				s.record(ctx, rec, domain.SearchFailed, err)
			}
			return nil, err
		}
	}

	s.record(ctx, rec, domain.SearchOK, nil)
	return view, nil
}

// LatestView returns the session's stored view, or the "no data" view.
func (s *PlannerService) LatestView(ctx context.Context, sessionID string) (*domain.RouteView, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, &domain.ValidationError{Field: "session_id", Message: "must not be empty"}
	}
	if s.state == nil {
		return s.noData.Derive(nil)
	}

	data, err := s.state.Get(ctx, viewKey(sessionID))
	if errors.Is(err, domain.ErrNotFound) {
		return s.noData.Derive(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("load view: %w", err)
	}

	var view domain.RouteView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("decode stored view: %w", err)
	}
	return &view, nil
}

func validateCities(startCity, endCity string) (string, string, error) {
	start := strings.TrimSpace(startCity)
	end := strings.TrimSpace(endCity)
	switch {
	case start == "":
		return "", "", &domain.ValidationError{Field: "start_city", Message: "must not be empty"}
	case end == "":
		return "", "", &domain.ValidationError{Field: "end_city", Message: "must not be empty"}
	case len(start) > maxCityLen:
		return "", "", &domain.ValidationError{Field: "start_city", Message: fmt.Sprintf("too long (max %d characters)", maxCityLen)}
	case len(end) > maxCityLen:
		return "", "", &domain.ValidationError{Field: "end_city", Message: fmt.Sprintf("too long (max %d characters)", maxCityLen)}
	}
	return start, end, nil
}

func (s *PlannerService) caching() bool {
	return s.cache != nil && s.cacheTTL > 0
}

// fetch reads the raw response through the cache. hit reports whether it
// came from the cache. Nothing is written here: only responses that derive
// cleanly are cached, by store.
func (s *PlannerService) fetch(ctx context.Context, start, end string) (resp *domain.RecommendationResponse, hit bool, err error) {
	if s.caching() {
		if data, err := s.cache.Get(ctx, responseCacheKey(start, end)); err == nil {
			var cached domain.RecommendationResponse
			if err := json.Unmarshal(data, &cached); err == nil {
				metrics.CacheHits.WithLabelValues("recommendations").Inc()
				cached.Cached = true
				return &cached, true, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("recommendations").Inc()
	}

	resp, err = s.client.FetchRecommendations(ctx, start, end)
	if err != nil {
		return nil, false, err
	}
	return resp, false, nil
}

func (s *PlannerService) store(ctx context.Context, start, end string, resp *domain.RecommendationResponse) {
	if !s.caching() {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, responseCacheKey(start, end), data, s.cacheTTL); err != nil {
		slog.Warn("cache response failed", "start_city", start, "end_city", end, "error", err)
	}
}

// evict drops a cached response that no longer derives.
func (s *PlannerService) evict(ctx context.Context, start, end string) {
	if err := s.cache.Delete(ctx, responseCacheKey(start, end)); err != nil {
		slog.Warn("evict cached response failed", "start_city", start, "end_city", end, "error", err)
	}
}

// begin issues the next sequence number and marks it newest for the session.
func (s *PlannerService) begin(sessionID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if sessionID != "" {
		s.latest[sessionID] = s.seq
	}
	return s.seq
}

// finish forgets the session entry if seq is still the newest.
func (s *PlannerService) finish(sessionID string, seq uint64) {
	if sessionID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest[sessionID] == seq {
		delete(s.latest, sessionID)
	}
}

// lockSession takes the session's commit lock and returns its release.
// s.mu is never held while waiting on it.
func (s *PlannerService) lockSession(sessionID string) func() {
	s.mu.Lock()
	l := s.sessions[sessionID]
	if l == nil {
		l = &sessionLock{}
		s.sessions[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(s.sessions, sessionID)
		}
		s.mu.Unlock()
	}
}

func (s *PlannerService) isLatest(sessionID string, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[sessionID] == seq
}

// commit stores view as the session's latest if seq is still the newest.
// The store write runs under the session's lock only, so a slow write
// holds up later commits of that session and nothing else.
func (s *PlannerService) commit(ctx context.Context, sessionID string, seq uint64, view *domain.RouteView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("encode view: %w", err)
	}

	unlock := s.lockSession(sessionID)
	if !s.isLatest(sessionID, seq) {
		unlock()
		metrics.SearchesSuperseded.Inc()
		return domain.ErrSuperseded
	}
	if s.state != nil {
		if err := s.state.Set(ctx, viewKey(sessionID), data); err != nil {
			unlock()
			s.finish(sessionID, seq)
			return fmt.Errorf("store view: %w", err)
		}
	}
	s.finish(sessionID, seq)
	unlock()

	if s.publisher != nil {
		if err := s.publisher.PublishViewUpdated(ctx, sessionID, view); err != nil {
			slog.Warn("publish view update failed", "session_id", sessionID, "error", err)
		}
	}
	return nil
}

func (s *PlannerService) record(ctx context.Context, rec *domain.SearchRecord, status domain.SearchStatus, cause error) {
	rec.Status = status
	if cause != nil {
		rec.Error = cause.Error()
	}
	metrics.SearchesTotal.WithLabelValues(string(status)).Inc()

	if s.searches != nil && rec.SessionID != "" {
		if err := s.searches.Insert(ctx, rec); err != nil {
			slog.Warn("record search failed", "search_id", rec.ID, "error", err)
		}
	}
	if s.publisher != nil {
		_ = s.publisher.PublishSearchRecorded(ctx, rec)
	}
}

func viewKey(sessionID string) string {
	return "view:" + sessionID
}

func responseCacheKey(start, end string) string {
	return "routeview:resp:" + strings.ToLower(start) + "|" + strings.ToLower(end)
}
