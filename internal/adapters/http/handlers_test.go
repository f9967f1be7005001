package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/touristroute/internal/adapters/http"
	"github.com/samirrijal/touristroute/internal/core/domain"
	"github.com/samirrijal/touristroute/internal/core/usecases"
	"github.com/samirrijal/touristroute/internal/core/viewmodel"
)

const testSecret = "test-secret"

// ---- Mocks ----

type mockRecClient struct {
	fetchFn func(ctx context.Context, start, end string) (*domain.RecommendationResponse, error)
}

func (m *mockRecClient) FetchRecommendations(ctx context.Context, start, end string) (*domain.RecommendationResponse, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, start, end)
	}
	return mumbaiDelhi(), nil
}

type mockAuthClient struct {
	loginFn func(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error)
}

func (m *mockAuthClient) Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, creds)
	}
	return &domain.AuthResult{Status: "success", Message: "Login successful"}, nil
}

func (m *mockAuthClient) Register(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error) {
	return &domain.AuthResult{Status: "success", Message: "User registered successfully"}, nil
}

type memStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
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

type memSearchRepo struct {
	mu   sync.Mutex
	recs []domain.SearchRecord
}

func (m *memSearchRepo) Insert(ctx context.Context, rec *domain.SearchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, *rec)
	return nil
}

func (m *memSearchRepo) ListBySession(ctx context.Context, sessionID string, offset, limit int) ([]domain.SearchRecord, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []domain.SearchRecord
	for _, r := range m.recs {
		if r.SessionID == sessionID {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := len(matched)
	if offset >= total {
		return []domain.SearchRecord{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (m *memSearchRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// ---- Fixtures ----

func mumbaiDelhi() *domain.RecommendationResponse {
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
		HighlightedNames: []string{"Hawa Mahal"},
	}
}

// ---- Test helpers ----

type testEnv struct {
	client   *mockRecClient
	auth     *mockAuthClient
	store    *memStore
	searches *memSearchRepo
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*testEnv)) *handler.Dependencies {
	env := &testEnv{
		client:   &mockRecClient{},
		auth:     &mockAuthClient{},
		store:    newMemStore(),
		searches: &memSearchRepo{},
	}
	for _, o := range opts {
		o(env)
	}
	deriver := viewmodel.NewDeriver(viewmodel.DefaultFallbackCenter)
	return &handler.Dependencies{
		Planner: usecases.NewPlannerService(env.client, deriver, env.store, env.searches, nil, nil),
		State:   usecases.NewStateService(env.store, 0),
		History: usecases.NewHistoryService(env.searches, nil),
		Auth:    usecases.NewAuthService(env.auth, testSecret, time.Hour),
	}
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func postJSON(path, body string) *nethttp.Request {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeError(t *testing.T, body io.Reader) handler.APIError {
	t.Helper()
	var apiErr handler.APIError
	if err := json.NewDecoder(body).Decode(&apiErr); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return apiErr
}

// ---- Route view tests ----

func TestRouteView_Success(t *testing.T) {
	app := setupApp(makeDeps())

	req := postJSON("/v1/route-views", `{"start_city":"Mumbai","end_city":"Delhi"}`)
	req.Header.Set("X-Session-ID", "s1")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var view domain.RouteView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatal(err)
	}
	if len(view.RankedPlaces) != 2 {
		t.Fatalf("expected 2 ranked places, got %d", len(view.RankedPlaces))
	}
	if len(view.HighlightsOnly) != 1 || view.HighlightsOnly[0].Place.Name != "Hawa Mahal" {
		t.Errorf("expected Hawa Mahal highlighted, got %+v", view.HighlightsOnly)
	}
	if len(view.RoutePath) != 3 {
		t.Errorf("expected 3 path points, got %d", len(view.RoutePath))
	}
	if view.RoutePath[0].Lat != 19.0760 || view.RoutePath[0].Lon != 72.8777 {
		t.Errorf("expected first path point in Mumbai, got %+v", view.RoutePath[0])
	}
	if view.RequestID == "" {
		t.Error("expected request id")
	}
}

func TestRouteView_StoredAsSessionView(t *testing.T) {
	app := setupApp(makeDeps())

	req := postJSON("/v1/route-views", `{"start_city":"Mumbai","end_city":"Delhi"}`)
	req.Header.Set("X-Session-ID", "s1")
	if resp, _ := app.Test(req, -1); resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/sessions/s1/view", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var view domain.RouteView
	json.NewDecoder(resp.Body).Decode(&view)
	if view.Start == nil || view.Start.City != "Mumbai" {
		t.Errorf("expected stored view for Mumbai, got %+v", view.Start)
	}

	// other sessions are unaffected
	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/sessions/s2/view", nil), -1)
	var other domain.RouteView
	json.NewDecoder(resp.Body).Decode(&other)
	if !other.Empty() {
		t.Errorf("expected empty view for s2, got %+v", other)
	}
}

func TestRouteView_EmptyCity(t *testing.T) {
	called := false
	app := setupApp(makeDeps(func(e *testEnv) {
		e.client.fetchFn = func(ctx context.Context, start, end string) (*domain.RecommendationResponse, error) {
			called = true
			return mumbaiDelhi(), nil
		}
	}))

	resp, _ := app.Test(postJSON("/v1/route-views", `{"start_city":"  ","end_city":"Delhi"}`), -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	apiErr := decodeError(t, resp.Body)
	if apiErr.Code != "bad_request" || !strings.Contains(apiErr.Message, "start_city") {
		t.Errorf("unexpected error %+v", apiErr)
	}
	if called {
		t.Error("backend must not be called for invalid input")
	}
}

func TestRouteView_InvalidBody(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(postJSON("/v1/route-views", `{"start_city":`), -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRouteView_InvalidSessionHeader(t *testing.T) {
	app := setupApp(makeDeps())

	req := postJSON("/v1/route-views", `{"start_city":"Mumbai","end_city":"Delhi"}`)
	req.Header.Set("X-Session-ID", "no spaces allowed")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRouteView_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		resp   *domain.RecommendationResponse
		status int
		code   string
	}{
		{
			name:   "network",
			err:    &domain.NetworkError{Op: "fetch recommendations", Err: errors.New("connection refused")},
			status: 502,
			code:   "upstream_unavailable",
		},
		{
			name:   "network error from request deadline",
			err:    &domain.NetworkError{Op: "fetch recommendations", Err: context.DeadlineExceeded},
			status: 504,
			code:   "timeout",
		},
		{
			name:   "server",
			err:    &domain.ServerError{Op: "fetch recommendations", StatusCode: 500, Message: "Could not find coordinates"},
			status: 502,
			code:   "upstream_error",
		},
		{
			name:   "malformed from decoder",
			err:    domain.Malformed("invalid JSON"),
			status: 422,
			code:   "malformed_response",
		},
		{
			name: "malformed from deriver",
			resp: func() *domain.RecommendationResponse {
				r := mumbaiDelhi()
				r.Places[0].Location.Lat = 200
				return r
			}(),
			status: 422,
			code:   "malformed_response",
		},
		{
			name:   "unexpected",
			err:    errors.New("boom"),
			status: 500,
			code:   "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupApp(makeDeps(func(e *testEnv) {
				e.client.fetchFn = func(ctx context.Context, start, end string) (*domain.RecommendationResponse, error) {
					return tt.resp, tt.err
				}
			}))

			resp, _ := app.Test(postJSON("/v1/route-views", `{"start_city":"Mumbai","end_city":"Delhi"}`), -1)
			if resp.StatusCode != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.StatusCode)
			}
			if apiErr := decodeError(t, resp.Body); apiErr.Code != tt.code {
				t.Errorf("expected code %q, got %q", tt.code, apiErr.Code)
			}
		})
	}
}

func TestRouteView_NoResultsReturnsNoDataView(t *testing.T) {
	msg := "No tourist places found within 1km of route."
	app := setupApp(makeDeps(func(e *testEnv) {
		e.client.fetchFn = func(ctx context.Context, start, end string) (*domain.RecommendationResponse, error) {
			text := msg
			return &domain.RecommendationResponse{NoResults: true, RecommendationText: &text}, nil
		}
	}))

	resp, _ := app.Test(postJSON("/v1/route-views", `{"start_city":"Mumbai","end_city":"Delhi"}`), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var view domain.RouteView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !view.Empty() {
		t.Errorf("expected no-data view, got %+v", view)
	}
	if view.RecommendationText == nil || *view.RecommendationText != msg {
		t.Errorf("expected backend message, got %v", view.RecommendationText)
	}
}

func TestRouteView_FailedSearchKeepsPreviousView(t *testing.T) {
	fail := false
	app := setupApp(makeDeps(func(e *testEnv) {
		e.client.fetchFn = func(ctx context.Context, start, end string) (*domain.RecommendationResponse, error) {
			if fail {
				return nil, &domain.ServerError{Op: "fetch recommendations", StatusCode: 500}
			}
			return mumbaiDelhi(), nil
		}
	}))

	req := postJSON("/v1/route-views", `{"start_city":"Mumbai","end_city":"Delhi"}`)
	req.Header.Set("X-Session-ID", "s1")
	app.Test(req, -1)

	fail = true
	req = postJSON("/v1/route-views", `{"start_city":"Pune","end_city":"Goa"}`)
	req.Header.Set("X-Session-ID", "s1")
	if resp, _ := app.Test(req, -1); resp.StatusCode != 502 {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/sessions/s1/view", nil), -1)
	var view domain.RouteView
	json.NewDecoder(resp.Body).Decode(&view)
	if view.Start == nil || view.Start.City != "Mumbai" {
		t.Errorf("expected previous view to survive, got %+v", view.Start)
	}
}

func TestRouteView_Timeout(t *testing.T) {
	deps := makeDeps(func(e *testEnv) {
		e.client.fetchFn = func(ctx context.Context, start, end string) (*domain.RecommendationResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}
	})
	deps.RequestTimeout = 50 * time.Millisecond
	app := setupApp(deps)

	resp, _ := app.Test(postJSON("/v1/route-views", `{"start_city":"Mumbai","end_city":"Delhi"}`), -1)
	if resp.StatusCode != 504 {
		t.Fatalf("expected 504, got %d", resp.StatusCode)
	}
}

func TestRecommendationsAlias_Deprecated(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(postJSON("/v1/recommendations", `{"start_city":"Mumbai","end_city":"Delhi"}`), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Deprecation") != "true" {
		t.Errorf("expected Deprecation header, got %q", resp.Header.Get("Deprecation"))
	}
	if resp.Header.Get("Sunset") == "" {
		t.Error("expected Sunset header")
	}
	if link := resp.Header.Get("Link"); !strings.Contains(link, "/v1/route-views") {
		t.Errorf("expected successor link, got %q", link)
	}
}

// ---- Session tests ----

func TestSessionView_NoData(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/sessions/fresh/view", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var view domain.RouteView
	json.NewDecoder(resp.Body).Decode(&view)
	if view.Center != viewmodel.DefaultFallbackCenter {
		t.Errorf("expected fallback center, got %+v", view.Center)
	}
	if view.RoutePath == nil || len(view.RoutePath) != 0 {
		t.Errorf("expected empty route path, got %v", view.RoutePath)
	}
	if view.BoundingRegion != nil {
		t.Errorf("expected no bounding region, got %+v", view.BoundingRegion)
	}
}

func TestSessionView_InvalidID(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/sessions/bad.id/view", nil), -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSessionView_CacheControlAndETag(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/sessions/s1/view", nil), -1)
	if cc := resp.Header.Get("Cache-Control"); cc != "private, no-cache" {
		t.Errorf("expected private, no-cache, got %q", cc)
	}
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag header")
	}

	req := httptest.NewRequest("GET", "/v1/sessions/s1/view", nil)
	req.Header.Set("If-None-Match", `W/"other", `+etag)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 304 {
		t.Fatalf("expected 304, got %d", resp.StatusCode)
	}
}

func TestSessionViewGeoJSON(t *testing.T) {
	app := setupApp(makeDeps())

	req := postJSON("/v1/route-views", `{"start_city":"Mumbai","end_city":"Delhi"}`)
	req.Header.Set("X-Session-ID", "s1")
	app.Test(req, -1)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/sessions/s1/view.geojson", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("expected application/geo+json, got %q", ct)
	}

	var fc struct {
		Type     string    `json:"type"`
		BBox     []float64 `json:"bbox"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		t.Fatal(err)
	}
	if fc.Type != "FeatureCollection" {
		t.Errorf("expected FeatureCollection, got %q", fc.Type)
	}
	if len(fc.Features) != 3 {
		t.Fatalf("expected route + 2 places, got %d features", len(fc.Features))
	}
	if fc.Features[0].Geometry.Type != "LineString" {
		t.Errorf("expected LineString first, got %q", fc.Features[0].Geometry.Type)
	}
	if len(fc.BBox) != 4 {
		t.Errorf("expected 4-element bbox, got %v", fc.BBox)
	}
}

func TestSessionSearches_Pagination(t *testing.T) {
	app := setupApp(makeDeps())

	for i := 0; i < 3; i++ {
		req := postJSON("/v1/route-views", fmt.Sprintf(`{"start_city":"City %d","end_city":"Delhi"}`, i))
		req.Header.Set("X-Session-ID", "s1")
		app.Test(req, -1)
	}

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/sessions/s1/searches?offset=0&limit=2", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.SearchRecord `json:"data"`
		Pagination handler.Pagination    `json:"pagination"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Pagination.Total != 3 {
		t.Errorf("expected total 3, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 {
		t.Errorf("expected 2 records, got %d", len(result.Data))
	}
	for _, rec := range result.Data {
		if rec.Status != domain.SearchOK {
			t.Errorf("expected ok status, got %q", rec.Status)
		}
	}

	link := resp.Header.Get("Link")
	if !strings.Contains(link, `rel="next"`) {
		t.Errorf("expected next link, got %s", link)
	}
}

// ---- State tests ----

func TestState_RoundTrip(t *testing.T) {
	app := setupApp(makeDeps())
	blob := []byte{0x00, 0x01, 0xfe, 0xff}

	req := httptest.NewRequest("PUT", "/v1/state/nav-stack", bytes.NewReader(blob))
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 204 {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/state/nav-stack", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := readBody(t, resp.Body); !bytes.Equal(got, blob) {
		t.Errorf("expected %v, got %v", blob, got)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "private, no-store" {
		t.Errorf("expected private, no-store, got %q", cc)
	}

	resp, _ = app.Test(httptest.NewRequest("DELETE", "/v1/state/nav-stack", nil), -1)
	if resp.StatusCode != 204 {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/state/nav-stack", nil), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestState_EmptyBody(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("PUT", "/v1/state/nav-stack", nil), -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestState_DoesNotExposeSessionViews(t *testing.T) {
	app := setupApp(makeDeps())

	req := postJSON("/v1/route-views", `{"start_city":"Mumbai","end_city":"Delhi"}`)
	req.Header.Set("X-Session-ID", "s1")
	app.Test(req, -1)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/state/view:s1", nil), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

// ---- Auth tests ----

func TestLogin_Success(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(postJSON("/v1/auth/login", `{"email":"traveller@example.com","password":"pw"}`), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var res domain.AuthResult
	json.NewDecoder(resp.Body).Decode(&res)
	if res.Status != "success" || res.Token == "" {
		t.Fatalf("expected success with token, got %+v", res)
	}

	req := httptest.NewRequest("GET", "/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+res.Token)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var claims domain.SessionClaims
	json.NewDecoder(resp.Body).Decode(&claims)
	if claims.Email != "traveller@example.com" {
		t.Errorf("expected email claim, got %q", claims.Email)
	}
}

func TestLogin_Rejected(t *testing.T) {
	app := setupApp(makeDeps(func(e *testEnv) {
		e.auth.loginFn = func(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error) {
			return &domain.AuthResult{Status: "error", Message: "Invalid credentials"}, nil
		}
	}))

	resp, _ := app.Test(postJSON("/v1/auth/login", `{"email":"traveller@example.com","password":"wrong"}`), -1)
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if apiErr := decodeError(t, resp.Body); !strings.Contains(apiErr.Message, "Invalid credentials") {
		t.Errorf("expected backend message, got %q", apiErr.Message)
	}
}

func TestRegister_Created(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(postJSON("/v1/auth/register", `{"email":"new@example.com","password":"pw"}`), -1)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
}

func TestRegister_InvalidEmail(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(postJSON("/v1/auth/register", `{"email":"nope","password":"pw"}`), -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestMe_RequiresToken(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/auth/me", nil), -1)
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	req := httptest.NewRequest("GET", "/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401 for garbage token, got %d", resp.StatusCode)
	}
}

// ---- GraphQL tests ----

func graphQL(t *testing.T, app *fiber.App, query string) map[string]interface{} {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"query": query})
	resp, err := app.Test(postJSON("/graphql", string(body)), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	return result
}

func TestGraphQL_RouteViewAndSessionView(t *testing.T) {
	app := setupApp(makeDeps())

	result := graphQL(t, app, `mutation {
		routeView(startCity: "Mumbai", endCity: "Delhi", sessionId: "s1") {
			highlights_only { place { name } }
		}
	}`)
	if result["errors"] != nil {
		t.Fatalf("unexpected errors: %v", result["errors"])
	}

	result = graphQL(t, app, `{
		sessionView(sessionId: "s1") {
			center { latitude longitude }
			ranked_places { is_highlighted place { name category } }
			route { distance_km }
			bounding_region { south_west { latitude } north_east { longitude } }
		}
	}`)
	if result["errors"] != nil {
		t.Fatalf("unexpected errors: %v", result["errors"])
	}
	view := result["data"].(map[string]interface{})["sessionView"].(map[string]interface{})
	places := view["ranked_places"].([]interface{})
	if len(places) != 2 {
		t.Fatalf("expected 2 places, got %d", len(places))
	}
	first := places[0].(map[string]interface{})
	if first["is_highlighted"] != true {
		t.Errorf("expected first place highlighted, got %v", first)
	}

	region := view["bounding_region"].(map[string]interface{})
	sw := region["south_west"].(map[string]interface{})
	if sw["latitude"] != 19.076 {
		t.Errorf("expected south-west latitude 19.076, got %v", sw["latitude"])
	}
	ne := region["north_east"].(map[string]interface{})
	if ne["longitude"] != 77.209 {
		t.Errorf("expected north-east longitude 77.209, got %v", ne["longitude"])
	}
}

func TestGraphQL_InvalidSession(t *testing.T) {
	app := setupApp(makeDeps())

	result := graphQL(t, app, `mutation {
		routeView(startCity: "Mumbai", endCity: "Delhi", sessionId: "bad id") { request_id }
	}`)
	if result["errors"] == nil {
		t.Fatal("expected errors for invalid session id")
	}
}

func TestGraphQL_EmptyQuery(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(postJSON("/graphql", `{"query":""}`), -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- WebSocket ----

type fakeFeed struct{}

func (fakeFeed) SubscribeView(sessionID string, fn func([]byte)) (func(), error) {
	return func() {}, nil
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	deps := makeDeps()
	deps.Feed = fakeFeed{}
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/ws", nil), -1)
	if resp.StatusCode != fiber.StatusUpgradeRequired {
		t.Fatalf("expected 426, got %d", resp.StatusCode)
	}
}

// ---- Docs ----

func TestDocs_ServesOpenAPI(t *testing.T) {
	deps := makeDeps()
	deps.OpenAPIPath = findOpenAPISpec(t)
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/docs/openapi.yaml", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body := readBody(t, resp.Body); !strings.Contains(string(body), "TouristRoute API") {
		t.Error("expected the OpenAPI document")
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=3600" {
		t.Errorf("expected docs cache policy, got %q", cc)
	}
}

func TestDocs_MissingDocument(t *testing.T) {
	deps := makeDeps()
	deps.OpenAPIPath = "does/not/exist.yaml"
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/docs/openapi.yaml", nil), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

// ---- Health & middleware ----

func TestHealth_Returns200(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if result["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", result["status"])
	}
}

func TestReady_NoDB(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestAPIVersionHeader(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if v := resp.Header.Get("X-API-Version"); v != "1.0.0" {
		t.Errorf("expected X-API-Version 1.0.0, got %q", v)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestAccessLogMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(handler.AccessLogMiddleware())
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Session-ID", "s1")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if body := readBody(t, resp.Body); !strings.Contains(string(body), "ok") {
		t.Errorf("expected response body to contain 'ok', got %s", body)
	}
}
