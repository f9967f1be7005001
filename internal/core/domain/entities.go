package domain

import (
	"time"
)

// CityLocation is a geocoded city returned by the recommendation backend.
type CityLocation struct {
	City     string   `json:"city"`
	Location GeoPoint `json:"location"`
}

// RouteSummary holds the scalar facts about a travel route.
type RouteSummary struct {
	DistanceKm    float64 `json:"distance_km"`
	DurationHours float64 `json:"duration_hours"`
}

// Place is a point of interest near the route.
type Place struct {
	ID                  string   `json:"id,omitempty"`
	Name                string   `json:"name"`
	Location            GeoPoint `json:"location"`
	Category            string   `json:"category"`
	Description         string   `json:"description"`
	DistanceFromRouteKm *float64 `json:"distance_from_route_km,omitempty"`
}

// RecommendationResponse is the decoded payload of the recommendation backend.
// Start and End are nil when the backend omitted them.
type RecommendationResponse struct {
	Start              *CityLocation `json:"start_location,omitempty"`
	End                *CityLocation `json:"end_location,omitempty"`
	Route              RouteSummary  `json:"route"`
	Path               RawPath       `json:"path"`
	Places             []Place       `json:"places"`
	HighlightedNames   []string      `json:"highlighted_names,omitempty"`
	HighlightedIDs     []string      `json:"highlighted_ids,omitempty"`
	RecommendationText *string       `json:"recommendation_text,omitempty"`
	Cached             bool          `json:"cached"`
	// NoResults marks the backend's "nothing found" answer; only
	// RecommendationText may be set alongside it.
	NoResults bool `json:"no_results,omitempty"`
}

// RankedPlace annotates a place with its highlight flag.
type RankedPlace struct {
	Place       Place `json:"place"`
	Highlighted bool  `json:"is_highlighted"`
}

// RouteView is everything the map and list screens render for one search.
type RouteView struct {
	RequestID          string        `json:"request_id,omitempty"`
	Center             GeoPoint      `json:"center"`
	BoundingRegion     *Bounds       `json:"bounding_region,omitempty"`
	RoutePath          []GeoPoint    `json:"route_path"`
	PathLengthKm       float64       `json:"path_length_km"`
	RankedPlaces       []RankedPlace `json:"ranked_places"`
	HighlightsOnly     []RankedPlace `json:"highlights_only"`
	Start              *CityLocation `json:"start_location,omitempty"`
	End                *CityLocation `json:"end_location,omitempty"`
	Route              *RouteSummary `json:"route,omitempty"`
	RecommendationText *string       `json:"recommendation_text,omitempty"`
	GeneratedAt        time.Time     `json:"generated_at"`
}

// Empty reports whether the view carries no search result.
func (v *RouteView) Empty() bool {
	return v.Start == nil && v.End == nil && len(v.RankedPlaces) == 0
}

// SearchStatus is the outcome of a recorded search.
type SearchStatus string

const (
	SearchOK         SearchStatus = "ok"
	SearchMalformed  SearchStatus = "malformed"
	SearchFailed     SearchStatus = "failed"
	SearchSuperseded SearchStatus = "superseded"
)

// SearchRecord is one entry of a session's search history.
type SearchRecord struct {
	ID         string       `json:"id"`
	SessionID  string       `json:"session_id"`
	StartCity  string       `json:"start_city"`
	EndCity    string       `json:"end_city"`
	Status     SearchStatus `json:"status"`
	PlaceCount int          `json:"place_count"`
	Error      string       `json:"error,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Credentials are forwarded to the external auth endpoints.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is the outcome of a login or registration.
type AuthResult struct {
	Status    string     `json:"status"`
	Message   string     `json:"message,omitempty"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Succeeded reports whether the backend accepted the credentials.
func (r *AuthResult) Succeeded() bool {
	return r != nil && r.Status == "success"
}

// SessionClaims identify the holder of a session token.
type SessionClaims struct {
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
