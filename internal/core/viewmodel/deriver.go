// Package viewmodel turns a recommendation payload into the geometry and
// lists a map screen renders. Everything here is pure: no I/O, no shared
// mutable state, and the input is never modified.
package viewmodel

import (
	"math"
	"strings"
	"time"

	"github.com/samirrijal/touristroute/internal/core/domain"
	"github.com/samirrijal/touristroute/internal/pkg/geospatial"
)

// DefaultFallbackCenter is shown before any search has produced data.
var DefaultFallbackCenter = domain.GeoPoint{Lat: 20.5937, Lon: 78.9629}

// Deriver builds RouteViews. The zero value uses DefaultFallbackCenter.
type Deriver struct {
	FallbackCenter *domain.GeoPoint
	// Now stamps GeneratedAt; nil leaves it zero so output stays deterministic.
	Now func() time.Time
}

// NewDeriver returns a Deriver centred on fallback when there is no data.
func NewDeriver(fallback domain.GeoPoint) *Deriver {
	return &Deriver{FallbackCenter: &fallback}
}

func (d *Deriver) fallback() domain.GeoPoint {
	if d != nil && d.FallbackCenter != nil {
		return *d.FallbackCenter
	}
	return DefaultFallbackCenter
}

// Derive computes the view for resp. A nil resp, or one marked NoResults,
// yields the "no data" view.
// It returns a *domain.MalformedResponseError and no view when resp cannot
// be rendered; empty places or highlights are not errors.
func (d *Deriver) Derive(resp *domain.RecommendationResponse) (*domain.RouteView, error) {
	view := &domain.RouteView{
		RoutePath:      []domain.GeoPoint{},
		RankedPlaces:   []domain.RankedPlace{},
		HighlightsOnly: []domain.RankedPlace{},
	}
	if d != nil && d.Now != nil {
		view.GeneratedAt = d.Now().UTC()
	}

	if resp == nil || resp.NoResults {
		view.Center = d.fallback()
		if resp != nil && resp.RecommendationText != nil {
			text := *resp.RecommendationText
			view.RecommendationText = &text
		}
		return view, nil
	}

	if err := validateEndpoint("start_location", resp.Start); err != nil {
		return nil, err
	}
	if err := validateEndpoint("end_location", resp.End); err != nil {
		return nil, err
	}
	if err := validateRoute(resp.Route); err != nil {
		return nil, err
	}
	for i, p := range resp.Places {
		if err := validatePlace(i, p); err != nil {
			return nil, err
		}
	}

	path, err := NormalizePath(resp.Path)
	if err != nil {
		return nil, err
	}

	points := make([]domain.GeoPoint, 0, len(resp.Places)+2)
	points = append(points, resp.Start.Location, resp.End.Location)
	for _, p := range resp.Places {
		points = append(points, p.Location)
	}
	bounds := domain.BoundsOf(points...)

	if len(resp.Places) > 0 {
		view.Center = bounds.Center()
	} else {
		view.Center = domain.GeoPoint{
			Lat: (resp.Start.Location.Lat + resp.End.Location.Lat) / 2,
			Lon: (resp.Start.Location.Lon + resp.End.Location.Lon) / 2,
		}
	}
	view.BoundingRegion = bounds
	view.RoutePath = path
	view.PathLengthKm = pathLengthKm(path)
	view.RankedPlaces, view.HighlightsOnly = Rank(resp.Places, resp.HighlightedNames, resp.HighlightedIDs)

	start, end, route := *resp.Start, *resp.End, resp.Route
	view.Start, view.End, view.Route = &start, &end, &route
	if resp.RecommendationText != nil {
		text := *resp.RecommendationText
		view.RecommendationText = &text
	}
	return view, nil
}

// NormalizePath converts raw pairs to GeoPoints using the declared order.
// It never guesses the order from magnitudes.
func NormalizePath(raw domain.RawPath) ([]domain.GeoPoint, error) {
	out := make([]domain.GeoPoint, 0, len(raw.Coordinates))
	if len(raw.Coordinates) == 0 {
		return out, nil
	}

	var latIdx, lonIdx int
	switch raw.Order {
	case domain.OrderLonLat:
		latIdx, lonIdx = 1, 0
	case domain.OrderLatLon:
		latIdx, lonIdx = 0, 1
	default:
		return nil, domain.Malformed("route path has no declared coordinate order")
	}

	for i, pair := range raw.Coordinates {
		if len(pair) != 2 {
			return nil, domain.Malformed("route path element %d has %d components, want 2", i, len(pair))
		}
		pt := domain.GeoPoint{Lat: pair[latIdx], Lon: pair[lonIdx]}
		if !pt.Valid() {
			return nil, domain.Malformed("route path element %d out of range: %v", i, pair)
		}
		out = append(out, pt)
	}
	return out, nil
}

// Rank flags each place as highlighted and returns the full list in input
// order together with the highlighted subset. Places match by id when the
// payload carries highlighted ids and the place has one, otherwise by name.
func Rank(places []domain.Place, names, ids []string) (ranked, highlights []domain.RankedPlace) {
	nameSet := make(map[string]struct{}, len(names))
	for _, n := range names {
		nameSet[n] = struct{}{}
	}
	idSet := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		idSet[id] = struct{}{}
	}

	ranked = make([]domain.RankedPlace, 0, len(places))
	highlights = []domain.RankedPlace{}
	for _, p := range places {
		var hit bool
		if len(idSet) > 0 && p.ID != "" {
			_, hit = idSet[p.ID]
		} else {
			_, hit = nameSet[p.Name]
		}
		rp := domain.RankedPlace{Place: copyPlace(p), Highlighted: hit}
		ranked = append(ranked, rp)
		if hit {
			highlights = append(highlights, rp)
		}
	}
	return ranked, highlights
}

func copyPlace(p domain.Place) domain.Place {
	if p.DistanceFromRouteKm != nil {
		d := *p.DistanceFromRouteKm
		p.DistanceFromRouteKm = &d
	}
	return p
}

func pathLengthKm(path []domain.GeoPoint) float64 {
	lats := make([]float64, len(path))
	lons := make([]float64, len(path))
	for i, p := range path {
		lats[i], lons[i] = p.Lat, p.Lon
	}
	return geospatial.PolylineKm(lats, lons)
}

func validateEndpoint(field string, loc *domain.CityLocation) error {
	if loc == nil {
		return domain.Malformed("%s is missing", field)
	}
	if strings.TrimSpace(loc.City) == "" {
		return domain.Malformed("%s.city is empty", field)
	}
	if !loc.Location.Valid() {
		return domain.Malformed("%s coordinates out of range: (%v, %v)", field, loc.Location.Lat, loc.Location.Lon)
	}
	return nil
}

func validateRoute(r domain.RouteSummary) error {
	if r.DistanceKm < 0 || math.IsNaN(r.DistanceKm) {
		return domain.Malformed("route.distance_km must be >= 0, got %v", r.DistanceKm)
	}
	if r.DurationHours < 0 || math.IsNaN(r.DurationHours) {
		return domain.Malformed("route.duration_hours must be >= 0, got %v", r.DurationHours)
	}
	return nil
}

func validatePlace(i int, p domain.Place) error {
	if strings.TrimSpace(p.Name) == "" {
		return domain.Malformed("place %d has an empty name", i)
	}
	if !p.Location.Valid() {
		return domain.Malformed("place %q coordinates out of range: (%v, %v)", p.Name, p.Location.Lat, p.Location.Lon)
	}
	if p.DistanceFromRouteKm != nil && (*p.DistanceFromRouteKm < 0 || math.IsNaN(*p.DistanceFromRouteKm)) {
		return domain.Malformed("place %q has negative distance from route", p.Name)
	}
	return nil
}
