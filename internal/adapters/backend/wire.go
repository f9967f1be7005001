package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/touristroute/internal/core/domain"
	"github.com/samirrijal/touristroute/internal/core/viewmodel"
)

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

type wireCoords struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// wireLocation is a city or place position, nested under "location" or flat.
type wireLocation struct {
	City      string      `json:"city"`
	Latitude  *float64    `json:"latitude"`
	Longitude *float64    `json:"longitude"`
	Location  *wireCoords `json:"location"`
}

func (l wireLocation) point() (domain.GeoPoint, bool) {
	lat, lon := l.Latitude, l.Longitude
	if l.Location != nil && l.Location.Latitude != nil && l.Location.Longitude != nil {
		lat, lon = l.Location.Latitude, l.Location.Longitude
	}
	if lat == nil || lon == nil {
		return domain.GeoPoint{}, false
	}
	return domain.GeoPoint{Lat: *lat, Lon: *lon}, true
}

type wirePlace struct {
	wireLocation
	ID                  flexString `json:"id"`
	Name                string     `json:"name"`
	Category            string     `json:"category"`
	Type                string     `json:"type"`
	Description         string     `json:"description"`
	DistanceFromRouteKm *float64   `json:"distance_from_route_km"`
	DistanceFromRoute   *float64   `json:"distance_from_route"`
	DistanceKm          *float64   `json:"distance_km"`
}

type wireRoute struct {
	DistanceKm      float64         `json:"distance_km"`
	DurationHours   float64         `json:"duration_hours"`
	Geometry        json.RawMessage `json:"geometry"`
	Path            json.RawMessage `json:"path"`
	CoordinateOrder string          `json:"coordinate_order"`
}

type wireResponse struct {
	From               string          `json:"from"`
	To                 string          `json:"to"`
	StartLocation      *wireLocation   `json:"start_location"`
	EndLocation        *wireLocation   `json:"end_location"`
	Route              *wireRoute      `json:"route"`
	RouteGeometry      json.RawMessage `json:"route_geometry"`
	Places             []wirePlace     `json:"places"`
	TouristPlaces      []wirePlace     `json:"tourist_places"`
	HighlightedNames   []string        `json:"highlighted_names"`
	Highlighted        []string        `json:"highlighted"`
	HighlightedIDs     []flexString    `json:"highlighted_ids"`
	RecommendationText *string         `json:"recommendation_text"`
	Recommendations    json.RawMessage `json:"recommendations"`
	CoordinateOrder    string          `json:"coordinate_order"`
	Cached             bool            `json:"cached"`
	Message            string          `json:"message"`
}

// noResults reports the backend's 200 "nothing found" shape: a message and
// no route, endpoints or places.
func (w *wireResponse) noResults() bool {
	return strings.TrimSpace(w.Message) != "" &&
		w.StartLocation == nil && w.EndLocation == nil &&
		strings.TrimSpace(w.From) == "" && strings.TrimSpace(w.To) == "" &&
		w.Route == nil && !isPresent(w.RouteGeometry) &&
		len(w.Places) == 0 && len(w.TouristPlaces) == 0
}

// decodeResponse maps the backend payload, in any of its observed field-name
// variants, onto a domain.RecommendationResponse. defaultOrder applies when
// the payload does not declare its coordinate order. Range checks are left
// to the view-model; structural problems are reported as malformed here.
func decodeResponse(body []byte, defaultOrder domain.CoordinateOrder) (*domain.RecommendationResponse, error) {
	var w wireResponse
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, domain.Malformed("invalid JSON: %v", err)
	}

	out := &domain.RecommendationResponse{Cached: w.Cached}
	if w.noResults() {
		msg := w.Message
		out.NoResults = true
		out.RecommendationText = &msg
		return out, nil
	}

	path, err := decodePath(&w, defaultOrder)
	if err != nil {
		return nil, err
	}
	out.Path = path

	if w.Route != nil {
		out.Route = domain.RouteSummary{DistanceKm: w.Route.DistanceKm, DurationHours: w.Route.DurationHours}
	}

	if out.Start, err = decodeEndpoint("start_location", w.StartLocation, w.From, path, true); err != nil {
		return nil, err
	}
	if out.End, err = decodeEndpoint("end_location", w.EndLocation, w.To, path, false); err != nil {
		return nil, err
	}

	places := w.Places
	if places == nil {
		places = w.TouristPlaces
	}
	out.Places = make([]domain.Place, 0, len(places))
	for i, p := range places {
		loc, ok := p.point()
		if !ok {
			return nil, domain.Malformed("place %d (%q) has no coordinates", i, p.Name)
		}
		category := p.Category
		if category == "" {
			category = p.Type
		}
		out.Places = append(out.Places, domain.Place{
			ID:                  string(p.ID),
			Name:                p.Name,
			Location:            loc,
			Category:            category,
			Description:         p.Description,
			DistanceFromRouteKm: firstNonNil(p.DistanceFromRouteKm, p.DistanceFromRoute, p.DistanceKm),
		})
	}

	out.HighlightedNames = w.HighlightedNames
	if out.HighlightedNames == nil {
		out.HighlightedNames = w.Highlighted
	}
	for _, id := range w.HighlightedIDs {
		out.HighlightedIDs = append(out.HighlightedIDs, string(id))
	}

	out.RecommendationText = w.RecommendationText
	if out.RecommendationText == nil && len(w.Recommendations) > 0 {
		text, err := decodeText(w.Recommendations)
		if err != nil {
			return nil, err
		}
		out.RecommendationText = text
	}
	return out, nil
}

// decodePath picks the geometry field and its declared order. GeoJSON
// geometry objects are always lon/lat.
func decodePath(w *wireResponse, defaultOrder domain.CoordinateOrder) (domain.RawPath, error) {
	declared := w.CoordinateOrder
	raw := w.RouteGeometry
	if w.Route != nil {
		if w.Route.CoordinateOrder != "" {
			declared = w.Route.CoordinateOrder
		}
		switch {
		case isPresent(w.Route.Geometry):
			raw = w.Route.Geometry
		case isPresent(w.Route.Path):
			raw = w.Route.Path
		}
	}

	order, err := domain.ParseCoordinateOrder(declared)
	if err != nil {
		return domain.RawPath{}, domain.Malformed("%v", err)
	}
	if order == domain.OrderUnspecified {
		order = defaultOrder
	}

	if !isPresent(raw) {
		return domain.RawPath{Coordinates: [][]float64{}, Order: order}, nil
	}

	trimmed := bytes.TrimSpace(raw)
	if trimmed[0] == '{' {
		coords, err := decodeGeoJSONLine(trimmed)
		if err != nil {
			return domain.RawPath{}, err
		}
		return domain.RawPath{Coordinates: coords, Order: domain.OrderLonLat}, nil
	}

	var coords [][]float64
	if err := json.Unmarshal(trimmed, &coords); err != nil {
		return domain.RawPath{}, domain.Malformed("route geometry: %v", err)
	}
	if coords == nil {
		coords = [][]float64{}
	}
	return domain.RawPath{Coordinates: coords, Order: order}, nil
}

func decodeGeoJSONLine(raw []byte) ([][]float64, error) {
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, domain.Malformed("route geometry: %v", err)
	}
	var line orb.LineString
	switch geom := g.Geometry().(type) {
	case orb.LineString:
		line = geom
	case orb.MultiLineString:
		for _, ls := range geom {
			line = append(line, ls...)
		}
	default:
		return nil, domain.Malformed("route geometry: unsupported type %s", g.Type)
	}

	coords := make([][]float64, 0, len(line))
	for _, p := range line {
		coords = append(coords, []float64{p.Lon(), p.Lat()})
	}
	return coords, nil
}

// decodeEndpoint reads start/end. When only a city name is sent, the first
// (or last) point of the route geometry stands in for its position.
func decodeEndpoint(field string, loc *wireLocation, city string, path domain.RawPath, first bool) (*domain.CityLocation, error) {
	if loc != nil {
		pt, ok := loc.point()
		if !ok {
			return nil, domain.Malformed("%s has no coordinates", field)
		}
		name := loc.City
		if name == "" {
			name = city
		}
		return &domain.CityLocation{City: name, Location: pt}, nil
	}
	if strings.TrimSpace(city) == "" || len(path.Coordinates) == 0 {
		return nil, nil
	}

	idx := 0
	if !first {
		idx = len(path.Coordinates) - 1
	}
	pts, err := viewmodel.NormalizePath(domain.RawPath{Coordinates: path.Coordinates[idx : idx+1], Order: path.Order})
	if err != nil {
		return nil, err
	}
	return &domain.CityLocation{City: city, Location: pts[0]}, nil
}

func decodeText(raw json.RawMessage) (*string, error) {
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return &s, nil
	}
	var lines []string
	if err := json.Unmarshal(trimmed, &lines); err != nil {
		return nil, domain.Malformed("recommendations must be a string or list of strings")
	}
	s = strings.Join(lines, "\n")
	return &s, nil
}

func isPresent(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && !bytes.Equal(t, []byte("null"))
}

func firstNonNil(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil && !math.IsNaN(*v) {
			return v
		}
	}
	return nil
}

// errorMessage extracts the backend's "error" or "message" field.
func errorMessage(body []byte) string {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return truncate(strings.TrimSpace(string(body)), 200)
	}
	switch {
	case e.Error != "":
		return e.Error
	case e.Message != "":
		return e.Message
	default:
		return e.Detail
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
