package http

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/touristroute/internal/core/domain"
)

// ViewFeatureCollection renders a view as GeoJSON: one LineString for the
// route (when it has points) and one Point per ranked place.
func ViewFeatureCollection(view *domain.RouteView) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	if len(view.RoutePath) > 0 {
		line := make(orb.LineString, 0, len(view.RoutePath))
		for _, p := range view.RoutePath {
			line = append(line, orb.Point{p.Lon, p.Lat})
		}
		f := geojson.NewFeature(line)
		f.Properties["kind"] = "route"
		f.Properties["path_length_km"] = view.PathLengthKm
		if view.Start != nil {
			f.Properties["start_city"] = view.Start.City
		}
		if view.End != nil {
			f.Properties["end_city"] = view.End.City
		}
		if view.Route != nil {
			f.Properties["distance_km"] = view.Route.DistanceKm
			f.Properties["duration_hours"] = view.Route.DurationHours
		}
		fc.Append(f)
	}

	for _, rp := range view.RankedPlaces {
		f := geojson.NewFeature(orb.Point{rp.Place.Location.Lon, rp.Place.Location.Lat})
		f.Properties["kind"] = "place"
		f.Properties["name"] = rp.Place.Name
		f.Properties["category"] = rp.Place.Category
		f.Properties["is_highlighted"] = rp.Highlighted
		if rp.Place.ID != "" {
			f.ID = rp.Place.ID
		}
		if rp.Place.DistanceFromRouteKm != nil {
			f.Properties["distance_from_route_km"] = *rp.Place.DistanceFromRouteKm
		}
		fc.Append(f)
	}

	if b := view.BoundingRegion; b != nil {
		fc.BBox = geojson.BBox{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat}
	}
	return fc
}
