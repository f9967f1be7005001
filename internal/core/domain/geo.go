package domain

import (
	"fmt"
	"math"
	"strings"
)

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Valid reports whether both components are finite and inside their ranges.
func (p GeoPoint) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// BoundsOf returns the minimal box covering points, or nil when points is empty.
func BoundsOf(points ...GeoPoint) *Bounds {
	if len(points) == 0 {
		return nil
	}
	b := Bounds{
		MinLat: points[0].Lat, MaxLat: points[0].Lat,
		MinLon: points[0].Lon, MaxLon: points[0].Lon,
	}
	for _, p := range points[1:] {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MinLon = math.Min(b.MinLon, p.Lon)
		b.MaxLon = math.Max(b.MaxLon, p.Lon)
	}
	return &b
}

// Center returns the midpoint of the box.
func (b Bounds) Center() GeoPoint {
	return GeoPoint{
		Lat: (b.MinLat + b.MaxLat) / 2,
		Lon: (b.MinLon + b.MaxLon) / 2,
	}
}

// Contains reports whether p lies inside or on the edge of the box.
func (b Bounds) Contains(p GeoPoint) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// SouthWest and NorthEast are the corners a map widget expects.
func (b Bounds) SouthWest() GeoPoint { return GeoPoint{Lat: b.MinLat, Lon: b.MinLon} }
func (b Bounds) NorthEast() GeoPoint { return GeoPoint{Lat: b.MaxLat, Lon: b.MaxLon} }

// CoordinateOrder declares how a raw path encodes each pair.
type CoordinateOrder string

const (
	OrderUnspecified CoordinateOrder = ""
	OrderLonLat      CoordinateOrder = "lonlat" // GeoJSON / OSRM
	OrderLatLon      CoordinateOrder = "latlon"
)

// ParseCoordinateOrder accepts "lonlat", "latlon" and their "lon,lat" / "lat,lon" spellings.
func ParseCoordinateOrder(s string) (CoordinateOrder, error) {
	switch strings.ToLower(strings.NewReplacer(",", "", "_", "", "-", "", " ", "").Replace(s)) {
	case "lonlat", "lnglat", "geojson":
		return OrderLonLat, nil
	case "latlon", "latlng":
		return OrderLatLon, nil
	case "":
		return OrderUnspecified, nil
	default:
		return OrderUnspecified, fmt.Errorf("unknown coordinate order %q", s)
	}
}

// RawPath is route geometry exactly as received, before normalization.
type RawPath struct {
	Coordinates [][]float64     `json:"coordinates"`
	Order       CoordinateOrder `json:"order"`
}
