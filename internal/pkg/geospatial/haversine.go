package geospatial

import "math"

const earthRadiusKm = 6371.0

// HaversineKm calculates the great-circle distance in kilometres between two points.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// PolylineKm sums the segment lengths of a polyline given as parallel lat/lon slices.
func PolylineKm(lats, lons []float64) float64 {
	n := len(lats)
	if len(lons) < n {
		n = len(lons)
	}
	var total float64
	for i := 1; i < n; i++ {
		total += HaversineKm(lats[i-1], lons[i-1], lats[i], lons[i])
	}
	return total
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
