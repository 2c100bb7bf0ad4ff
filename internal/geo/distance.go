package geo

import "math"

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance between two points in kilometres.
func Haversine(a, b LatLng) float64 {
	dLat := toRad(b.Lat() - a.Lat())
	dLng := toRad(b.Lng() - a.Lng())

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat()))*math.Cos(toRad(b.Lat()))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
