// Package geo holds the coordinate math used by the map endpoints: Web Mercator
// reprojection, ring decimation and great-circle distance.
package geo

// LatLng is a geographic position in [lat, lng] order, the order the map widget expects.
type LatLng [2]float64

func (p LatLng) Lat() float64 { return p[0] }
func (p LatLng) Lng() float64 { return p[1] }
