package models

import "github.com/novarobotics/stormdrain/internal/geo"

// DistrictPolygon is an administrative district boundary in [lat, lng] order.
// Positions holds the outer ring first, followed by any holes.
type DistrictPolygon struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Positions [][]geo.LatLng `json:"positions"`
}
