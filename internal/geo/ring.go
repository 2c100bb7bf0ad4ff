package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// DefaultMaxRingPoints keeps district outlines light enough for the map overlay.
const DefaultMaxRingPoints = 48

// ConvertRing turns a raw ring into [lat, lng] positions. Web Mercator input is
// reprojected; geographic input is GeoJSON (lng, lat) and only swapped.
func ConvertRing(ring orb.Ring, isWebMercator bool) []LatLng {
	out := make([]LatLng, len(ring))
	for i, p := range ring {
		if isWebMercator {
			lng, lat := WebMercatorToWGS84(p.X(), p.Y())
			out[i] = LatLng{lat, lng}
			continue
		}
		out[i] = LatLng{p.Y(), p.X()}
	}
	return out
}

// SimplifyRing decimates a ring down to maxPoints vertices by fixed stride and
// re-closes it on the first vertex. Rings already within budget are returned as is.
//
// This is plain decimation, not a shape-preserving simplification; it is only
// meant for drawing.
func SimplifyRing(ring []LatLng, maxPoints int) []LatLng {
	if maxPoints < 1 || len(ring) <= maxPoints {
		return ring
	}

	step := float64(len(ring)) / float64(maxPoints)
	out := make([]LatLng, 0, maxPoints+1)
	for i := 0; i < maxPoints; i++ {
		idx := int(math.Floor(float64(i) * step))
		if idx > len(ring)-1 {
			idx = len(ring) - 1
		}
		out = append(out, ring[idx])
	}

	first := ring[0]
	if out[len(out)-1] != first {
		out = append(out, first)
	}
	return out
}
