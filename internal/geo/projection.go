package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// WebMercatorExtent is the EPSG:3857 half-width of the world in metres.
const WebMercatorExtent = 20037508.34

// WebMercatorToWGS84 inverts the spherical Web Mercator projection. It returns (lng, lat).
func WebMercatorToWGS84(x, y float64) (lng, lat float64) {
	lng = x * 180 / WebMercatorExtent
	lat = math.Atan(math.Exp(y*math.Pi/WebMercatorExtent))*360/math.Pi - 90
	return lng, lat
}

// WGS84ToWebMercator is the forward projection, the inverse of WebMercatorToWGS84.
func WGS84ToWebMercator(lng, lat float64) (x, y float64) {
	x = lng * WebMercatorExtent / 180
	y = math.Log(math.Tan((90+lat)*math.Pi/360)) / (math.Pi / 180)
	y = y * WebMercatorExtent / 180
	return x, y
}

// IsLikelyWebMercator guesses the CRS of a raw coordinate pair. Anything outside
// the geographic range must be projected metres.
func IsLikelyWebMercator(p orb.Point) bool {
	return math.Abs(p.X()) > 180 || math.Abs(p.Y()) > 90
}
