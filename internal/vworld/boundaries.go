package vworld

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/novarobotics/stormdrain/internal/geo"
	"github.com/novarobotics/stormdrain/internal/models"
)

// ToDistricts converts a feature collection to district polygons. The CRS is
// sniffed once from the first ring point and applied to every feature.
func ToDistricts(fc *geojson.FeatureCollection, maxRingPoints int) []models.DistrictPolygon {
	if fc == nil {
		return []models.DistrictPolygon{}
	}

	isWebMercator := DetectWebMercator(fc.Features)

	districts := make([]models.DistrictPolygon, 0, len(fc.Features))
	for _, f := range fc.Features {
		if d, ok := toDistrict(f, isWebMercator, maxRingPoints); ok {
			districts = append(districts, d)
		}
	}
	return districts
}

// DetectWebMercator looks at the first point of the first polygonal feature.
func DetectWebMercator(features []*geojson.Feature) bool {
	for _, f := range features {
		if f == nil {
			continue
		}
		if p, ok := firstPoint(f.Geometry); ok {
			return geo.IsLikelyWebMercator(p)
		}
	}
	return false
}

func firstPoint(g orb.Geometry) (orb.Point, bool) {
	switch g := g.(type) {
	case orb.Polygon:
		if len(g) > 0 && len(g[0]) > 0 {
			return g[0][0], true
		}
	case orb.MultiPolygon:
		if len(g) > 0 && len(g[0]) > 0 && len(g[0][0]) > 0 {
			return g[0][0][0], true
		}
	}
	return orb.Point{}, false
}

func toDistrict(f *geojson.Feature, isWebMercator bool, maxRingPoints int) (models.DistrictPolygon, bool) {
	if f == nil {
		return models.DistrictPolygon{}, false
	}

	var positions [][]geo.LatLng
	switch g := f.Geometry.(type) {
	case orb.Polygon:
		positions = polygonPositions(g, isWebMercator, maxRingPoints)
	case orb.MultiPolygon:
		// only the first polygon is drawn; islands are dropped
		if len(g) > 0 {
			positions = polygonPositions(g[0], isWebMercator, maxRingPoints)
		}
	default:
		return models.DistrictPolygon{}, false
	}
	if len(positions) == 0 {
		return models.DistrictPolygon{}, false
	}

	name := firstProp(f.Properties, "sig_kor_nm", "sig_eng_nm")
	if name == "" {
		name = "unknown"
	}
	id := firstProp(f.Properties, "sig_cd")
	if id == "" {
		id = strings.ToLower(strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return '_'
			}
			return r
		}, name))
	}

	return models.DistrictPolygon{
		ID:        id,
		Name:      name,
		Positions: positions,
	}, true
}

func polygonPositions(p orb.Polygon, isWebMercator bool, maxRingPoints int) [][]geo.LatLng {
	rings := make([][]geo.LatLng, 0, len(p))
	for _, ring := range p {
		rings = append(rings, geo.SimplifyRing(geo.ConvertRing(ring, isWebMercator), maxRingPoints))
	}
	return rings
}

// firstProp returns the first non-blank value among keys. An empty sig_kor_nm
// falls through to sig_eng_nm, and numeric codes are rendered without exponent.
func firstProp(props geojson.Properties, keys ...string) string {
	for _, k := range keys {
		switch v := props[k].(type) {
		case string:
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}
