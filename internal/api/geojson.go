package api

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/novarobotics/stormdrain/internal/models"
)

// toGeoJSON renders drains as Point features in (lng, lat) order.
func toGeoJSON(drains []models.StormDrain) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, d := range drains {
		f := geojson.NewFeature(orb.Point{d.Lng, d.Lat})
		f.ID = d.ID
		f.Properties["id"] = d.ID
		f.Properties["name"] = d.Name
		f.Properties["address"] = d.Address
		f.Properties["status"] = string(d.Status)
		if d.CRI != nil {
			f.Properties["cri"] = *d.CRI
		}
		if d.LastChecked != "" {
			f.Properties["last_checked"] = d.LastChecked
		}
		if d.ManageNo != "" {
			f.Properties["manage_no"] = d.ManageNo
		}
		fc.Append(f)
	}

	return fc
}
