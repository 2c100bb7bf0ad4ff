package api

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/novarobotics/stormdrain/internal/geo"
	"github.com/novarobotics/stormdrain/internal/metrics"
	"github.com/novarobotics/stormdrain/internal/models"
	"github.com/novarobotics/stormdrain/internal/route"
)

type routePoint struct {
	ID   string  `json:"id" binding:"required,max=64"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat" binding:"min=-90,max=90"`
	Lng  float64 `json:"lng" binding:"min=-180,max=180"`
	// CRI is conventionally 0..100 but any number is accepted as a weight.
	CRI *float64 `json:"cri"`
}

type routeRequest struct {
	Points []routePoint `json:"points" binding:"max=500,dive"`
}

type routeResponse struct {
	Route   []models.StormDrain `json:"route"`
	LegsKm  []float64           `json:"legs_km"`
	TotalKm float64             `json:"total_km"`
}

// computeRoute orders the submitted drains into a risk-first patrol route.
func (h *Handler) computeRoute(c *gin.Context) {
	var req routeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}

	points := make([]models.StormDrain, len(req.Points))
	for i, p := range req.Points {
		points[i] = models.StormDrain{
			ID:    p.ID,
			Name:  p.Name,
			Lat:   p.Lat,
			Lng:   p.Lng,
			Score: p.CRI,
		}
		if p.CRI != nil {
			rounded := int(math.Round(*p.CRI))
			points[i].CRI = &rounded
		}
		points[i].Status = models.StatusFromCRI(points[i].CRI)
	}

	ordered := route.Compute(points)
	metrics.RouteStops.Observe(float64(len(ordered)))

	c.JSON(http.StatusOK, routeResponse{
		Route:   ordered,
		LegsKm:  route.Legs(ordered),
		TotalKm: route.TotalDistanceKm(ordered),
	})
}

// project converts a WGS84 position to Web Mercator metres and back, for
// checking map layer alignment.
func (h *Handler) project(c *gin.Context) {
	var q struct {
		Lat float64 `form:"lat" binding:"min=-85.06,max=85.06"`
		Lng float64 `form:"lng" binding:"min=-180,max=180"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}

	x, y := geo.WGS84ToWebMercator(q.Lng, q.Lat)
	lng, lat := geo.WebMercatorToWGS84(x, y)
	c.JSON(http.StatusOK, gin.H{
		"x":   round(x, 3),
		"y":   round(y, 3),
		"lat": lat,
		"lng": lng,
	})
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
