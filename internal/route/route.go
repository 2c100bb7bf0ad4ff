// Package route orders storm-drain inspection stops.
//
// The planner starts at the highest-risk drain and then chains greedily to the
// nearest unvisited drain. It is O(n²) and meant for the few hundred drains a
// field crew handles per shift.
package route

import (
	"math"
	"sort"

	"github.com/novarobotics/stormdrain/internal/geo"
	"github.com/novarobotics/stormdrain/internal/models"
)

// Compute returns the visit order for points. The result is always a new slice
// holding every input point exactly once.
//
// Equidistant candidates resolve to the one that comes first in risk order,
// which is source order among equal risks.
func Compute(points []models.StormDrain) []models.StormDrain {
	if len(points) <= 1 {
		out := make([]models.StormDrain, len(points))
		copy(out, points)
		return out
	}

	remaining := append([]models.StormDrain(nil), points...)
	sort.SliceStable(remaining, func(i, j int) bool {
		return remaining[i].Risk() > remaining[j].Risk()
	})

	route := make([]models.StormDrain, 0, len(points))
	route = append(route, remaining[0])
	remaining = remaining[1:]

	for len(remaining) > 0 {
		current := position(&route[len(route)-1])

		nearest := 0
		nearestDist := math.Inf(1)
		for i := range remaining {
			d := geo.Haversine(current, position(&remaining[i]))
			if d < nearestDist {
				nearestDist = d
				nearest = i
			}
		}

		route = append(route, remaining[nearest])
		remaining = append(remaining[:nearest], remaining[nearest+1:]...)
	}

	return route
}

// Legs returns the distance in km of each hop along route.
func Legs(route []models.StormDrain) []float64 {
	if len(route) < 2 {
		return []float64{}
	}
	legs := make([]float64, len(route)-1)
	for i := 1; i < len(route); i++ {
		legs[i-1] = geo.Haversine(position(&route[i-1]), position(&route[i]))
	}
	return legs
}

// TotalDistanceKm sums the legs of route.
func TotalDistanceKm(route []models.StormDrain) float64 {
	var total float64
	for _, leg := range Legs(route) {
		total += leg
	}
	return total
}

func position(d *models.StormDrain) geo.LatLng {
	return geo.LatLng{d.Lat, d.Lng}
}
