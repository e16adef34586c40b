package sim

import (
	"github.com/ukydev/fleet-traffic-sim/internal/geo"
	"github.com/ukydev/fleet-traffic-sim/internal/models"
)

// walkResult is one tick's worth of movement along a route.
type walkResult struct {
	Position   models.Location
	Heading    float64
	TraveledKm float64
	Capped     bool // iteration cap hit on degenerate geometry
}

// walkRoute consumes up to budgetKm of route polyline starting from the
// vehicle's current position. It advances rt.Cursor over fully consumed
// segments and interpolates inside the final partial one. When the route's
// first point is farther than driftKm from the vehicle while the cursor is
// still 0, a synthetic connector at the vehicle's position is spliced in
// so the walk never teleports.
func walkRoute(rt *RouteRuntime, current models.Location, budgetKm float64, maxIter int, driftKm float64) walkResult {
	res := walkResult{Position: current}
	if len(rt.Points) < 2 || budgetKm <= 0 {
		return res
	}

	if rt.Cursor == 0 && geo.HaversineKm(current, rt.Points[0]) > driftKm {
		rt.Points = append([]models.Location{current}, rt.Points...)
	}

	remaining := budgetKm
	for iter := 0; remaining > 0 && rt.Cursor < len(rt.Points)-1; iter++ {
		if iter >= maxIter {
			res.Capped = true
			break
		}
		next := rt.Points[rt.Cursor+1]
		segKm := geo.HaversineKm(res.Position, next)
		if segKm <= remaining {
			res.Position = next
			res.Heading = geo.BearingDeg(rt.Points[rt.Cursor], next)
			res.TraveledKm += segKm
			remaining -= segKm
			rt.Cursor++
			continue
		}
		t := remaining / segKm
		res.Heading = geo.BearingDeg(res.Position, next)
		res.Position = geo.Lerp(res.Position, next, t)
		res.TraveledKm += remaining
		remaining = 0
	}
	return res
}
