package sim

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-traffic-sim/internal/geo"
	"github.com/ukydev/fleet-traffic-sim/internal/models"
)

// updateZones recomputes per-zone congestion from vehicle density and
// time-of-day effects and persists the result. Runs once per tick after
// all vehicles moved. Malformed zone records are skipped.
func (e *Engine) updateZones(ctx context.Context, zones []models.Zone, vehicles []models.Vehicle, env models.EnvironmentState) {
	for i := range zones {
		z := &zones[i]
		if z.RadiusKm <= 0 || (z.Center.Lat == 0 && z.Center.Lng == 0) {
			log.WithField("zone", z.Name).Warn("Zone record missing geo fields, skipping")
			continue
		}

		count := 0
		for j := range vehicles {
			if geo.HaversineKm(vehicles[j].CurrentLocation, z.Center) <= z.RadiusKm {
				count++
			}
		}

		congestion := e.zoneCongestion(count, env)
		if err := e.zones.UpdateCongestion(ctx, z.ID.Hex(), congestion, count); err != nil {
			log.WithError(err).WithField("zone", z.Name).Error("Failed to persist zone congestion")
		}
	}
}

// zoneCongestion computes the congestion level for a zone holding count
// in-transit vehicles, clamped to [15,100].
func (e *Engine) zoneCongestion(count int, env models.EnvironmentState) float64 {
	base := 20 + e.rng.Float64()*30
	base += densityTier(count)
	if env.RushHour {
		base += 20
	}
	base += e.rng.Float64()*20 - 10
	if base < 15 {
		return 15
	}
	if base > 100 {
		return 100
	}
	return base
}

func densityTier(count int) float64 {
	switch {
	case count > 5:
		return 40
	case count > 2:
		return 25
	case count > 0:
		return 10
	default:
		return 0
	}
}
