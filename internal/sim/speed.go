package sim

import (
	"math"

	"github.com/ukydev/fleet-traffic-sim/internal/geo"
	"github.com/ukydev/fleet-traffic-sim/internal/models"
)

// localDensity returns the most severe congestion marker overlapping the
// vehicle: "red" overrides "yellow" overrides "none".
func (e *Engine) localDensity(pos models.Location, zones []models.Zone) string {
	severity := "none"
	for i := range zones {
		z := &zones[i]
		if geo.HaversineKm(pos, z.Center) > z.RadiusKm+e.cfg.DensityRadiusKm {
			continue
		}
		switch z.DensitySeverity() {
		case "red":
			return "red"
		case "yellow":
			severity = "yellow"
		}
	}
	return severity
}

// nearbyIncidents filters incidents to those within radiusKm of pos.
func nearbyIncidents(pos models.Location, incidents []models.Incident, radiusKm float64) []models.Incident {
	var out []models.Incident
	for _, inc := range incidents {
		if geo.HaversineKm(pos, inc.Location) <= radiusKm {
			out = append(out, inc)
		}
	}
	return out
}

// effectiveSpeed combines vehicle class, incident proximity, local density
// markers and the tick's AI decision into km/h.
func (e *Engine) effectiveSpeed(v *models.Vehicle, incidents []models.Incident, density string, decision *models.AIDecision) float64 {
	speed := v.Class.BaseSpeedKmh()

	incidentFactor := 1.0
	for _, inc := range nearbyIncidents(v.CurrentLocation, incidents, e.cfg.IncidentSlowRadiusKm) {
		f := 1 - math.Min(0.5, inc.DelayMinutes/60)
		if f < incidentFactor {
			incidentFactor = f
		}
	}
	speed *= incidentFactor

	switch density {
	case "red":
		speed *= e.cfg.RedDensityFactor
	case "yellow":
		speed *= e.cfg.YellowDensityFactor
	}

	if decision != nil {
		adj := decision.SpeedAdjustment()
		if adj > 1.2 {
			adj = 1.2
		}
		speed *= adj
	}
	return speed
}

// consumeFuel applies one tick of fuel burn and returns the new level.
// Below the jam speed the per-km rate is elevated; a small idle drain
// applies every tick regardless.
func (e *Engine) consumeFuel(fuel, traveledKm, speedKmh float64) float64 {
	rate := e.cfg.FuelRatePerKm
	if speedKmh < e.cfg.JamSpeedKmh {
		rate = e.cfg.FuelRateJamPerKm
	}
	fuel -= traveledKm*rate + e.cfg.IdleDrainPerTick
	if fuel < 0 {
		return 0
	}
	if fuel > 100 {
		return 100
	}
	return fuel
}
