package sim

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-traffic-sim/internal/geo"
	"github.com/ukydev/fleet-traffic-sim/internal/incident"
	"github.com/ukydev/fleet-traffic-sim/internal/models"
	"github.com/ukydev/fleet-traffic-sim/internal/routing"
)

// acquireRoute gives a vehicle with no active route something to drive.
// Provider failure means the vehicle simply waits for the next tick; a
// straight-line fallback is never synthesized.
func (e *Engine) acquireRoute(ctx context.Context, v *models.Vehicle, rt *RouteRuntime, incidents []models.Incident) error {
	// An externally approved alternative takes precedence over refetching.
	if v.AlternativeRoute != nil && len(v.AlternativeRoute.Waypoints) >= 2 {
		approved := v.AlternativeRoute
		if err := rt.Activate(approved.Points()); err != nil {
			return err
		}
		if err := e.vehicles.UpdateRouteSnapshots(ctx, v.ID.Hex(), approved, nil); err != nil {
			log.WithError(err).WithField("vehicle_id", v.ID.Hex()).Error("Failed to persist approved route")
		}
		log.WithField("vehicle_id", v.ID.Hex()).Info("Activated approved alternative route")
		return nil
	}

	// A persisted snapshot survives engine restarts.
	if v.Route != nil && len(v.Route.Waypoints) >= 2 {
		return rt.Activate(v.Route.Points())
	}

	primary, err := e.router.Route(ctx, v.CurrentLocation, v.Destination, routing.Options{Overview: "full"})
	if err != nil {
		return fmt.Errorf("route acquisition: %w", err)
	}
	if primary == nil || len(primary.Waypoints) < 2 {
		return fmt.Errorf("route acquisition: provider returned no usable route")
	}

	candidates := []models.Route{*primary}
	if e.threatNearby(v.CurrentLocation, incidents) {
		alts, altErr := e.router.Alternatives(ctx, v.CurrentLocation, v.Destination)
		if altErr != nil {
			log.WithError(altErr).WithField("vehicle_id", v.ID.Hex()).Warn("Alternatives unavailable, using primary route")
		} else if len(alts) > 1 {
			candidates = alts
		}
	}

	best := 0
	bestScore := e.scoreRoute(&candidates[0], incidents)
	for i := 1; i < len(candidates); i++ {
		if s := e.scoreRoute(&candidates[i], incidents); s < bestScore {
			bestScore = s
			best = i
		}
	}

	if best != 0 {
		// A non-default winner needs external approval before it drives
		// the vehicle; until then the vehicle stays parked.
		winner := candidates[best]
		rt.AwaitApproval()
		if err := e.vehicles.UpdateRouteSnapshots(ctx, v.ID.Hex(), nil, &winner); err != nil {
			return fmt.Errorf("persist pending alternative: %w", err)
		}
		if err := e.vehicles.UpdateStatus(ctx, v.ID.Hex(), models.StatusNeedsApproval); err != nil {
			return fmt.Errorf("set needs_approval: %w", err)
		}
		log.WithFields(log.Fields{
			"vehicle_id": v.ID.Hex(),
			"score":      bestScore,
			"candidates": len(candidates),
		}).Info("Better alternative found, awaiting approval")
		return nil
	}

	chosen := candidates[0]
	if err := rt.Activate(chosen.Points()); err != nil {
		return err
	}
	if err := e.vehicles.UpdateRouteSnapshots(ctx, v.ID.Hex(), &chosen, nil); err != nil {
		log.WithError(err).WithField("vehicle_id", v.ID.Hex()).Error("Failed to persist route snapshot")
	}
	log.WithFields(log.Fields{
		"vehicle_id":  v.ID.Hex(),
		"distance_km": chosen.TotalDistance / 1000,
		"duration_m":  chosen.TotalDuration / 60,
	}).Info("Route acquired")
	return nil
}

// threatNearby reports whether active incidents or known hotspots sit
// within the alternative-evaluation proximity of the vehicle.
func (e *Engine) threatNearby(pos models.Location, incidents []models.Incident) bool {
	for _, inc := range incidents {
		if geo.HaversineKm(pos, inc.Location) <= e.cfg.IncidentProximityKm {
			return true
		}
	}
	for _, hs := range e.hotspots() {
		if geo.HaversineKm(pos, hs.Location) <= e.cfg.HotspotProximityKm {
			return true
		}
	}
	return false
}

// scoreRoute scores a candidate as its total duration plus incident and
// hotspot penalties sampled along the waypoints at a fixed stride. Lower
// is better.
func (e *Engine) scoreRoute(route *models.Route, incidents []models.Incident) float64 {
	score := route.TotalDuration
	stride := e.cfg.ScoreSampleStride
	if stride < 1 {
		stride = 1
	}
	for i := 0; i < len(route.Waypoints); i += stride {
		wp := route.Waypoints[i].Location
		for _, inc := range incidents {
			if geo.HaversineKm(wp, inc.Location) <= e.cfg.IncidentSlowRadiusKm {
				score += inc.DelayMinutes * 60
			}
		}
		for _, hs := range e.hotspots() {
			if geo.HaversineKm(wp, hs.Location) <= e.cfg.HotspotProximityKm {
				score += e.cfg.HotspotPenaltySec * hs.Severity.CostFactor()
			}
		}
	}
	return score
}

func (e *Engine) hotspots() []incident.Hotspot {
	if e.feed == nil {
		return nil
	}
	return e.feed.Hotspots()
}
