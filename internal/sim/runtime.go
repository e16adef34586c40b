package sim

import (
	"fmt"

	"github.com/ukydev/fleet-traffic-sim/internal/models"
)

// RoutePhase is the state of a vehicle's route lifecycle.
type RoutePhase string

const (
	PhaseNoRoute         RoutePhase = "no_route"
	PhaseRouteActive     RoutePhase = "route_active"
	PhasePendingApproval RoutePhase = "pending_approval"
	PhaseArrived         RoutePhase = "arrived"
)

// RouteRuntime is the per-vehicle ephemeral route state. It exists only
// while a vehicle is being driven by the engine; the persisted vehicle
// record stays the source of truth.
type RouteRuntime struct {
	Phase         RoutePhase
	Points        []models.Location
	Cursor        int
	StuckCounter  int
	LastPosition  models.Location
	OriginalStart models.Location
	OriginalDest  models.Location
}

// newRuntime creates runtime state for a vehicle with no active route.
func newRuntime(v *models.Vehicle) *RouteRuntime {
	return &RouteRuntime{
		Phase:         PhaseNoRoute,
		LastPosition:  v.CurrentLocation,
		OriginalStart: v.CurrentLocation,
		OriginalDest:  v.Destination,
	}
}

// Activate installs a route and moves to RouteActive. The cursor restarts
// at zero; this is the only transition allowed to move it backwards.
func (rt *RouteRuntime) Activate(points []models.Location) error {
	if len(points) < 2 {
		return fmt.Errorf("route needs at least 2 points, got %d", len(points))
	}
	rt.Phase = PhaseRouteActive
	rt.Points = points
	rt.Cursor = 0
	rt.StuckCounter = 0
	return nil
}

// AwaitApproval drops the active route and parks the vehicle until an
// external approval puts it back in transit.
func (rt *RouteRuntime) AwaitApproval() {
	rt.Phase = PhasePendingApproval
	rt.Points = nil
	rt.Cursor = 0
	rt.StuckCounter = 0
}

// ForceReroute discards the route so the next tick re-acquires one.
func (rt *RouteRuntime) ForceReroute() {
	rt.Phase = PhaseNoRoute
	rt.Points = nil
	rt.Cursor = 0
	rt.StuckCounter = 0
}

// Arrive marks the route completed.
func (rt *RouteRuntime) Arrive() {
	rt.Phase = PhaseArrived
	rt.Points = nil
	rt.Cursor = 0
	rt.StuckCounter = 0
}

// AtFinalWaypoint reports whether the cursor has consumed the whole route.
func (rt *RouteRuntime) AtFinalWaypoint() bool {
	return rt.Phase == PhaseRouteActive && len(rt.Points) > 0 && rt.Cursor >= len(rt.Points)-1
}
