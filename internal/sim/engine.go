// Package sim contains the tick-driven simulation engine: the scheduler
// loop, per-vehicle route handling, movement, fuel and congestion updates.
package sim

import (
	"context"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-traffic-sim/internal/ai"
	"github.com/ukydev/fleet-traffic-sim/internal/config"
	"github.com/ukydev/fleet-traffic-sim/internal/db"
	"github.com/ukydev/fleet-traffic-sim/internal/geo"
	"github.com/ukydev/fleet-traffic-sim/internal/incident"
	"github.com/ukydev/fleet-traffic-sim/internal/models"
	"github.com/ukydev/fleet-traffic-sim/internal/routing"
)

// Router is the routing-provider surface the engine needs.
type Router interface {
	Route(ctx context.Context, start, end models.Location, opts routing.Options) (*models.Route, error)
	Alternatives(ctx context.Context, start, end models.Location) ([]models.Route, error)
}

// Environment is the environment-engine surface the engine needs.
type Environment interface {
	Advance(now time.Time)
	Snapshot() models.EnvironmentState
	IncidentProbability() float64
}

// IncidentFeed supplies live incidents and the fixed hotspot table.
type IncidentFeed interface {
	Current(now time.Time, weather models.WeatherCondition, spawnProb float64) []models.Incident
	Hotspots() []incident.Hotspot
}

// Publisher pushes per-tick telemetry out of the process. A nil Publisher
// disables publishing.
type Publisher interface {
	Publish(t models.Telemetry) error
}

// Engine owns the tick loop. It is the application context object: one
// engine instance holds the single scheduler handle, and starting an
// already started engine is a no-op.
type Engine struct {
	cfg      config.Config
	vehicles db.VehicleStore
	zones    db.ZoneStore
	router   Router
	env      Environment
	feed     IncidentFeed
	provider ai.Provider
	pub      Publisher
	rng      *rand.Rand

	// runtime is touched only from within the serialized tick.
	runtime map[string]*RouteRuntime

	mu      sync.Mutex
	ticker  *time.Ticker
	done    chan struct{}
	running bool
	inTick  bool
}

// New wires up an engine. provider and pub may be nil.
func New(cfg config.Config, vehicles db.VehicleStore, zones db.ZoneStore, router Router, env Environment, feed IncidentFeed, provider ai.Provider, pub Publisher) *Engine {
	return &Engine{
		cfg:      cfg,
		vehicles: vehicles,
		zones:    zones,
		router:   router,
		env:      env,
		feed:     feed,
		provider: provider,
		pub:      pub,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		runtime:  make(map[string]*RouteRuntime),
	}
}

// Start begins the tick loop. Calling Start on a running engine is a
// no-op; the singleton check lives on the engine instance itself.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		log.Warn("Simulation engine already running, ignoring duplicate start")
		return
	}
	e.running = true
	e.ticker = time.NewTicker(e.cfg.TickInterval)
	e.done = make(chan struct{})

	log.WithFields(log.Fields{
		"tick_interval": e.cfg.TickInterval,
		"time_scale":    e.cfg.TimeScale,
	}).Info("Simulation engine started")

	go func(ticker *time.Ticker, done chan struct{}) {
		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				e.tick(now)
			}
		}
	}(e.ticker, e.done)
}

// Stop halts the tick loop and clears the active handle so a later Start
// cannot race a stale one. In-flight external calls are not cancelled;
// their results are discarded because the loop goroutine has exited.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	e.running = false
	e.ticker.Stop()
	close(e.done)
	e.ticker = nil
	e.done = nil
	log.Info("Simulation engine stopped")
}

// Running reports whether the engine loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// tick runs one full simulation step. Ticks never overlap: if the
// previous tick is still in flight the timer fire is skipped.
func (e *Engine) tick(now time.Time) {
	e.mu.Lock()
	if e.inTick || !e.running {
		e.mu.Unlock()
		return
	}
	e.inTick = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.inTick = false
		e.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.TickInterval*10)
	defer cancel()

	e.env.Advance(now)
	env := e.env.Snapshot()
	incidents := e.feed.Current(env.SimulatedTime, env.Condition, e.env.IncidentProbability())

	vehicles, err := e.vehicles.ListInTransit(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to list in-transit vehicles, skipping tick")
		return
	}
	zones, err := e.zones.List(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to list zones")
		zones = nil
	}

	for i := range vehicles {
		e.updateVehicleSafe(ctx, &vehicles[i], env, incidents, zones)
	}
	e.pruneRuntime(vehicles)
	e.updateZones(ctx, zones, vehicles, env)
}

// updateVehicleSafe isolates per-vehicle failures: one vehicle panicking
// or erroring never aborts the rest of the tick.
func (e *Engine) updateVehicleSafe(ctx context.Context, v *models.Vehicle, env models.EnvironmentState, incidents []models.Incident, zones []models.Zone) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"vehicle_id": v.ID.Hex(),
				"panic":      r,
			}).Error("Vehicle update panicked, continuing with next vehicle")
		}
	}()
	if err := e.updateVehicle(ctx, v, env, incidents, zones); err != nil {
		log.WithError(err).WithField("vehicle_id", v.ID.Hex()).Warn("Vehicle update failed this tick")
	}
}

func (e *Engine) updateVehicle(ctx context.Context, v *models.Vehicle, env models.EnvironmentState, incidents []models.Incident, zones []models.Zone) error {
	id := v.ID.Hex()
	rt, ok := e.runtime[id]
	if !ok {
		rt = newRuntime(v)
		e.runtime[id] = rt
	}

	if rt.Phase != PhaseRouteActive {
		if err := e.acquireRoute(ctx, v, rt, incidents); err != nil {
			return err
		}
		if rt.Phase != PhaseRouteActive {
			// parked awaiting approval
			return nil
		}
	}

	density := e.localDensity(v.CurrentLocation, zones)
	decision := e.maybeDecide(ctx, v, env, incidents, density)
	speed := e.effectiveSpeed(v, incidents, density, decision)

	budgetKm := speed * env.SpeedFactor() * e.cfg.TickInterval.Hours() * e.cfg.TimeScale
	startPos := v.CurrentLocation
	res := walkRoute(rt, startPos, budgetKm, e.cfg.MaxWalkIterations, e.cfg.RouteDriftKm)
	if res.Capped {
		log.WithField("vehicle_id", id).Warn("Walk iteration cap hit, resuming next tick")
	}
	v.CurrentLocation = res.Position

	e.detectStuck(ctx, v, rt, startPos, res.Position, density)

	v.Fuel = e.consumeFuel(v.Fuel, res.TraveledKm, speed)
	if v.Fuel < e.cfg.LowFuelThreshold {
		log.WithFields(log.Fields{
			"vehicle_id": id,
			"fuel":       v.Fuel,
		}).Warn("Fuel low, refuel routing required")
	}

	if err := e.vehicles.UpdateLocation(ctx, id, res.Position.Lat, res.Position.Lng, speed, res.Heading); err != nil {
		return err
	}
	if err := e.vehicles.UpdateFuel(ctx, id, v.Fuel); err != nil {
		return err
	}

	if rt.AtFinalWaypoint() {
		if err := e.handleArrival(ctx, v, rt); err != nil {
			return err
		}
	}

	e.publish(v, res.Heading, speed)
	return nil
}

// detectStuck escalates a reroute when the vehicle fails to make the
// minimum displacement, counting faster under red local density. Any
// qualifying displacement resets the counter immediately. A forced
// reroute drops the persisted route snapshot as well, so the next
// acquisition asks the provider from the current position instead of
// replaying the stale polyline.
func (e *Engine) detectStuck(ctx context.Context, v *models.Vehicle, rt *RouteRuntime, before, after models.Location, density string) {
	if rt.Phase != PhaseRouteActive {
		return
	}
	displacement := geo.HaversineM(before, after)
	if displacement >= e.cfg.MinProgressM {
		rt.StuckCounter = 0
		return
	}
	inc := e.cfg.StuckIncrement
	if density == "red" {
		inc = e.cfg.StuckIncrementRed
	}
	rt.StuckCounter += inc
	if rt.StuckCounter >= e.cfg.StuckThreshold {
		id := v.ID.Hex()
		log.WithFields(log.Fields{
			"vehicle_id": id,
			"counter":    rt.StuckCounter,
		}).Info("Vehicle stuck, forcing reroute")
		rt.ForceReroute()
		v.Route = nil
		v.AlternativeRoute = nil
		if err := e.vehicles.UpdateRouteSnapshots(ctx, id, nil, nil); err != nil {
			log.WithError(err).WithField("vehicle_id", id).Error("Failed to clear route snapshots")
		}
	}
}

// handleArrival runs the shuttle state machine: restore fuel, flip the
// destination to the opposite endpoint and go idle until redeployed.
func (e *Engine) handleArrival(ctx context.Context, v *models.Vehicle, rt *RouteRuntime) error {
	id := v.ID.Hex()
	rt.Arrive()

	toDest := geo.HaversineM(v.CurrentLocation, rt.OriginalDest)
	toStart := geo.HaversineM(v.CurrentLocation, rt.OriginalStart)
	tolerance := e.cfg.ArrivalToleranceKm * 1000

	// Default: head back toward the original start.
	next := rt.OriginalStart
	if toStart <= tolerance && toStart < toDest {
		// completed the return leg, shuttle out again
		next = rt.OriginalDest
	}

	if err := e.vehicles.UpdateStatus(ctx, id, models.StatusIdle); err != nil {
		return err
	}
	v.Status = models.StatusIdle
	if err := e.vehicles.UpdateFuel(ctx, id, 100); err != nil {
		return err
	}
	v.Fuel = 100
	if err := e.vehicles.UpdateDestination(ctx, id, next.Lat, next.Lng); err != nil {
		return err
	}
	if err := e.vehicles.UpdateRouteSnapshots(ctx, id, nil, nil); err != nil {
		log.WithError(err).WithField("vehicle_id", id).Error("Failed to clear route snapshots")
	}
	delete(e.runtime, id)

	log.WithFields(log.Fields{
		"vehicle_id": id,
		"next_dest":  next,
	}).Info("Vehicle arrived, shuttle destination flipped")
	return nil
}

// pruneRuntime drops runtime state for vehicles no longer in transit.
func (e *Engine) pruneRuntime(current []models.Vehicle) {
	seen := make(map[string]bool, len(current))
	for i := range current {
		seen[current[i].ID.Hex()] = true
	}
	for id, rt := range e.runtime {
		if !seen[id] && rt.Phase != PhasePendingApproval {
			delete(e.runtime, id)
		}
	}
}

func (e *Engine) publish(v *models.Vehicle, heading, speed float64) {
	if e.pub == nil {
		return
	}
	err := e.pub.Publish(models.Telemetry{
		VehicleID: v.ID.Hex(),
		Timestamp: time.Now(),
		Location:  v.CurrentLocation,
		Speed:     speed,
		Heading:   heading,
		Fuel:      v.Fuel,
		Status:    v.Status,
	})
	if err != nil {
		log.WithError(err).Debug("Telemetry publish failed")
	}
}

// Runtime returns the runtime state for a vehicle, if any. Exposed for
// inspection and tests.
func (e *Engine) Runtime(id string) *RouteRuntime {
	return e.runtime[id]
}
