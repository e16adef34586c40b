package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-traffic-sim/internal/config"
	"github.com/ukydev/fleet-traffic-sim/internal/geo"
	"github.com/ukydev/fleet-traffic-sim/internal/models"
	"github.com/ukydev/fleet-traffic-sim/internal/routing"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// straightRoute builds an n-point route from a to b with consistent
// cumulative distance and duration columns.
func straightRoute(a, b models.Location, n int) *models.Route {
	totalM := geo.HaversineM(a, b)
	totalSec := totalM / 1000 / 50 * 3600 // 50 km/h nominal
	wps := make([]models.Waypoint, n)
	for i := 0; i < n; i++ {
		frac := float64(i) / float64(n-1)
		wps[i] = models.Waypoint{
			Location:    geo.Lerp(a, b, frac),
			DistanceM:   frac * totalM,
			DurationSec: frac * totalSec,
		}
	}
	return &models.Route{Waypoints: wps, TotalDistance: totalM, TotalDuration: totalSec}
}

type engineFixture struct {
	engine   *Engine
	vehicles *fakeVehicleStore
	zones    *fakeZoneStore
	router   *fakeRouter
	pub      *fakePublisher
}

func newFixture(router *fakeRouter, vs ...*models.Vehicle) *engineFixture {
	f := &engineFixture{
		vehicles: newFakeVehicleStore(vs...),
		zones:    newFakeZoneStore(),
		router:   router,
		pub:      &fakePublisher{},
	}
	f.engine = New(config.FromEnv(), f.vehicles, f.zones, router, neutralEnv(), &fakeFeed{}, nil, f.pub)
	return f
}

// runTick drives one serialized tick without the wall-clock timer.
func (f *engineFixture) runTick() {
	f.engine.mu.Lock()
	f.engine.running = true
	f.engine.mu.Unlock()
	f.engine.tick(time.Now())
}

func TestStartIsIdempotent(t *testing.T) {
	f := newFixture(&fakeRouter{})
	f.engine.cfg.TickInterval = time.Hour // never fires during the test

	f.engine.Start()
	assert.True(t, f.engine.Running())
	f.engine.Start() // duplicate start is a no-op
	assert.True(t, f.engine.Running())

	f.engine.Stop()
	assert.False(t, f.engine.Running())
	f.engine.Stop() // duplicate stop is a no-op
	assert.False(t, f.engine.Running())

	// a fresh start after stop works
	f.engine.Start()
	assert.True(t, f.engine.Running())
	f.engine.Stop()
}

func TestTickMovesVehicleAndBurnsFuel(t *testing.T) {
	dest := geo.Offset(start, 3000, 0)
	v := carAt(start)
	v.Destination = dest
	v.Route = straightRoute(start, dest, 30)

	f := newFixture(&fakeRouter{}, v)
	f.runTick()

	got := f.vehicles.get(v.ID.Hex())
	moved := geo.HaversineM(start, got.CurrentLocation)
	assert.InDelta(t, 40, moved, 1) // 0.04 km budget
	assert.Less(t, got.Fuel, 80.0)
	assert.InDelta(t, 60, got.Speed, 1e-9)

	require.Len(t, f.pub.messages, 1)
	assert.Equal(t, v.ID.Hex(), f.pub.messages[0].VehicleID)
}

func TestFuelMonotonicWhileMoving(t *testing.T) {
	dest := geo.Offset(start, 3000, 0)
	v := carAt(start)
	v.Destination = dest
	v.Route = straightRoute(start, dest, 30)

	f := newFixture(&fakeRouter{}, v)
	last := 80.0
	for i := 0; i < 20; i++ {
		f.runTick()
		got := f.vehicles.get(v.ID.Hex())
		assert.LessOrEqual(t, got.Fuel, last)
		assert.GreaterOrEqual(t, got.Fuel, 0.0)
		last = got.Fuel
	}
}

func TestArrivalRestoresFuelAndFlipsDestination(t *testing.T) {
	dest := geo.Offset(start, 200, 0)
	v := carAt(start)
	v.Destination = dest
	v.Route = straightRoute(start, dest, 5)

	f := newFixture(&fakeRouter{}, v)
	for i := 0; i < 20 && f.vehicles.get(v.ID.Hex()).Status == models.StatusInTransit; i++ {
		f.runTick()
	}

	got := f.vehicles.get(v.ID.Hex())
	assert.Equal(t, models.StatusIdle, got.Status)
	assert.Equal(t, 100.0, got.Fuel)
	// shuttle flip: next destination is the original start
	assert.InDelta(t, 0, geo.HaversineM(got.Destination, start), 1)
	assert.Nil(t, got.Route)
	assert.Nil(t, f.engine.Runtime(v.ID.Hex()))
}

// A vehicle that shuttles A→B and then B→A ends within 1 km of A.
func TestShuttleRoundTripReturnsToStart(t *testing.T) {
	a := start
	b := geo.Offset(start, 3000, 0)
	v := carAt(a)
	v.Destination = b
	v.Route = straightRoute(a, b, 20)

	router := &fakeRouter{routeFn: func(s, e models.Location) (*models.Route, error) {
		return straightRoute(s, e, 20), nil
	}}
	f := newFixture(router, v)

	runLeg := func() {
		for i := 0; i < 200 && f.vehicles.get(v.ID.Hex()).Status == models.StatusInTransit; i++ {
			f.runTick()
		}
		require.Equal(t, models.StatusIdle, f.vehicles.get(v.ID.Hex()).Status)
	}

	runLeg()
	assert.InDelta(t, 0, geo.HaversineM(f.vehicles.get(v.ID.Hex()).CurrentLocation, b), 100)

	// external redeploy toward the flipped destination
	require.NoError(t, f.vehicles.UpdateStatus(context.Background(), v.ID.Hex(), models.StatusInTransit))
	runLeg()

	end := f.vehicles.get(v.ID.Hex()).CurrentLocation
	assert.Less(t, geo.HaversineM(end, a), 1000.0)
}

// Scenario: red density increments the counter by 3, so 6 zero-progress
// ticks cross the threshold of 17 and fire exactly one reroute.
func TestStuckEscalationUnderRedDensity(t *testing.T) {
	v := carAt(start)
	v.Destination = geo.Offset(start, 100, 0)
	f := newFixture(&fakeRouter{}, v)
	rt := &RouteRuntime{Phase: PhaseNoRoute}
	require.NoError(t, rt.Activate([]models.Location{start, v.Destination}))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f.engine.detectStuck(ctx, v, rt, start, start, "red")
		assert.Equal(t, PhaseRouteActive, rt.Phase, "tick %d", i+1)
		assert.Equal(t, (i+1)*3, rt.StuckCounter)
	}
	f.engine.detectStuck(ctx, v, rt, start, start, "red")
	assert.Equal(t, PhaseNoRoute, rt.Phase)
	assert.Zero(t, rt.StuckCounter)
}

func TestStuckEscalationNormalDensity(t *testing.T) {
	v := carAt(start)
	v.Destination = geo.Offset(start, 100, 0)
	f := newFixture(&fakeRouter{}, v)
	rt := &RouteRuntime{Phase: PhaseNoRoute}
	require.NoError(t, rt.Activate([]models.Location{start, v.Destination}))
	ctx := context.Background()

	for i := 0; i < 16; i++ {
		f.engine.detectStuck(ctx, v, rt, start, start, "none")
	}
	assert.Equal(t, PhaseRouteActive, rt.Phase)
	assert.Equal(t, 16, rt.StuckCounter)

	f.engine.detectStuck(ctx, v, rt, start, start, "none")
	assert.Equal(t, PhaseNoRoute, rt.Phase)
	assert.Zero(t, rt.StuckCounter)
}

func TestStuckCounterResetsOnProgress(t *testing.T) {
	v := carAt(start)
	v.Destination = geo.Offset(start, 5000, 0)
	f := newFixture(&fakeRouter{}, v)
	rt := &RouteRuntime{Phase: PhaseNoRoute}
	require.NoError(t, rt.Activate([]models.Location{start, v.Destination}))
	ctx := context.Background()

	f.engine.detectStuck(ctx, v, rt, start, start, "red")
	f.engine.detectStuck(ctx, v, rt, start, start, "red")
	assert.Equal(t, 6, rt.StuckCounter)

	// 60 m qualifies as progress and resets immediately
	f.engine.detectStuck(ctx, v, rt, start, geo.Offset(start, 60, 0), "red")
	assert.Zero(t, rt.StuckCounter)
	assert.Equal(t, PhaseRouteActive, rt.Phase)
}

// A forced reroute must clear the persisted snapshot too, or the next
// acquisition replays the stale polyline from its first point.
func TestStuckRerouteClearsPersistedSnapshot(t *testing.T) {
	dest := geo.Offset(start, 3000, 0)
	v := carAt(start)
	v.Destination = dest
	v.Route = straightRoute(start, dest, 20)

	f := newFixture(&fakeRouter{}, v)
	rt := &RouteRuntime{Phase: PhaseNoRoute}
	require.NoError(t, rt.Activate(v.Route.Points()))
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		f.engine.detectStuck(ctx, v, rt, start, start, "red")
	}
	assert.Equal(t, PhaseNoRoute, rt.Phase)
	assert.Nil(t, v.Route)
	got := f.vehicles.get(v.ID.Hex())
	assert.Nil(t, got.Route)
	assert.Nil(t, got.AlternativeRoute)
}

// The per-tick movement budget (~40 m) sits below the minimum-progress
// displacement, so a long leg trips the stuck detector repeatedly. Each
// forced reroute must fetch a fresh route from the current position and
// the vehicle must still arrive.
func TestForcedRerouteStillArrives(t *testing.T) {
	dest := geo.Offset(start, 3000, 0)
	v := carAt(start)
	v.Destination = dest

	router := &fakeRouter{routeFn: func(s, e models.Location) (*models.Route, error) {
		return straightRoute(s, e, 20), nil
	}}
	f := newFixture(router, v)

	for i := 0; i < 300 && f.vehicles.get(v.ID.Hex()).Status == models.StatusInTransit; i++ {
		f.runTick()
	}

	got := f.vehicles.get(v.ID.Hex())
	assert.Equal(t, models.StatusIdle, got.Status)
	assert.InDelta(t, 0, geo.HaversineM(got.CurrentLocation, dest), 100)
	// rerouting went back to the provider, not the stale snapshot
	assert.Greater(t, f.router.calls, 1)
}

func TestRoutingFailureSkipsTickWithoutFallback(t *testing.T) {
	dest := geo.Offset(start, 3000, 0)
	v := carAt(start)
	v.Destination = dest

	f := newFixture(&fakeRouter{routeErr: routing.ErrUnavailable}, v)
	f.runTick()

	got := f.vehicles.get(v.ID.Hex())
	// stationary, still in transit, no synthesized route
	assert.Equal(t, start, got.CurrentLocation)
	assert.Equal(t, models.StatusInTransit, got.Status)
	assert.Nil(t, got.Route)
	assert.Equal(t, PhaseNoRoute, f.engine.Runtime(v.ID.Hex()).Phase)

	// recovery: provider back up, next tick acquires and moves
	f.router.routeErr = nil
	f.router.route = straightRoute(start, dest, 20)
	f.runTick()
	assert.Greater(t, geo.HaversineM(start, f.vehicles.get(v.ID.Hex()).CurrentLocation), 1.0)
}

func TestBetterAlternativeNeedsApproval(t *testing.T) {
	dest := geo.Offset(start, 4000, 0)
	v := carAt(start)
	v.Destination = dest

	// the default route passes right through an incident; the alternative
	// swings wide of it
	direct := straightRoute(start, dest, 20)
	direct.TotalDuration = 300
	detour := straightRoute(geo.Offset(start, 0, 2000), geo.Offset(dest, 0, 2000), 20)
	detour.TotalDuration = 400

	inc := models.Incident{
		ID:           "inc-1",
		Location:     geo.Offset(start, 400, 0),
		DelayMinutes: 30,
		Severity:     models.SeverityHigh,
	}
	router := &fakeRouter{route: direct, alts: []models.Route{*direct, *detour}}
	f := newFixture(router, v)
	f.engine.feed = &fakeFeed{incidents: []models.Incident{inc}}

	f.runTick()

	got := f.vehicles.get(v.ID.Hex())
	assert.Equal(t, models.StatusNeedsApproval, got.Status)
	require.NotNil(t, got.AlternativeRoute)
	assert.Nil(t, got.Route)
	assert.Equal(t, PhasePendingApproval, f.engine.Runtime(v.ID.Hex()).Phase)
	// parked: no movement happened
	assert.Equal(t, start, got.CurrentLocation)
}

func TestApprovedAlternativeActivates(t *testing.T) {
	dest := geo.Offset(start, 3000, 0)
	v := carAt(start)
	v.Destination = dest
	v.AlternativeRoute = straightRoute(start, dest, 20)

	f := newFixture(&fakeRouter{}, v)
	f.runTick()

	got := f.vehicles.get(v.ID.Hex())
	require.NotNil(t, got.Route)
	assert.Nil(t, got.AlternativeRoute)
	assert.Equal(t, PhaseRouteActive, f.engine.Runtime(v.ID.Hex()).Phase)
	assert.Greater(t, geo.HaversineM(start, got.CurrentLocation), 1.0)
	assert.Zero(t, f.router.calls)
}

func TestDefaultRouteWinsAppliesDirectly(t *testing.T) {
	dest := geo.Offset(start, 4000, 0)
	v := carAt(start)
	v.Destination = dest

	direct := straightRoute(start, dest, 20)
	direct.TotalDuration = 300
	worse := straightRoute(geo.Offset(start, 0, 2000), geo.Offset(dest, 0, 2000), 20)
	worse.TotalDuration = 4000

	inc := models.Incident{
		ID:           "inc-1",
		Location:     geo.Offset(start, 500, 2000), // near neither route start
		DelayMinutes: 5,
		Severity:     models.SeverityLow,
	}
	router := &fakeRouter{route: direct, alts: []models.Route{*direct, *worse}}
	f := newFixture(router, v)
	f.engine.feed = &fakeFeed{incidents: []models.Incident{inc}}

	f.runTick()

	got := f.vehicles.get(v.ID.Hex())
	assert.Equal(t, models.StatusInTransit, got.Status)
	require.NotNil(t, got.Route)
	assert.Nil(t, got.AlternativeRoute)
	assert.Greater(t, geo.HaversineM(start, got.CurrentLocation), 1.0)
}

func TestZoneUpdatePersistsCountsAndBounds(t *testing.T) {
	dest := geo.Offset(start, 3000, 0)
	v := carAt(start)
	v.Destination = dest
	v.Route = straightRoute(start, dest, 20)

	zone := &models.Zone{
		ID:       primitive.NewObjectID(),
		Name:     "center",
		Center:   start,
		RadiusKm: 2,
	}
	empty := &models.Zone{
		ID:       primitive.NewObjectID(),
		Name:     "far",
		Center:   geo.Offset(start, 50000, 0),
		RadiusKm: 2,
	}
	f := newFixture(&fakeRouter{}, v)
	f.zones = newFakeZoneStore(zone, empty)
	f.engine.zones = f.zones

	f.runTick()

	assert.Equal(t, 1, f.zones.counts[zone.ID.Hex()])
	assert.Equal(t, 0, f.zones.counts[empty.ID.Hex()])
	for _, z := range f.zones.zones {
		assert.GreaterOrEqual(t, z.Congestion, 15.0)
		assert.LessOrEqual(t, z.Congestion, 100.0)
	}
}

func TestMalformedZoneSkipped(t *testing.T) {
	v := carAt(start)
	v.Destination = geo.Offset(start, 3000, 0)
	v.Route = straightRoute(start, v.Destination, 20)

	bad := &models.Zone{ID: primitive.NewObjectID(), Name: "broken"} // no center, no radius
	f := newFixture(&fakeRouter{}, v)
	f.zones = newFakeZoneStore(bad)
	f.engine.zones = f.zones

	f.runTick() // must not panic or error out

	assert.Zero(t, f.zones.zones[bad.ID.Hex()].Congestion)
	// the vehicle still moved
	assert.Greater(t, geo.HaversineM(start, f.vehicles.get(v.ID.Hex()).CurrentLocation), 1.0)
}

func TestTickSkipsWhenPreviousInFlight(t *testing.T) {
	f := newFixture(&fakeRouter{})
	f.engine.mu.Lock()
	f.engine.running = true
	f.engine.inTick = true
	f.engine.mu.Unlock()

	done := make(chan struct{})
	go func() {
		f.engine.tick(time.Now()) // must return immediately
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("overlapping tick did not return")
	}
}
