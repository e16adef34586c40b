package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ukydev/fleet-traffic-sim/internal/incident"
	"github.com/ukydev/fleet-traffic-sim/internal/models"
	"github.com/ukydev/fleet-traffic-sim/internal/routing"
)

type fakeVehicleStore struct {
	mu       sync.Mutex
	vehicles map[string]*models.Vehicle
	listErr  error
}

func newFakeVehicleStore(vs ...*models.Vehicle) *fakeVehicleStore {
	s := &fakeVehicleStore{vehicles: make(map[string]*models.Vehicle)}
	for _, v := range vs {
		s.vehicles[v.ID.Hex()] = v
	}
	return s
}

func (s *fakeVehicleStore) ListInTransit(ctx context.Context) ([]models.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.Vehicle
	for _, v := range s.vehicles {
		if v.Status == models.StatusInTransit {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (s *fakeVehicleStore) FindByID(ctx context.Context, id string) (*models.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return nil, errors.New("vehicle not found")
	}
	cp := *v
	return &cp, nil
}

func (s *fakeVehicleStore) Insert(ctx context.Context, v models.Vehicle) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles[v.ID.Hex()] = &v
	return v.ID.Hex(), nil
}

func (s *fakeVehicleStore) UpdateLocation(ctx context.Context, id string, lat, lng, speed, heading float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return errors.New("vehicle not found")
	}
	v.CurrentLocation = models.Location{Lat: lat, Lng: lng}
	v.Speed = speed
	v.Heading = heading
	return nil
}

func (s *fakeVehicleStore) UpdateFuel(ctx context.Context, id string, fuel float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return errors.New("vehicle not found")
	}
	v.Fuel = fuel
	return nil
}

func (s *fakeVehicleStore) UpdateStatus(ctx context.Context, id string, status models.VehicleStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return errors.New("vehicle not found")
	}
	v.Status = status
	return nil
}

func (s *fakeVehicleStore) UpdateDestination(ctx context.Context, id string, lat, lng float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return errors.New("vehicle not found")
	}
	v.Destination = models.Location{Lat: lat, Lng: lng}
	return nil
}

func (s *fakeVehicleStore) UpdateRouteSnapshots(ctx context.Context, id string, route, alternative *models.Route) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return errors.New("vehicle not found")
	}
	v.Route = route
	v.AlternativeRoute = alternative
	return nil
}

func (s *fakeVehicleStore) get(id string) models.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.vehicles[id]
}

type fakeZoneStore struct {
	mu     sync.Mutex
	zones  map[string]*models.Zone
	counts map[string]int
}

func newFakeZoneStore(zs ...*models.Zone) *fakeZoneStore {
	s := &fakeZoneStore{zones: make(map[string]*models.Zone), counts: make(map[string]int)}
	for _, z := range zs {
		s.zones[z.ID.Hex()] = z
	}
	return s
}

func (s *fakeZoneStore) List(ctx context.Context) ([]models.Zone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Zone
	for _, z := range s.zones {
		out = append(out, *z)
	}
	return out, nil
}

func (s *fakeZoneStore) Insert(ctx context.Context, z models.Zone) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zones[z.ID.Hex()] = &z
	return z.ID.Hex(), nil
}

func (s *fakeZoneStore) UpdateCongestion(ctx context.Context, id string, level float64, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zones[id]
	if !ok {
		return errors.New("zone not found")
	}
	z.Congestion = level
	z.VehicleCount = count
	s.counts[id] = count
	return nil
}

type fakeRouter struct {
	route    *models.Route
	routeFn  func(start, end models.Location) (*models.Route, error)
	alts     []models.Route
	routeErr error
	altErr   error
	calls    int
}

func (r *fakeRouter) Route(ctx context.Context, start, end models.Location, opts routing.Options) (*models.Route, error) {
	r.calls++
	if r.routeErr != nil {
		return nil, r.routeErr
	}
	if r.routeFn != nil {
		return r.routeFn(start, end)
	}
	return r.route, nil
}

func (r *fakeRouter) Alternatives(ctx context.Context, start, end models.Location) ([]models.Route, error) {
	if r.altErr != nil {
		return nil, r.altErr
	}
	return r.alts, nil
}

type fakeEnv struct {
	state models.EnvironmentState
	prob  float64
}

func (f *fakeEnv) Advance(now time.Time)             {}
func (f *fakeEnv) Snapshot() models.EnvironmentState { return f.state }
func (f *fakeEnv) IncidentProbability() float64      { return f.prob }

func neutralEnv() *fakeEnv {
	return &fakeEnv{state: models.EnvironmentState{
		Condition:             models.WeatherClear,
		SimulatedTime:         time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
		WeatherSpeedFactor:    1,
		CongestionSpeedFactor: 1,
	}}
}

type fakeFeed struct {
	incidents []models.Incident
	hotspots  []incident.Hotspot
}

func (f *fakeFeed) Current(now time.Time, weather models.WeatherCondition, spawnProb float64) []models.Incident {
	return f.incidents
}

func (f *fakeFeed) Hotspots() []incident.Hotspot { return f.hotspots }

type fakePublisher struct {
	mu       sync.Mutex
	messages []models.Telemetry
}

func (p *fakePublisher) Publish(t models.Telemetry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, t)
	return nil
}
