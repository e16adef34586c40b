// Package incident generates and expires road incidents for the
// simulation, and knows the fixed hotspot locations with elevated
// incident probability.
package incident

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-traffic-sim/internal/geo"
	"github.com/ukydev/fleet-traffic-sim/internal/models"
)

// Hotspot is a known location with elevated incident probability,
// independent of live incidents.
type Hotspot struct {
	Name     string          `json:"name"`
	Location models.Location `json:"location"`
	Severity models.Severity `json:"severity"`
}

// defaultHotspots covers the main congestion points of the simulated
// operating area (central London).
var defaultHotspots = []Hotspot{
	{Name: "Hyde Park Corner", Location: models.Location{Lat: 51.5027, Lng: -0.1527}, Severity: models.SeverityHigh},
	{Name: "Elephant and Castle", Location: models.Location{Lat: 51.4945, Lng: -0.1003}, Severity: models.SeverityMedium},
	{Name: "Old Street Roundabout", Location: models.Location{Lat: 51.5257, Lng: -0.0875}, Severity: models.SeverityMedium},
	{Name: "Vauxhall Cross", Location: models.Location{Lat: 51.4861, Lng: -0.1253}, Severity: models.SeverityHigh},
	{Name: "Hanger Lane Gyratory", Location: models.Location{Lat: 51.5304, Lng: -0.2930}, Severity: models.SeverityCritical},
}

var incidentTypes = []models.IncidentType{
	models.IncidentAccident,
	models.IncidentConstruction,
	models.IncidentClosure,
	models.IncidentCongestion,
}

// Feed owns the set of live incidents. Expiry is internal: every Current
// call drops incidents past their severity TTL.
type Feed struct {
	mu       sync.Mutex
	rng      *rand.Rand
	seq      int
	active   []models.Incident
	hotspots []Hotspot
}

// NewFeed creates a feed seeded for reproducible runs.
func NewFeed(seed int64) *Feed {
	return &Feed{
		rng:      rand.New(rand.NewSource(seed)),
		hotspots: defaultHotspots,
	}
}

// Hotspots returns the fixed hotspot table.
func (f *Feed) Hotspots() []Hotspot {
	return f.hotspots
}

// Current expires stale incidents, possibly spawns a new one with the
// given probability, and returns the active set. spawnProb comes from the
// environment engine (weather, rush hour, congestion).
func (f *Feed) Current(now time.Time, weather models.WeatherCondition, spawnProb float64) []models.Incident {
	f.mu.Lock()
	defer f.mu.Unlock()

	kept := f.active[:0]
	for _, inc := range f.active {
		if !inc.Expired(now) {
			kept = append(kept, inc)
		}
	}
	f.active = kept

	if f.rng.Float64() < spawnProb {
		inc := f.spawn(now, weather)
		f.active = append(f.active, inc)
		log.WithFields(log.Fields{
			"incident_id": inc.ID,
			"type":        inc.Type,
			"severity":    inc.Severity,
			"delay_min":   inc.DelayMinutes,
		}).Info("New incident")
	}

	out := make([]models.Incident, len(f.active))
	copy(out, f.active)
	return out
}

// spawn creates an incident near a random hotspot. Severity skews worse in
// bad weather. Callers hold f.mu.
func (f *Feed) spawn(now time.Time, weather models.WeatherCondition) models.Incident {
	f.seq++
	hs := f.hotspots[f.rng.Intn(len(f.hotspots))]
	loc := geo.Offset(hs.Location, f.rng.Float64()*1600-800, f.rng.Float64()*1600-800)

	sev := f.rollSeverity(weather)
	typ := incidentTypes[f.rng.Intn(len(incidentTypes))]
	return models.Incident{
		ID:            fmt.Sprintf("inc-%d-%d", now.Unix(), f.seq),
		Type:          typ,
		Severity:      sev,
		Location:      loc,
		DelayMinutes:  delayFor(sev, f.rng),
		AffectedRoads: []string{hs.Name},
		Description:   fmt.Sprintf("%s near %s", typ, hs.Name),
		CreatedAt:     now,
	}
}

func (f *Feed) rollSeverity(weather models.WeatherCondition) models.Severity {
	r := f.rng.Float64()
	switch weather {
	case models.WeatherStorm, models.WeatherHeavyRain:
		r -= 0.25
	case models.WeatherRain, models.WeatherFog:
		r -= 0.1
	}
	switch {
	case r < 0.1:
		return models.SeverityCritical
	case r < 0.3:
		return models.SeverityHigh
	case r < 0.65:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func delayFor(sev models.Severity, rng *rand.Rand) float64 {
	switch sev {
	case models.SeverityCritical:
		return 30 + rng.Float64()*30
	case models.SeverityHigh:
		return 15 + rng.Float64()*15
	case models.SeverityMedium:
		return 8 + rng.Float64()*7
	default:
		return 2 + rng.Float64()*4
	}
}
