// Package environment drives the simulated world clock and weather and
// derives the speed multipliers the engine feeds into vehicle movement.
package environment

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-traffic-sim/internal/models"
)

// Provider supplies live weather. When it fails the engine falls back to
// the simulated Markov model until a later refresh succeeds.
type Provider interface {
	Current(ctx context.Context) (*Report, error)
}

// Report is a live weather observation.
type Report struct {
	Condition    models.WeatherCondition
	TemperatureC float64
	VisibilityKm float64
	WindKmh      float64
	SpeedFactor  float64
}

// Engine is the single process-wide environment instance. Advance is
// called from the serialized simulation tick; Snapshot may be read from
// anywhere.
type Engine struct {
	mu sync.Mutex

	timeMultiplier float64
	refreshEvery   time.Duration
	provider       Provider
	rng            *rand.Rand

	simTime     time.Time
	lastAdvance time.Time
	lastRefresh time.Time
	liveMode    bool
	liveReport  *Report

	state models.EnvironmentState
}

// New creates an environment engine starting at the given simulated time.
// provider may be nil, in which case weather is always simulated.
func New(start time.Time, timeMultiplier float64, refreshEvery time.Duration, provider Provider, seed int64) *Engine {
	e := &Engine{
		timeMultiplier: timeMultiplier,
		refreshEvery:   refreshEvery,
		provider:       provider,
		rng:            rand.New(rand.NewSource(seed)),
		simTime:        start,
	}
	e.state = models.EnvironmentState{
		Condition:      models.WeatherClear,
		SimulatedTime:  start,
		TimeMultiplier: timeMultiplier,
	}
	e.recompute()
	return e
}

// Advance moves the simulated clock by the wall-clock delta since the last
// call, scaled by the time multiplier, and refreshes weather on cadence.
func (e *Engine) Advance(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.lastAdvance.IsZero() {
		delta := now.Sub(e.lastAdvance)
		e.simTime = e.simTime.Add(time.Duration(float64(delta) * e.timeMultiplier))
	}
	e.lastAdvance = now

	if e.lastRefresh.IsZero() || now.Sub(e.lastRefresh) >= e.refreshEvery {
		e.lastRefresh = now
		e.refreshWeather()
	}
	e.recompute()
}

func (e *Engine) refreshWeather() {
	if e.provider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		report, err := e.provider.Current(ctx)
		if err == nil && report != nil {
			e.liveMode = true
			e.liveReport = report
			e.state.Condition = report.Condition
			e.state.WindKmh = report.WindKmh
			log.WithFields(log.Fields{
				"condition": report.Condition,
				"source":    "live",
			}).Debug("Weather refreshed")
			return
		}
		if e.liveMode {
			log.WithError(err).Warn("Weather provider failed, falling back to simulated weather")
		}
		e.liveMode = false
		e.liveReport = nil
	}
	e.state.Condition = nextCondition(e.state.Condition, e.rng)
	e.state.WindKmh = clamp(e.state.WindKmh+(e.rng.Float64()*10-5), 0, 90)
}

// recompute derives every dependent field from condition and clock.
// Callers hold e.mu.
func (e *Engine) recompute() {
	cond := e.state.Condition
	hour := float64(e.simTime.Hour()) + float64(e.simTime.Minute())/60

	// Diurnal sinusoid peaking mid-afternoon (15:00).
	base := 14 + 8*math.Sin((hour-9)*math.Pi/12)
	temp := clamp(base+temperatureOffset(cond), -10, 40)

	rush := isRushHour(e.simTime)
	rushContribution := 0.0
	if rush {
		rushContribution = 35
	}
	weatherContribution := severityWeight(cond) * 40
	noise := e.rng.Float64()*20 - 10
	congestion := clamp(10+rushContribution+weatherContribution+noise, 0, 100)

	e.state.SimulatedTime = e.simTime
	e.state.TemperatureC = temp
	e.state.VisibilityKm = visibilityKm(cond)
	e.state.RushHour = rush
	e.state.GlobalCongestion = congestion
	e.state.WeatherSpeedFactor = weatherSpeedFactor(cond)
	e.state.CongestionSpeedFactor = math.Max(0.2, 1-congestion/150)

	// A live report overrides the derived fields it carries. Zero-valued
	// visibility or speed factor means the provider omitted them; the
	// condition lookup stands in.
	if e.liveMode && e.liveReport != nil {
		r := e.liveReport
		e.state.TemperatureC = clamp(r.TemperatureC, -10, 40)
		if r.VisibilityKm > 0 {
			e.state.VisibilityKm = r.VisibilityKm
		}
		if r.SpeedFactor > 0 {
			e.state.WeatherSpeedFactor = clamp(r.SpeedFactor, 0.2, 1)
		}
	}
}

// Snapshot returns a copy of the current environment state.
func (e *Engine) Snapshot() models.EnvironmentState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// IncidentProbability is the chance of spawning a new incident this
// refresh, scaled by weather severity, rush hour and congestion.
func (e *Engine) IncidentProbability() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := 0.02 + severityWeight(e.state.Condition)*0.1 + e.state.GlobalCongestion/100*0.05
	if e.state.RushHour {
		p += 0.04
	}
	return math.Min(p, 0.35)
}

// SetCondition forces a weather condition. Used by tests and scenario
// tooling.
func (e *Engine) SetCondition(c models.WeatherCondition) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Condition = c
	e.recompute()
}

// isRushHour reports whether t falls inside the fixed morning or evening
// rush windows.
func isRushHour(t time.Time) bool {
	h := t.Hour()
	return (h >= 7 && h < 9) || (h >= 17 && h < 19)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
