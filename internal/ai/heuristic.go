package ai

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ukydev/fleet-traffic-sim/internal/models"
)

// HeuristicProvider is the bundled rule-based decision provider. It
// enforces a per-vehicle cooldown itself; the engine never has to.
type HeuristicProvider struct {
	mu       sync.Mutex
	cooldown time.Duration
	lastSeen map[string]time.Time
	now      func() time.Time
}

// NewHeuristicProvider creates a provider with the given per-vehicle
// decision cooldown.
func NewHeuristicProvider(cooldown time.Duration) *HeuristicProvider {
	return &HeuristicProvider{
		cooldown: cooldown,
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Decide returns a decision for the vehicle, or (nil, nil) while the
// vehicle is cooling down.
func (p *HeuristicProvider) Decide(ctx context.Context, dc DecisionContext) (*models.AIDecision, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	id := dc.Vehicle.ID.Hex()
	p.mu.Lock()
	now := p.now()
	if last, ok := p.lastSeen[id]; ok && now.Sub(last) < p.cooldown {
		p.mu.Unlock()
		return nil, nil
	}
	p.lastSeen[id] = now
	p.mu.Unlock()

	return p.decide(dc), nil
}

func (p *HeuristicProvider) decide(dc DecisionContext) *models.AIDecision {
	switch {
	case dc.Vehicle.Fuel < 15:
		return &models.AIDecision{
			Action:     models.ActionRefuel,
			Reasoning:  "fuel critically low",
			Priority:   5,
			Confidence: 0.95,
		}
	case len(dc.NearbyIncidents) > 0 && worstSeverity(dc.NearbyIncidents) == models.SeverityCritical:
		return &models.AIDecision{
			Action:     models.ActionReroute,
			Reasoning:  "critical incident ahead",
			Priority:   4,
			Confidence: 0.85,
		}
	case dc.LocalDensity == "red" || len(dc.NearbyIncidents) > 0:
		return &models.AIDecision{
			Action:         models.ActionSlowDown,
			Reasoning:      "dense traffic or incident nearby",
			TargetSpeedKmh: dc.Vehicle.Class.BaseSpeedKmh() * 0.7,
			Priority:       3,
			Confidence:     0.8,
		}
	case dc.Environment.GlobalCongestion < 25 && dc.Environment.Condition == models.WeatherClear:
		return &models.AIDecision{
			Action:         models.ActionSpeedUp,
			Reasoning:      "clear roads and weather",
			TargetSpeedKmh: dc.Vehicle.Class.BaseSpeedKmh() * 1.2,
			Priority:       1,
			Confidence:     0.7,
		}
	default:
		return &models.AIDecision{
			Action:     models.ActionContinue,
			Reasoning:  "no adverse conditions",
			Priority:   1,
			Confidence: 0.9,
		}
	}
}

func worstSeverity(incidents []models.Incident) models.Severity {
	worst := models.SeverityLow
	rank := map[models.Severity]int{
		models.SeverityLow: 0, models.SeverityMedium: 1,
		models.SeverityHigh: 2, models.SeverityCritical: 3,
	}
	for _, inc := range incidents {
		if rank[inc.Severity] > rank[worst] {
			worst = inc.Severity
		}
	}
	return worst
}
