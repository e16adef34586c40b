// Package ai is the boundary to the driving-decision provider. Decisions
// cross a strict schema check here; anything malformed is reported as a
// provider failure rather than silently defaulted.
package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/ukydev/fleet-traffic-sim/internal/models"
)

var (
	// ErrProviderUnavailable covers transport failures, timeouts and
	// schema-invalid responses alike. The engine swallows it and keeps
	// the prior speed factor.
	ErrProviderUnavailable = errors.New("decision provider unavailable")
)

// DecisionContext is everything a provider sees when asked to decide.
type DecisionContext struct {
	Vehicle         models.Vehicle           `json:"vehicle"`
	Environment     models.EnvironmentState  `json:"environment"`
	NearbyIncidents []models.Incident        `json:"nearby_incidents"`
	LocalDensity    string                   `json:"local_density"` // "red", "yellow", "none"
}

// Provider produces at most one decision per request. A (nil, nil) return
// means the vehicle is inside the provider's cooldown and no decision is
// offered.
type Provider interface {
	Decide(ctx context.Context, dc DecisionContext) (*models.AIDecision, error)
}

var validActions = map[models.DecisionAction]bool{
	models.ActionContinue:  true,
	models.ActionReroute:   true,
	models.ActionRefuel:    true,
	models.ActionSlowDown:  true,
	models.ActionSpeedUp:   true,
	models.ActionRestBreak: true,
}

// Validate enforces the decision schema. The engine calls it on every
// decision before applying anything.
func Validate(d *models.AIDecision) error {
	if d == nil {
		return nil
	}
	if !validActions[d.Action] {
		return fmt.Errorf("%w: unknown action %q", ErrProviderUnavailable, d.Action)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("%w: confidence %.2f out of range", ErrProviderUnavailable, d.Confidence)
	}
	if d.Priority < 0 || d.Priority > 5 {
		return fmt.Errorf("%w: priority %d out of range", ErrProviderUnavailable, d.Priority)
	}
	if d.TargetSpeedKmh < 0 || d.TargetSpeedKmh > 150 {
		return fmt.Errorf("%w: target speed %.1f out of range", ErrProviderUnavailable, d.TargetSpeedKmh)
	}
	return nil
}
