package sim

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-traffic-sim/internal/ai"
	"github.com/ukydev/fleet-traffic-sim/internal/models"
)

// maybeDecide probabilistically asks the decision provider for a driving
// decision. Any failure, timeout or schema violation is swallowed; the
// engine proceeds with the prior speed factor.
func (e *Engine) maybeDecide(ctx context.Context, v *models.Vehicle, env models.EnvironmentState, incidents []models.Incident, density string) *models.AIDecision {
	if e.provider == nil {
		return nil
	}
	rate := e.cfg.DecisionBaseRate
	if density == "red" {
		rate = e.cfg.DecisionRedBoost
	}
	if e.rng.Float64() >= rate {
		return nil
	}

	dctx, cancel := context.WithTimeout(ctx, e.cfg.DecisionTimeout)
	defer cancel()

	decision, err := e.provider.Decide(dctx, ai.DecisionContext{
		Vehicle:         *v,
		Environment:     env,
		NearbyIncidents: nearbyIncidents(v.CurrentLocation, incidents, e.cfg.IncidentProximityKm),
		LocalDensity:    density,
	})
	if err != nil {
		log.WithError(err).WithField("vehicle_id", v.ID.Hex()).Debug("Decision provider failed, keeping prior speed factor")
		return nil
	}
	if err := ai.Validate(decision); err != nil {
		log.WithError(err).WithField("vehicle_id", v.ID.Hex()).Warn("Decision failed schema validation, discarding")
		return nil
	}
	if decision != nil {
		log.WithFields(log.Fields{
			"vehicle_id": v.ID.Hex(),
			"action":     decision.Action,
			"confidence": decision.Confidence,
		}).Debug("Applied driving decision")
	}
	return decision
}
