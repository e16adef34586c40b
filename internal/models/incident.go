package models

import "time"

// IncidentType classifies what happened on the road.
type IncidentType string

const (
	IncidentAccident     IncidentType = "accident"
	IncidentConstruction IncidentType = "construction"
	IncidentClosure      IncidentType = "closure"
	IncidentCongestion   IncidentType = "congestion"
)

// Severity is an ordered classification scaling an incident's delay and
// routing-cost impact.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// CostFactor returns the edge-cost multiplier used by route optimization.
func (s Severity) CostFactor() float64 {
	switch s {
	case SeverityCritical:
		return 3.0
	case SeverityHigh:
		return 2.0
	case SeverityMedium:
		return 1.5
	case SeverityLow:
		return 1.2
	default:
		return 1.0
	}
}

// TTL returns how long an incident of this severity stays active.
func (s Severity) TTL() time.Duration {
	switch s {
	case SeverityCritical:
		return 45 * time.Minute
	case SeverityHigh:
		return 30 * time.Minute
	case SeverityMedium:
		return 20 * time.Minute
	default:
		return 10 * time.Minute
	}
}

// Incident is a live road disruption. Incidents expire automatically after
// a severity-scaled TTL.
type Incident struct {
	ID            string       `bson:"id" json:"id"`
	Type          IncidentType `bson:"type" json:"type"`
	Severity      Severity     `bson:"severity" json:"severity"`
	Location      Location     `bson:"location" json:"location"`
	DelayMinutes  float64      `bson:"delay_minutes" json:"delay_minutes"`
	AffectedRoads []string     `bson:"affected_roads" json:"affected_roads"`
	Description   string       `bson:"description" json:"description"`
	CreatedAt     time.Time    `bson:"created_at" json:"created_at"`
}

// Expired reports whether the incident has outlived its severity TTL.
func (i *Incident) Expired(now time.Time) bool {
	return now.Sub(i.CreatedAt) > i.Severity.TTL()
}
