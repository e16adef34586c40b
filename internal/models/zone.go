package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Zone is a circular traffic zone whose congestion level is recomputed
// every tick from vehicle density and time-of-day effects.
type Zone struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Center       Location           `bson:"center" json:"center"`
	RadiusKm     float64            `bson:"radius_km" json:"radius_km"`
	Congestion   float64            `bson:"congestion" json:"congestion"` // [0,100]
	VehicleCount int                `bson:"vehicle_count" json:"vehicle_count"`
	Trend        string             `bson:"trend" json:"trend"` // "rising", "falling", "steady"
}

// DensitySeverity buckets a congestion level into the marker colors the
// speed model reacts to.
func (z *Zone) DensitySeverity() string {
	switch {
	case z.Congestion >= 75:
		return "red"
	case z.Congestion >= 50:
		return "yellow"
	default:
		return "none"
	}
}
