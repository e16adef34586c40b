package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VehicleStatus is the lifecycle state of a vehicle.
type VehicleStatus string

const (
	StatusIdle          VehicleStatus = "idle"
	StatusInTransit     VehicleStatus = "in_transit"
	StatusNeedsApproval VehicleStatus = "needs_approval"
	StatusRefueling     VehicleStatus = "refueling"
)

// VehicleClass determines the base cruising speed of a vehicle.
type VehicleClass string

const (
	ClassCar   VehicleClass = "car"
	ClassVan   VehicleClass = "van"
	ClassTruck VehicleClass = "truck"
	ClassBus   VehicleClass = "bus"
)

// BaseSpeedKmh returns the free-flow cruising speed for a vehicle class.
func (c VehicleClass) BaseSpeedKmh() float64 {
	switch c {
	case ClassCar:
		return 60
	case ClassVan:
		return 55
	case ClassTruck:
		return 45
	case ClassBus:
		return 50
	default:
		return 50
	}
}

// Vehicle represents a fleet vehicle. It is the authoritative persisted
// record; the tick loop re-reads it every tick and is the only writer of
// location, speed, heading, fuel and status.
type Vehicle struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name             string             `bson:"name" json:"name"`
	Class            VehicleClass       `bson:"class" json:"class"`
	Status           VehicleStatus      `bson:"status" json:"status"`
	CurrentLocation  Location           `bson:"current_location" json:"current_location"`
	Destination      Location           `bson:"destination" json:"destination"`
	Fuel             float64            `bson:"fuel" json:"fuel"` // percent, [0,100]
	Speed            float64            `bson:"speed" json:"speed"`
	Heading          float64            `bson:"heading" json:"heading"`
	CargoWeightKg    float64            `bson:"cargo_weight_kg" json:"cargo_weight_kg"`
	Personality      string             `bson:"personality" json:"personality"` // e.g. "cautious", "aggressive"
	Route            *Route             `bson:"route,omitempty" json:"route,omitempty"`
	AlternativeRoute *Route             `bson:"alternative_route,omitempty" json:"alternative_route,omitempty"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}
