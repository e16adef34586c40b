package models

import "time"

// Telemetry is the compact per-tick vehicle update published to MQTT.
type Telemetry struct {
	VehicleID string        `json:"vehicle_id"`
	Timestamp time.Time     `json:"timestamp"`
	Location  Location      `json:"location"`
	Speed     float64       `json:"speed"`
	Heading   float64       `json:"heading"`
	Fuel      float64       `json:"fuel"`
	Status    VehicleStatus `json:"status"`
}
