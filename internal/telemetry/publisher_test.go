package telemetry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ukydev/fleet-traffic-sim/internal/models"
)

func TestNewMQTTPublisherDisabled(t *testing.T) {
	p, err := NewMQTTPublisher("", "test")
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestNilPublisherIsNoOp(t *testing.T) {
	var p *MQTTPublisher
	assert.NoError(t, p.Publish(models.Telemetry{VehicleID: "v1"}))
	p.Close()
}

func TestTelemetryPayloadShape(t *testing.T) {
	tele := models.Telemetry{
		VehicleID: "abc123",
		Timestamp: time.Now(),
		Location:  models.Location{Lat: 51.5, Lng: -0.12},
		Speed:     42.5,
		Heading:   180,
		Fuel:      77,
		Status:    models.StatusInTransit,
	}
	payload, err := json.Marshal(tele)
	assert.NoError(t, err)

	var decoded map[string]interface{}
	assert.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "abc123", decoded["vehicle_id"])
	assert.Equal(t, "in_transit", decoded["status"])
	assert.Equal(t, 42.5, decoded["speed"])
}
