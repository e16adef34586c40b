// Package telemetry publishes per-tick vehicle updates to MQTT.
package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-traffic-sim/internal/models"
)

const topicPrefix = "fleet/telemetry/"

// MQTTPublisher pushes telemetry to a broker at QoS 0. Publishing is
// fire-and-forget: a broker outage never slows the simulation tick.
type MQTTPublisher struct {
	client mqtt.Client
}

// NewMQTTPublisher connects to the broker. An empty broker URL returns a
// nil publisher, which callers treat as publishing disabled.
func NewMQTTPublisher(broker, clientID string) (*MQTTPublisher, error) {
	if broker == "" {
		return nil, nil
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return nil, fmt.Errorf("mqtt connect timeout to %s", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	log.WithField("broker", broker).Info("Connected to MQTT broker")
	return &MQTTPublisher{client: client}, nil
}

// Publish sends one telemetry message to fleet/telemetry/<vehicleID>.
func (p *MQTTPublisher) Publish(t models.Telemetry) error {
	if p == nil || p.client == nil {
		return nil
	}
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}
	p.client.Publish(topicPrefix+t.VehicleID, 0, false, payload)
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	if p == nil || p.client == nil {
		return
	}
	p.client.Disconnect(250)
}
