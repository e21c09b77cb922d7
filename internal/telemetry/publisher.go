// Package telemetry publishes board loop state over MQTT, adapted from the
// inertial-computer producer's tick/publish loop but driven by its caller
// rather than owning its own ticker: cmd/boardctl calls PublishSample with
// a Sample after every control-loop tick.
package telemetry

import (
	"encoding/json"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/balance-core/internal/config"
	"github.com/relabs-tech/balance-core/internal/supervisor"
)

// Sample is one tick's worth of publishable board state, filled in from
// boardloop.Loop.Last by the caller.
type Sample struct {
	State      supervisor.State `json:"state"`
	Setpoint   float64          `json:"setpoint"`
	Pitch      float64          `json:"pitch"`
	Current    float64          `json:"current"`
	NoseBias   float64          `json:"nose_bias"`
	ATRTarget  float64          `json:"atr_target"`
	TurnTarget float64          `json:"turn_target"`
	Locked     bool             `json:"locked"`
	Time       time.Time        `json:"time"`
}

// Event is a discrete occurrence worth publishing outside the regular
// telemetry cadence: a fault entry, a lock-gesture edge, a tiltback reason.
type Event struct {
	Kind string    `json:"kind"`
	Detail string  `json:"detail,omitempty"`
	Time time.Time `json:"time"`
}

// Publisher owns the MQTT connection used to publish telemetry samples and
// discrete events.
type Publisher struct {
	client mqtt.Client
	topicTelemetry string
	topicEvents    string
}

// NewPublisher connects to the configured broker and returns a Publisher.
func NewPublisher(cfg *config.Config) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Raw.MQTTBroker).
		SetClientID(cfg.Raw.MQTTClientIDBoard)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	return &Publisher{
		client:         client,
		topicTelemetry: cfg.Raw.TopicTelemetry,
		topicEvents:    cfg.Raw.TopicEvents,
	}, nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}

// PublishSample publishes one tick of telemetry, retained so a late-joining
// subscriber (the dashboard, the OLED display) sees the last known state.
func (p *Publisher) PublishSample(s Sample) {
	payload, err := json.Marshal(s)
	if err != nil {
		log.Printf("telemetry: sample marshal error: %v", err)
		return
	}
	if token := p.client.Publish(p.topicTelemetry, 0, true, payload); token.Wait() && token.Error() != nil {
		log.Printf("telemetry: publish error (telemetry): %v", token.Error())
	}
}

// PublishEvent publishes a discrete, non-retained event.
func (p *Publisher) PublishEvent(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		log.Printf("telemetry: event marshal error: %v", err)
		return
	}
	if token := p.client.Publish(p.topicEvents, 0, false, payload); token.Wait() && token.Error() != nil {
		log.Printf("telemetry: publish error (events): %v", token.Error())
	}
}
