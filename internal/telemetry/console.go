package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/balance-core/internal/config"
)

// RunConsole subscribes to the board's telemetry and event topics and
// prints them to stdout, mirroring the inertial-computer MQTT console.
func RunConsole() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Raw.MQTTBroker).
		SetClientID(cfg.Raw.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.Raw.MQTTBroker)

	telemetryToken := client.Subscribe(cfg.Raw.TopicTelemetry, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: telemetry unmarshal error: %v", err)
			return
		}
		fmt.Printf(
			"[TLM] state=%-22s setpoint=%6.2f pitch=%6.2f current=%6.2f nose=%5.2f atr=%5.2f turn=%5.2f locked=%v\n",
			s.State, s.Setpoint, s.Pitch, s.Current, s.NoseBias, s.ATRTarget, s.TurnTarget, s.Locked,
		)
	})
	telemetryToken.Wait()
	if telemetryToken.Error() != nil {
		return telemetryToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.Raw.TopicTelemetry)

	eventToken := client.Subscribe(cfg.Raw.TopicEvents, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var e Event
		if err := json.Unmarshal(msg.Payload(), &e); err != nil {
			log.Printf("console: event unmarshal error: %v", err)
			return
		}
		fmt.Printf("[EVT] %-16s %s\n", e.Kind, e.Detail)
	})
	eventToken.Wait()
	if eventToken.Error() != nil {
		return eventToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.Raw.TopicEvents)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
