package dashboard

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/balance-core/internal/config"
	"github.com/relabs-tech/balance-core/internal/telemetry"
)

// Run subscribes to the board's MQTT telemetry topic, bridges each sample
// onto the debug websocket hub, and serves a JSON API plus static files,
// mirroring RunWeb's MQTT-to-HTTP bridge shape.
func Run() error {
	cfg := config.Get()

	var (
		mu        sync.RWMutex
		lastSample telemetry.Sample
		haveSample bool
	)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Raw.MQTTBroker).
		SetClientID(cfg.Raw.MQTTClientIDConsole + "-dashboard")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("dashboard: connected to MQTT broker at %s", cfg.Raw.MQTTBroker)

	hub := NewHub()
	go hub.Run()

	token := client.Subscribe(cfg.Raw.TopicTelemetry, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s telemetry.Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("dashboard: telemetry unmarshal error: %v", err)
			return
		}

		mu.Lock()
		lastSample = s
		haveSample = true
		mu.Unlock()

		hub.Publish(DebugFrame{
			Time:      s.Time.Format(time.RFC3339Nano),
			Pitch:     s.Pitch,
			Setpoint:  s.Setpoint,
			ATRTarget: s.ATRTarget,
			TurnTarget: s.TurnTarget,
			NoseBias:  s.NoseBias,
			Current:   s.Current,
			State:     s.State.String(),
		})
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("dashboard: subscribed to %s", cfg.Raw.TopicTelemetry)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/telemetry", func(w http.ResponseWriter, r *http.Request) {
		mu.RLock()
		defer mu.RUnlock()

		if !haveSample {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(lastSample); err != nil {
			log.Printf("dashboard: json encode error: %v", err)
		}
	})

	mux.HandleFunc("/ws/debug", hub.HandleDebugWS)

	fs := http.FileServer(http.Dir("web"))
	mux.Handle("/", fs)

	addr := cfg.Raw.DashboardListenAddr
	if addr == "" {
		addr = ":8080"
	}
	log.Printf("dashboard: listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
