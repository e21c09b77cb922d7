// Package dashboard serves a JSON API and a debug websocket feed over the
// board's telemetry, adapted from web.go's MQTT-subscriber-to-HTTP bridge
// and register_debug_handler.go's websocket session pattern.
package dashboard

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // debug endpoint, not exposed beyond the board's own LAN
	},
}

// DebugFrame is one debug-websocket frame built from a telemetry sample.
// Run fills Time, Pitch, Setpoint, ATRTarget, TurnTarget, NoseBias, Current
// and State; the telemetry sample carries no roll, ATR interpolant, erpm,
// duty or current-limit value, so those fields stay zero.
type DebugFrame struct {
	Time         string  `json:"time"`
	Pitch        float64 `json:"pitch"`
	Roll         float64 `json:"roll"`
	Setpoint     float64 `json:"setpoint"`
	ATRTarget    float64 `json:"atr_target"`
	ATRInterp    float64 `json:"atr_interpolated"`
	TurnTarget   float64 `json:"turn_target"`
	NoseBias     float64 `json:"nose_bias"`
	ERPM         float64 `json:"erpm"`
	Current      float64 `json:"current"`
	Duty         float64 `json:"duty"`
	State        string  `json:"state"`
	CurrentLimit bool    `json:"current_limiting"`
}

// DebugSession holds one connected debug-websocket client.
type DebugSession struct {
	Conn *websocket.Conn
}

// Hub fans DebugFrames out to every connected debug session, and accepts
// HTTP requests to upgrade to a new one.
type Hub struct {
	register   chan *DebugSession
	unregister chan *DebugSession
	broadcast  chan DebugFrame
	sessions   map[*DebugSession]bool
}

// NewHub builds a Hub. Call Run in its own goroutine before serving HTTP.
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *DebugSession),
		unregister: make(chan *DebugSession),
		broadcast:  make(chan DebugFrame, 16),
		sessions:   make(map[*DebugSession]bool),
	}
}

// Run drives the Hub's event loop until ctx-less forever; callers run it as
// a goroutine for the program's lifetime.
func (h *Hub) Run() {
	for {
		select {
		case s := <-h.register:
			h.sessions[s] = true
		case s := <-h.unregister:
			delete(h.sessions, s)
		case frame := <-h.broadcast:
			for s := range h.sessions {
				if err := s.Conn.WriteJSON(frame); err != nil {
					log.Printf("dashboard: websocket write error: %v", err)
					s.Conn.Close()
					delete(h.sessions, s)
				}
			}
		}
	}
}

// Publish enqueues a frame for broadcast to every connected debug session.
// Non-blocking: a full channel drops the frame rather than stall the
// MQTT subscription callback that calls it.
func (h *Hub) Publish(frame DebugFrame) {
	select {
	case h.broadcast <- frame:
	default:
	}
}

// HandleDebugWS upgrades the request to a websocket and streams DebugFrames
// until the client disconnects.
func (h *Hub) HandleDebugWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("dashboard: websocket upgrade error: %v", err)
		return
	}

	session := &DebugSession{Conn: conn}
	h.register <- session

	defer func() {
		h.unregister <- session
		conn.Close()
	}()

	conn.SetReadDeadline(time.Time{})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("dashboard: websocket error: %v", err)
			}
			return
		}
	}
}
