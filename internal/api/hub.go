// Package api exposes the WebSocket status hub.
//
// The hub maintains a registry of connected observers and a broadcast
// channel. The simulation loop pushes a summary after every tick and
// the hub fans it out to every open socket.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/signalsfoundry/factory-power-simulator/internal/logging"
)

// StatusMessage is the JSON envelope for everything sent over the
// socket.
type StatusMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// TickSummary is the per-tick payload broadcast to observers.
type TickSummary struct {
	Tick            int            `json:"tick"`
	ElapsedSeconds  float64        `json:"elapsed_seconds"`
	Networks        int            `json:"networks"`
	Production      float64        `json:"production_watts"`
	Consumption     float64        `json:"consumption_watts"`
	MinSatisfaction float64        `json:"min_satisfaction"`
	PerNetwork      []NetworkBrief `json:"per_network,omitempty"`
}

// NetworkBrief is one network's line in a TickSummary.
type NetworkBrief struct {
	ID           int     `json:"id"`
	Poles        int     `json:"poles"`
	Production   float64 `json:"production_watts"`
	Consumption  float64 `json:"consumption_watts"`
	Satisfaction float64 `json:"satisfaction"`
	Availability float64 `json:"availability"`
}

// Client is one observer connection, a middleman between the websocket
// and the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub maintains the set of active clients and broadcasts messages to
// them.
type Hub struct {
	clients map[*Client]bool

	// Broadcast receives raw frames to fan out to every client.
	Broadcast chan []byte

	register   chan *Client
	unregister chan *Client

	log logging.Logger
}

// NewHub creates a hub. Call Run in a goroutine before serving
// connections.
func NewHub(log logging.Logger) *Hub {
	if log == nil {
		log = logging.Noop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		Broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
	}
}

// Run is the hub's event loop. It blocks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.log.Debug(ctx, "status observer connected",
				logging.Int("observers", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case message := <-h.Broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Full send buffer means the client hung or went
					// away. Drop it.
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// BroadcastSummary marshals a tick summary and queues it for fan-out.
// A hub with no running loop would block, so the send is best effort.
func (h *Hub) BroadcastSummary(summary TickSummary) {
	raw, err := json.Marshal(StatusMessage{Type: "tick_summary", Payload: summary})
	if err != nil {
		return
	}
	select {
	case h.Broadcast <- raw:
	default:
	}
}

// upgrader configures the WebSocket handshake. CheckOrigin is
// permissive; the hub serves local observers.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWs upgrades an HTTP request to a WebSocket and registers the
// resulting client with the hub.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.Warn(r.Context(), "websocket upgrade failed",
			logging.String("error", err.Error()))
		return
	}

	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256)}
	client.hub.register <- client

	// One goroutine per direction so a slow client cannot stall the
	// hub loop.
	go client.writePump()
	go client.readPump()
}

// readPump drains the connection. Observers are read-only; inbound
// frames are discarded, but the read loop is what detects disconnects.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump pumps frames from the hub to the socket. It exits when the
// send channel is closed.
func (c *Client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		w, err := c.conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		w.Write(message)
		if err := w.Close(); err != nil {
			return
		}
	}
}
