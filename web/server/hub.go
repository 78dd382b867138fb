package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Bucknalla/go-route-simulator/gps"
	"github.com/Bucknalla/go-route-simulator/log"
	"github.com/gorilla/websocket"
)

const (
	clientBufferSize = 32
	writeWait        = 10 * time.Second
)

// Frame is the envelope of every websocket message.
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// EventFrame is the payload of an "event" frame.
type EventFrame struct {
	Name    string    `json:"name"`
	Payload gps.Event `json:"payload,omitempty"`
	State   string    `json:"state"`
}

type client struct {
	conn *websocket.Conn
	send chan Frame
}

// Hub keeps the connected websocket clients and fans frames out to them.
// Each client has its own writer goroutine; a client that cannot keep up
// misses frames instead of stalling the simulation.
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	lg       *log.Logger
}

func NewHub(lg *log.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // browsers on any origin may watch the simulation
			},
		},
		lg: lg,
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues f for every connected client.
func (h *Hub) Broadcast(f Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- f:
		default:
			h.lg.Debug("websocket client is lagging, frame skipped", "type", f.Type)
		}
	}
}

// Send broadcasts p as a "fix" frame, so a Hub can be used as a sink.
func (h *Hub) Send(_ context.Context, p gps.SimulationPoint) error {
	h.Broadcast(Frame{Type: "fix", Data: gps.FixAt(p, time.Now().UTC())})
	return nil
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	return nil
}

// serve upgrades the request, sends greeting and then relays broadcasts
// until the client goes away.
func (h *Hub) serve(w http.ResponseWriter, r *http.Request, greeting Frame) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.lg.Warnf("websocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan Frame, clientBufferSize)}
	c.send <- greeting

	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.lg.Infof("websocket client connected, total clients: %d", n)

	go h.writeLoop(c)

	// Clients only listen; reading detects when they disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(c)
	h.lg.Infof("websocket client disconnected, total clients: %d", h.Len())
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()

	for f := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(f); err != nil {
			h.lg.Debugf("websocket write error: %v", err)
			h.remove(c)
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}
