package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/dwellpoint/internal/pointer"
)

const (
	// writeWait is how long a single write may take.
	writeWait = 5 * time.Second

	// pongWait is how long to wait for a pong before dropping the client.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds inbound layouts with many targets.
	maxMessageSize = 256 * 1024

	// sendBuffer is the per-client outbound queue length.
	sendBuffer = 64
)

// Hub broadcasts pointer feedback to every connected WebSocket client.
// It implements pointer.Presenter and pointer.ActivationSink.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates a Hub with no clients.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PointerMoved implements pointer.Presenter.
func (h *Hub) PointerMoved(s pointer.PointerState) {
	h.Broadcast(Event{Type: EventPointer, Pointer: &s})
}

// HoverChanged implements pointer.Presenter.
func (h *Hub) HoverChanged(hv pointer.Hover) {
	h.Broadcast(Event{Type: EventHover, Hover: &hv})
}

// DwellProgress implements pointer.Presenter.
func (h *Hub) DwellProgress(p pointer.Progress) {
	h.Broadcast(Event{Type: EventProgress, Progress: &ProgressPayload{
		TargetID:    p.TargetID,
		Ratio:       p.Ratio,
		RemainingMs: p.Remaining.Milliseconds(),
	}})
}

// Activate implements pointer.ActivationSink.
func (h *Hub) Activate(a pointer.Activation) {
	h.Broadcast(Event{Type: EventActivation, Activation: &a})
}

// Broadcast sends ev to every client. A client whose queue is full misses
// the event.
func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return
	}

	msg, err := json.Marshal(ev)
	if err != nil {
		log.Printf("Failed to encode %s event: %v", ev.Type, err)
		return
	}

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// Close disconnects every client. Connections attached afterwards are
// closed immediately.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

// unregister removes c and returns the number of clients left.
func (h *Hub) unregister(c *client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	return len(h.clients)
}

// client is one WebSocket connection. Only writePump writes to conn.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	return &client{conn: conn, send: make(chan []byte, sendBuffer)}
}

// readPump decodes inbound messages and passes them to handle until the
// connection fails.
func (c *client) readPump(handle func(InboundMessage)) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Ignoring malformed message: %v", err)
			continue
		}
		handle(msg)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
