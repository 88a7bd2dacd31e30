package server

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/ayusman/dwellpoint/internal/pointer"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// SampleSink accepts samples pushed by a client.
type SampleSink interface {
	Publish(s pointer.Sample)
}

// CooldownSink accepts cooldown updates pushed by a client.
type CooldownSink interface {
	Publish(percent float64)
}

// PointerHandler serves /api/pointer/ws. Clients push samples, layout and
// cooldown messages and receive pointer events from the Hub.
type PointerHandler struct {
	hub      *Hub
	layout   *Layout
	samples  SampleSink
	cooldown CooldownSink
}

// NewPointerHandler creates a PointerHandler. samples and cooldown may be
// nil, in which case those messages are dropped.
func NewPointerHandler(hub *Hub, layout *Layout, samples SampleSink, cooldown CooldownSink) *PointerHandler {
	return &PointerHandler{
		hub:      hub,
		layout:   layout,
		samples:  samples,
		cooldown: cooldown,
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *PointerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	c := newClient(conn)
	if !h.hub.register(c) {
		conn.Close()
		return
	}
	log.Printf("Pointer client connected from %s", r.RemoteAddr)

	go c.writePump()
	c.readPump(h.handle)

	// The last client to leave takes the layout with it.
	if left := h.hub.unregister(c); left == 0 && h.layout != nil {
		h.layout.Clear()
	}
	log.Printf("Pointer client disconnected from %s", r.RemoteAddr)
}

func (h *PointerHandler) handle(msg InboundMessage) {
	switch msg.Type {
	case MessageSample:
		if h.samples != nil {
			h.samples.Publish(pointer.Sample{Fingertip: msg.Fingertip, Gestures: msg.Gestures})
		}
	case MessageLayout:
		if h.layout != nil && msg.Surface != nil {
			h.layout.Update(*msg.Surface, msg.Targets)
		}
	case MessageCooldown:
		if h.cooldown != nil && msg.Percent != nil {
			h.cooldown.Publish(*msg.Percent)
		}
	default:
		log.Printf("Ignoring unknown message type %q", msg.Type)
	}
}
