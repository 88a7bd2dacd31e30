package server

import (
	"github.com/ayusman/dwellpoint/internal/pointer"
)

// Inbound message types sent by the browser client.
const (
	MessageSample   = "sample"
	MessageLayout   = "layout"
	MessageCooldown = "cooldown"
)

// Outbound event types broadcast to every client.
const (
	EventPointer    = "pointer"
	EventHover      = "hover"
	EventProgress   = "progress"
	EventActivation = "activation"
)

// InboundMessage is a client-to-server WebSocket message. Type selects
// which of the remaining fields are read.
type InboundMessage struct {
	Type string `json:"type"`

	// sample
	Fingertip *pointer.Point `json:"fingertip,omitempty"`
	Gestures  []string       `json:"gestures,omitempty"`

	// layout
	Surface *pointer.Rect    `json:"surface,omitempty"`
	Targets []pointer.Target `json:"targets,omitempty"`

	// cooldown
	Percent *float64 `json:"percent,omitempty"`
}

// Event is a server-to-client WebSocket message.
type Event struct {
	Type       string                `json:"type"`
	Pointer    *pointer.PointerState `json:"pointer,omitempty"`
	Hover      *pointer.Hover        `json:"hover,omitempty"`
	Progress   *ProgressPayload      `json:"progress,omitempty"`
	Activation *pointer.Activation   `json:"activation,omitempty"`
}

// ProgressPayload is pointer.Progress with the remaining time in
// milliseconds.
type ProgressPayload struct {
	TargetID    string  `json:"targetId"`
	Ratio       float64 `json:"ratio"`
	RemainingMs int64   `json:"remainingMs"`
}

// PointerUpdate is the body accepted by POST /api/pointer. Nil fields are
// left unchanged.
type PointerUpdate struct {
	Enabled        *bool   `json:"enabled,omitempty"`
	Mirrored       *bool   `json:"mirrored,omitempty"`
	PointerGesture *string `json:"pointerGesture,omitempty"`
}
