// Package detector finds hands in camera frames and reports their landmarks
// and any gesture labels the backend recognized.
package detector

import "math"

// Landmark indices in MediaPipe hand order.
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D is a landmark in normalized image coordinates. X and Y are in
// [0,1] with the origin at the top-left; Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks is one detected hand.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`

	// Gestures holds labels reported by the detection backend, best first.
	// It is empty when the backend only tracks landmarks.
	Gestures []string `json:"gestures,omitempty"`
}

// Fingertip returns the index fingertip, which drives the pointer.
func (h *HandLandmarks) Fingertip() Point3D {
	return h.Points[IndexTip]
}

// Distance returns the Euclidean distance between two landmarks.
func (h *HandLandmarks) Distance(a, b int) float64 {
	return distance3D(h.Points[a], h.Points[b])
}

// Valid reports whether every landmark is a finite number.
func (h *HandLandmarks) Valid() bool {
	if h == nil {
		return false
	}
	for _, p := range h.Points {
		if !finite(p.X) || !finite(p.Y) || !finite(p.Z) {
			return false
		}
	}
	return true
}

func distance3D(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
