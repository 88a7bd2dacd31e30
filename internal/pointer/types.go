// Package pointer turns per-frame fingertip samples into a smoothed
// screen-space cursor and activates on-screen targets by dwelling on them.
//
// The pipeline has two independently paced inputs. Samples from the
// upstream hand tracker are calibrated and mapped into a target cursor
// position. A render tick advances the visual cursor toward that target,
// hit-tests it against the host's targets and drives the dwell timer.
package pointer

import (
	"math"
	"time"
)

// Point is a 2D coordinate, either normalized ([0,1]) or in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle in pixel space.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether p lies inside the rectangle.
// The left and top edges are inclusive, the right and bottom edges exclusive.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width &&
		p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Sample is one upstream inference frame.
type Sample struct {
	// Fingertip is the index fingertip in normalized image coordinates,
	// or nil when no hand was tracked.
	Fingertip *Point `json:"fingertip,omitempty"`

	// Gestures lists every gesture label recognized in the frame.
	Gestures []string `json:"gestures,omitempty"`
}

// Bounds is the adaptively observed range of fingertip motion.
type Bounds struct {
	MinX float64 `json:"minX"`
	MaxX float64 `json:"maxX"`
	MinY float64 `json:"minY"`
	MaxY float64 `json:"maxY"`
}

// EmptyBounds returns the inverted bounds used before any observation.
func EmptyBounds() Bounds {
	return Bounds{MinX: 1, MaxX: 0, MinY: 1, MaxY: 0}
}

// IsEmpty reports whether no observation has been recorded since the last reset.
func (b Bounds) IsEmpty() bool {
	return b == EmptyBounds()
}

// RangeX returns the raw observed horizontal span, which is negative for
// freshly reset or single-point bounds.
func (b Bounds) RangeX() float64 { return b.MaxX - b.MinX }

// RangeY returns the raw observed vertical span.
func (b Bounds) RangeY() float64 { return b.MaxY - b.MinY }

// PointerState is the cursor position.
type PointerState struct {
	Target  Point `json:"target"`
	Visual  Point `json:"visual"`
	Visible bool  `json:"visible"`
}

// Target is a hoverable element reported by the host.
type Target struct {
	ID      string `json:"id"`
	Rect    Rect   `json:"rect"`
	Enabled bool   `json:"enabled"`

	// Active marks a target whose bound action is currently on.
	// It only affects hover presentation.
	Active bool `json:"active,omitempty"`
}

// Activation is emitted once per completed dwell.
type Activation struct {
	TargetID  string    `json:"targetId"`
	Timestamp time.Time `json:"timestamp"`
}

// Progress reports dwell completion while a session is active.
type Progress struct {
	TargetID  string        `json:"targetId"`
	Ratio     float64       `json:"ratio"`
	Remaining time.Duration `json:"remaining"`
}

// Hover signals that the pointer entered or left a target.
type Hover struct {
	TargetID string `json:"targetId"`
	Entered  bool   `json:"entered"`

	// HighContrast asks the presenter to draw the cursor so it stands out
	// against an active target.
	HighContrast bool `json:"highContrast,omitempty"`
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
