package pointer

import (
	"time"

	"github.com/benbjohnson/clock"
)

// DwellState is the state of the dwell controller.
type DwellState int

const (
	// DwellIdle means no activation attempt is in progress.
	DwellIdle DwellState = iota
	// DwellActive means a target is being hovered and timed.
	DwellActive
)

func (s DwellState) String() string {
	switch s {
	case DwellActive:
		return "dwelling"
	default:
		return "idle"
	}
}

type dwellSession struct {
	targetID string
	start    time.Time
	timer    *clock.Timer
	gen      uint64
}

// Dwell times a single hovered target and decides when it activates.
// It is not safe for concurrent use; the engine serializes access.
type Dwell struct {
	clock    clock.Clock
	duration time.Duration
	session  *dwellSession
	gen      uint64
}

// NewDwell creates an idle Dwell controller.
func NewDwell(c clock.Clock, duration time.Duration) *Dwell {
	return &Dwell{clock: c, duration: duration}
}

// State returns the controller state.
func (d *Dwell) State() DwellState {
	if d.session == nil {
		return DwellIdle
	}
	return DwellActive
}

// TargetID returns the target being timed, or "" when idle.
func (d *Dwell) TargetID() string {
	if d.session == nil {
		return ""
	}
	return d.session.targetID
}

// Start begins a fresh session on targetID, cancelling any existing one.
// onExpire is scheduled for when the dwell duration elapses and receives
// the session generation; callers must pass it back to Complete so that a
// timer racing with a cancellation is ignored.
func (d *Dwell) Start(targetID string, onExpire func(gen uint64)) {
	d.Cancel()

	d.gen++
	gen := d.gen
	s := &dwellSession{
		targetID: targetID,
		start:    d.clock.Now(),
		gen:      gen,
	}
	if onExpire != nil {
		s.timer = d.clock.AfterFunc(d.duration, func() { onExpire(gen) })
	}
	d.session = s
}

// Cancel abandons the current session without activating. It reports
// whether a session was active. Elapsed time is discarded.
func (d *Dwell) Cancel() bool {
	if d.session == nil {
		return false
	}
	if d.session.timer != nil {
		d.session.timer.Stop()
	}
	d.session = nil
	d.gen++
	return true
}

// Progress reports how far the current session has run.
func (d *Dwell) Progress() (Progress, bool) {
	if d.session == nil {
		return Progress{}, false
	}

	elapsed := d.clock.Now().Sub(d.session.start)
	ratio := float64(elapsed) / float64(d.duration)
	remaining := d.duration - elapsed
	if remaining < 0 {
		remaining = 0
	}

	return Progress{
		TargetID:  d.session.targetID,
		Ratio:     clamp01(ratio),
		Remaining: remaining,
	}, true
}

// Current reports whether gen identifies the running session.
func (d *Dwell) Current(gen uint64) bool {
	return d.session != nil && d.session.gen == gen
}

// Due reports whether the current session has reached the dwell duration.
func (d *Dwell) Due() bool {
	if d.session == nil {
		return false
	}
	return d.clock.Now().Sub(d.session.start) >= d.duration
}

// Complete fires the session identified by gen or, with gen 0, the current
// session. It returns the activation and true at most once per session.
func (d *Dwell) Complete(gen uint64) (Activation, bool) {
	if d.session == nil {
		return Activation{}, false
	}
	if gen != 0 && d.session.gen != gen {
		return Activation{}, false
	}

	a := Activation{
		TargetID:  d.session.targetID,
		Timestamp: d.clock.Now(),
	}
	if d.session.timer != nil {
		d.session.timer.Stop()
	}
	d.session = nil
	d.gen++
	return a, true
}
