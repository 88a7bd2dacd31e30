package pointer

import (
	"context"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Deps are the engine's collaborators. Only Geometry is required for the
// pointer to ever become visible; every other field may be nil.
type Deps struct {
	Geometry    GeometryProvider
	Samples     SampleSource
	Suppression SuppressionSignal
	Preferences PreferenceStore
	Sink        ActivationSink
	Presenter   Presenter
	Clock       clock.Clock
}

// Snapshot is a point-in-time view of the engine for diagnostics and APIs.
type Snapshot struct {
	Enabled        bool         `json:"enabled"`
	CooldownActive bool         `json:"cooldownActive"`
	Suppressed     bool         `json:"suppressed"`
	Mirrored       bool         `json:"mirrored"`
	PointerGesture string       `json:"pointerGesture"`
	Sensitivity    float64      `json:"sensitivity"`
	DwellDuration  string       `json:"dwellDuration"`
	Pointer        PointerState `json:"pointer"`
	Bounds         Bounds       `json:"bounds"`
	Hovered        string       `json:"hovered,omitempty"`
	Dwell          string       `json:"dwell"`
}

// Engine is the gesture pointer interaction engine.
//
// Samples and render ticks may arrive from different goroutines; every
// entry point serializes on a single mutex. Presenter and sink callbacks
// are queued while the lock is held and delivered after it is released,
// so they may call back into the engine.
type Engine struct {
	mu sync.Mutex

	cfg        Config
	gestureKey string

	geometry  GeometryProvider
	samples   SampleSource
	cooldown  SuppressionSignal
	prefs     PreferenceStore
	sink      ActivationSink
	presenter Presenter
	clock     clock.Clock

	calibrator *Calibrator
	smoother   *Smoother
	dwell      *Dwell
	gate       Gate
	pointer    PointerState
	hovered    string

	idleTimer *clock.Timer
	idleGen   uint64

	unsubs  []func()
	started bool
	closed  bool
	done    chan struct{}

	pending []func()
}

// New creates an Engine. The configuration is sanitized and then
// overridden by any stored preferences. The engine starts disabled.
func New(cfg Config, deps Deps) *Engine {
	cfg = cfg.Sanitize()

	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Presenter == nil {
		deps.Presenter = nopPresenter{}
	}

	if deps.Preferences != nil {
		if v, ok := deps.Preferences.Get(PrefPointerGesture); ok && strings.TrimSpace(v) != "" {
			cfg.PointerGesture = strings.TrimSpace(v)
		}
		if v, ok := deps.Preferences.Get(PrefMirrored); ok {
			if mirrored, err := strconv.ParseBool(v); err == nil {
				cfg.Mirrored = mirrored
			}
		}
	}

	return &Engine{
		cfg:        cfg,
		gestureKey: NormalizeGestureName(cfg.PointerGesture),
		geometry:   deps.Geometry,
		samples:    deps.Samples,
		cooldown:   deps.Suppression,
		prefs:      deps.Preferences,
		sink:       deps.Sink,
		presenter:  deps.Presenter,
		clock:      deps.Clock,
		calibrator: NewCalibrator(cfg.CalibrationMargin, cfg.MinCalibrationRange),
		smoother:   NewSmoother(cfg.SmoothingFactor),
		dwell:      NewDwell(deps.Clock, cfg.DwellDuration),
		done:       make(chan struct{}),
	}
}

// Start subscribes to the sample source and suppression signal.
// Calling Start more than once, or after Close, does nothing.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.started || e.closed {
		e.mu.Unlock()
		return
	}
	e.started = true
	samples, cooldown := e.samples, e.cooldown
	e.mu.Unlock()

	// Subscribe without the lock held: a source may deliver synchronously.
	var unsubs []func()
	if samples != nil {
		unsubs = append(unsubs, samples.SubscribeSamples(e.HandleSample))
	}
	if cooldown != nil {
		unsubs = append(unsubs, cooldown.SubscribeCooldown(e.SetCooldown))
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		release(unsubs)
		return
	}
	e.unsubs = append(e.unsubs, unsubs...)
	e.mu.Unlock()
}

// HandleSample processes one upstream sample. It updates calibration and
// the target cursor position; the visual cursor moves on the next Tick.
func (e *Engine) HandleSample(s Sample) {
	e.do(func() {
		if e.closed {
			return
		}
		if e.gate.Suppressed() {
			e.hideLocked()
			return
		}
		if !validFingertip(s.Fingertip) || !e.pointerActive(s.Gestures) {
			e.hideLocked()
			return
		}

		surface, ok := e.surfaceLocked()
		if !ok {
			return
		}

		calibrated := e.calibrator.Observe(*s.Fingertip)
		e.armIdleLocked()

		e.pointer.Target = Map(calibrated, surface, e.cfg.Sensitivity, e.cfg.Mirrored)
		if !e.pointer.Visible {
			e.pointer.Visible = true
			e.smoother.Hide()
		}
	})
}

// Tick advances the visual cursor, hit-tests it and drives the dwell
// controller. Hosts call it once per rendered frame, or use Run.
func (e *Engine) Tick() {
	e.do(func() {
		if e.closed || e.gate.Suppressed() || !e.pointer.Visible {
			return
		}
		if e.geometry == nil {
			return
		}
		targets, err := e.geometry.Targets()
		if err != nil {
			return
		}

		e.pointer.Visual = e.smoother.Advance(e.pointer.Target)
		state := e.pointer
		e.emit(func() { e.presenter.PointerMoved(state) })

		hit, ok := HitTest(e.pointer.Visual, Eligible(targets, e.cfg.PointerGesture))
		id := ""
		if ok {
			id = hit.ID
		}

		if id != e.hovered {
			e.unhoverLocked()
			if ok {
				e.hoverLocked(hit)
			}
			return
		}

		if e.dwell.State() != DwellActive {
			return
		}
		if e.dwell.Due() {
			e.fireLocked(0)
			return
		}
		if p, ok := e.dwell.Progress(); ok {
			e.emit(func() { e.presenter.DwellProgress(p) })
		}
	})
}

// Run drives Tick at the configured frame interval until ctx is done or
// the engine is closed.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.done:
			return
		case <-ticker.C:
			e.Tick()
		}
	}
}

// SetEnabled arms or disarms the engine. Either transition resets
// calibration; disarming also hides the pointer and cancels any dwell.
func (e *Engine) SetEnabled(enabled bool) {
	e.do(func() {
		if e.closed || !e.gate.SetEnabled(enabled) {
			return
		}
		if !enabled {
			e.hideLocked()
		}
		e.calibrator.Reset()
		e.stopIdleLocked()

		if enabled {
			log.Printf("Pointer enabled (gesture: %s)", e.cfg.PointerGesture)
		} else {
			log.Println("Pointer disabled")
		}
	})
}

// SetCooldown updates the global cooldown. While it is positive the
// pointer is hidden and dwelling is cancelled; calibration is kept.
func (e *Engine) SetCooldown(percent float64) {
	e.do(func() {
		if e.closed {
			return
		}
		e.gate.SetCooldown(percent)
		if e.gate.Suppressed() {
			e.hideLocked()
		}
	})
}

// SetPointerGesture changes which recognized gesture arms the pointer and
// persists the choice.
func (e *Engine) SetPointerGesture(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	e.do(func() {
		if e.closed || name == e.cfg.PointerGesture {
			return
		}
		e.cfg.PointerGesture = name
		e.gestureKey = NormalizeGestureName(name)
		e.emit(func() { e.persist(PrefPointerGesture, name) })
		log.Printf("Pointer gesture set to %s", name)
	})
}

// SetMirrored sets horizontal mirroring and persists the choice.
func (e *Engine) SetMirrored(mirrored bool) {
	e.do(func() {
		if e.closed {
			return
		}
		e.setMirroredLocked(mirrored)
	})
}

// ToggleMirroring flips horizontal mirroring and returns the new value.
func (e *Engine) ToggleMirroring() bool {
	var mirrored bool
	e.do(func() {
		mirrored = !e.cfg.Mirrored
		if e.closed {
			mirrored = e.cfg.Mirrored
			return
		}
		e.setMirroredLocked(mirrored)
	})
	return mirrored
}

// State returns a snapshot of the engine.
func (e *Engine) State() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Snapshot{
		Enabled:        e.gate.Enabled(),
		CooldownActive: e.gate.CooldownActive(),
		Suppressed:     e.gate.Suppressed(),
		Mirrored:       e.cfg.Mirrored,
		PointerGesture: e.cfg.PointerGesture,
		Sensitivity:    e.cfg.Sensitivity,
		DwellDuration:  e.cfg.DwellDuration.String(),
		Pointer:        e.pointer,
		Bounds:         e.calibrator.Bounds(),
		Hovered:        e.hovered,
		Dwell:          e.dwell.State().String(),
	}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Close unsubscribes from all sources, stops every timer and hides the
// pointer. It is safe to call more than once.
func (e *Engine) Close() {
	var unsubs []func()
	e.do(func() {
		if e.closed {
			return
		}
		e.hideLocked()
		e.stopIdleLocked()
		e.closed = true
		close(e.done)
		unsubs = e.unsubs
		e.unsubs = nil
	})
	release(unsubs)
}

// do runs fn under the lock and then delivers the callbacks it queued.
func (e *Engine) do(fn func()) {
	e.mu.Lock()
	fn()
	events := e.pending
	e.pending = nil
	e.mu.Unlock()

	for _, ev := range events {
		ev()
	}
}

// emit queues a callback for delivery after the lock is released.
func (e *Engine) emit(fn func()) {
	e.pending = append(e.pending, fn)
}

func (e *Engine) pointerActive(gestures []string) bool {
	for _, g := range gestures {
		if NormalizeGestureName(g) == e.gestureKey {
			return true
		}
	}
	return false
}

func (e *Engine) surfaceLocked() (Rect, bool) {
	if e.geometry == nil {
		return Rect{}, false
	}
	surface, err := e.geometry.Surface()
	if err != nil || surface.Empty() {
		return Rect{}, false
	}
	return surface, true
}

// hideLocked marks the pointer not visible and cancels hover and dwell.
func (e *Engine) hideLocked() {
	e.unhoverLocked()
	if !e.pointer.Visible {
		return
	}
	e.pointer.Visible = false
	e.smoother.Hide()
	state := e.pointer
	e.emit(func() { e.presenter.PointerMoved(state) })
}

func (e *Engine) hoverLocked(t Target) {
	e.hovered = t.ID
	hover := Hover{TargetID: t.ID, Entered: true, HighContrast: t.Active}
	e.emit(func() { e.presenter.HoverChanged(hover) })

	e.dwell.Start(t.ID, e.onDwellExpired)
	start := Progress{TargetID: t.ID, Ratio: 0, Remaining: e.cfg.DwellDuration}
	e.emit(func() { e.presenter.DwellProgress(start) })
}

func (e *Engine) unhoverLocked() {
	e.dwell.Cancel()
	if e.hovered == "" {
		return
	}
	hover := Hover{TargetID: e.hovered, Entered: false}
	e.hovered = ""
	e.emit(func() { e.presenter.HoverChanged(hover) })
}

// onDwellExpired runs on the dwell timer. The hovered target must still be
// under the cursor in the current layout; otherwise the session is dropped.
func (e *Engine) onDwellExpired(gen uint64) {
	e.do(func() {
		if e.closed || !e.dwell.Current(gen) {
			return
		}
		if e.gate.Suppressed() || !e.pointer.Visible {
			return
		}
		if !e.stillHoveredLocked() {
			e.unhoverLocked()
			return
		}
		e.fireLocked(gen)
	})
}

func (e *Engine) stillHoveredLocked() bool {
	if e.geometry == nil {
		return false
	}
	targets, err := e.geometry.Targets()
	if err != nil {
		return false
	}
	hit, ok := HitTest(e.pointer.Visual, Eligible(targets, e.cfg.PointerGesture))
	return ok && hit.ID == e.dwell.TargetID()
}

// fireLocked completes the dwell. The hover is kept, so the same target
// only re-arms after the pointer leaves it.
func (e *Engine) fireLocked(gen uint64) {
	a, ok := e.dwell.Complete(gen)
	if !ok {
		return
	}

	done := Progress{TargetID: a.TargetID, Ratio: 1}
	e.emit(func() { e.presenter.DwellProgress(done) })
	if e.sink != nil {
		sink := e.sink
		e.emit(func() { sink.Activate(a) })
	}
	log.Printf("Dwell activated target: %s", a.TargetID)
}

func (e *Engine) armIdleLocked() {
	e.stopIdleLocked()
	gen := e.idleGen
	e.idleTimer = e.clock.AfterFunc(e.cfg.CalibrationIdle, func() {
		e.do(func() {
			if e.closed || gen != e.idleGen {
				return
			}
			e.calibrator.Reset()
			e.idleTimer = nil
		})
	})
}

func (e *Engine) stopIdleLocked() {
	if e.idleTimer != nil {
		e.idleTimer.Stop()
		e.idleTimer = nil
	}
	e.idleGen++
}

func (e *Engine) setMirroredLocked(mirrored bool) {
	if e.cfg.Mirrored == mirrored {
		return
	}
	e.cfg.Mirrored = mirrored
	value := strconv.FormatBool(mirrored)
	e.emit(func() { e.persist(PrefMirrored, value) })
}

func (e *Engine) persist(key, value string) {
	if e.prefs == nil {
		return
	}
	if err := e.prefs.Set(key, value); err != nil {
		log.Printf("Failed to save preference %s: %v", key, err)
	}
}

func validFingertip(p *Point) bool {
	return p != nil && finite(p.X) && finite(p.Y)
}

func release(unsubs []func()) {
	for _, unsub := range unsubs {
		if unsub != nil {
			unsub()
		}
	}
}
