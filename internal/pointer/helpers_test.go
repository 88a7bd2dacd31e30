package pointer

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

// fakeGeometry is a mutable GeometryProvider.
type fakeGeometry struct {
	mu         sync.Mutex
	surface    Rect
	targets    []Target
	surfaceErr error
	targetsErr error
}

func (g *fakeGeometry) Surface() (Rect, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.surface, g.surfaceErr
}

func (g *fakeGeometry) Targets() ([]Target, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Target, len(g.targets))
	copy(out, g.targets)
	return out, g.targetsErr
}

func (g *fakeGeometry) setTargets(targets ...Target) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.targets = targets
}

func (g *fakeGeometry) setErrors(surfaceErr, targetsErr error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.surfaceErr = surfaceErr
	g.targetsErr = targetsErr
}

// recorder captures presenter and sink output.
type recorder struct {
	mu          sync.Mutex
	pointers    []PointerState
	hovers      []Hover
	progress    []Progress
	activations []Activation
	onActivate  func(Activation)
}

func (r *recorder) PointerMoved(s PointerState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pointers = append(r.pointers, s)
}

func (r *recorder) HoverChanged(h Hover) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hovers = append(r.hovers, h)
}

func (r *recorder) DwellProgress(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, p)
}

func (r *recorder) Activate(a Activation) {
	r.mu.Lock()
	r.activations = append(r.activations, a)
	fn := r.onActivate
	r.mu.Unlock()
	if fn != nil {
		fn(a)
	}
}

func (r *recorder) activationCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.activations)
}

func (r *recorder) lastHover() (Hover, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.hovers) == 0 {
		return Hover{}, false
	}
	return r.hovers[len(r.hovers)-1], true
}

func (r *recorder) hoverCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hovers)
}

func (r *recorder) progressFor(id string) []Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Progress
	for _, p := range r.progress {
		if p.TargetID == id {
			out = append(out, p)
		}
	}
	return out
}

// fakeFeed is a SampleSource and SuppressionSignal that counts unsubscribes.
type fakeFeed struct {
	mu         sync.Mutex
	samples    map[int]func(Sample)
	cooldowns  map[int]func(float64)
	next       int
	unsubCalls int
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{
		samples:   make(map[int]func(Sample)),
		cooldowns: make(map[int]func(float64)),
	}
}

func (f *fakeFeed) SubscribeSamples(fn func(Sample)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := f.next
	f.samples[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.unsubCalls++
		delete(f.samples, id)
	}
}

func (f *fakeFeed) SubscribeCooldown(fn func(float64)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := f.next
	f.cooldowns[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.unsubCalls++
		delete(f.cooldowns, id)
	}
}

func (f *fakeFeed) publishSample(s Sample) {
	f.mu.Lock()
	subs := make([]func(Sample), 0, len(f.samples))
	for _, fn := range f.samples {
		subs = append(subs, fn)
	}
	f.mu.Unlock()
	for _, fn := range subs {
		fn(s)
	}
}

func (f *fakeFeed) publishCooldown(percent float64) {
	f.mu.Lock()
	subs := make([]func(float64), 0, len(f.cooldowns))
	for _, fn := range f.cooldowns {
		subs = append(subs, fn)
	}
	f.mu.Unlock()
	for _, fn := range subs {
		fn(percent)
	}
}

func (f *fakeFeed) subscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.samples) + len(f.cooldowns)
}

// harness bundles an engine with its fakes.
type harness struct {
	engine   *Engine
	clock    *clock.Mock
	geometry *fakeGeometry
	rec      *recorder
}

// testConfig uses unit sensitivity and no smoothing so mapped pixels are exact.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Sensitivity = 1
	cfg.SmoothingFactor = 1
	return cfg
}

var (
	surface1000 = Rect{X: 0, Y: 0, Width: 1000, Height: 1000}
	targetA     = Target{ID: "A", Rect: Rect{X: 400, Y: 400, Width: 200, Height: 200}, Enabled: true}
	targetB     = Target{ID: "B", Rect: Rect{X: 700, Y: 400, Width: 200, Height: 200}, Enabled: true}
)

func newHarness(t *testing.T, cfg Config, targets ...Target) *harness {
	t.Helper()

	mock := clock.NewMock()
	geo := &fakeGeometry{surface: surface1000, targets: targets}
	rec := &recorder{}

	e := New(cfg, Deps{
		Geometry:  geo,
		Sink:      rec,
		Presenter: rec,
		Clock:     mock,
	})
	e.SetEnabled(true)
	t.Cleanup(e.Close)

	return &harness{engine: e, clock: mock, geometry: geo, rec: rec}
}

func pointing(x, y float64) Sample {
	return Sample{Fingertip: &Point{X: x, Y: y}, Gestures: []string{"Pointing_Up"}}
}

// calibrate sweeps the fingertip so the bounds become [0.25,0.75] on both
// axes. Raw 0.5 then calibrates to 0.5 and raw 0.65 to 0.8.
func (h *harness) calibrate() {
	h.engine.HandleSample(pointing(0.2, 0.2))
	h.engine.HandleSample(pointing(0.8, 0.8))
}

// hold feeds the same raw sample and ticks every step for the given duration.
func (h *harness) hold(raw Sample, total, step time.Duration) {
	for elapsed := time.Duration(0); elapsed < total; elapsed += step {
		h.clock.Add(step)
		h.engine.HandleSample(raw)
		h.engine.Tick()
	}
}

// waitFor polls cond. Mock clock timers call back on their own goroutine,
// so effects of a timer are observed asynchronously.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// timersIdle reports whether the engine holds no dwell session or idle timer.
func (h *harness) timersIdle() bool {
	h.engine.mu.Lock()
	defer h.engine.mu.Unlock()
	return h.engine.idleTimer == nil && h.engine.dwell.State() == DwellIdle
}
