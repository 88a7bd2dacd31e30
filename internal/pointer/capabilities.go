package pointer

import (
	"errors"
	"sync"
)

// ErrGeometryUnavailable is returned by a GeometryProvider that cannot
// currently report the interaction surface.
var ErrGeometryUnavailable = errors.New("geometry unavailable")

// GeometryProvider reports the host's current layout.
type GeometryProvider interface {
	// Surface returns the pixel rectangle the pointer is projected into.
	Surface() (Rect, error)

	// Targets enumerates interactive targets in paint order.
	Targets() ([]Target, error)
}

// SampleSource delivers upstream samples until the returned function is
// called. Calling the unsubscribe function more than once is a no-op.
type SampleSource interface {
	SubscribeSamples(fn func(Sample)) (unsubscribe func())
}

// SuppressionSignal delivers the global cooldown percentage.
// Any value above zero suppresses interaction.
type SuppressionSignal interface {
	SubscribeCooldown(fn func(percent float64)) (unsubscribe func())
}

// PreferenceStore persists simple string preferences across sessions.
type PreferenceStore interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// ActivationSink receives completed dwells.
type ActivationSink interface {
	Activate(a Activation)
}

// Presenter renders pointer feedback. Implementations must not assume
// they run on any particular goroutine.
type Presenter interface {
	PointerMoved(s PointerState)
	HoverChanged(h Hover)
	DwellProgress(p Progress)
}

// SinkFunc adapts a function to ActivationSink.
type SinkFunc func(Activation)

// Activate calls f(a).
func (f SinkFunc) Activate(a Activation) { f(a) }

// MultiSink fans an activation out to several sinks in order.
type MultiSink []ActivationSink

// Activate forwards a to every non-nil sink.
func (m MultiSink) Activate(a Activation) {
	for _, s := range m {
		if s != nil {
			s.Activate(a)
		}
	}
}

// MapPreferences is an in-memory PreferenceStore.
type MapPreferences struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMapPreferences creates an empty in-memory preference store.
func NewMapPreferences() *MapPreferences {
	return &MapPreferences{values: make(map[string]string)}
}

// Get returns the value stored for key.
func (p *MapPreferences) Get(key string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.values[key]
	return v, ok
}

// Set stores value under key.
func (p *MapPreferences) Set(key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
	return nil
}

type nopPresenter struct{}

func (nopPresenter) PointerMoved(PointerState) {}
func (nopPresenter) HoverChanged(Hover)        {}
func (nopPresenter) DwellProgress(Progress)    {}
