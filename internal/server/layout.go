package server

import (
	"sync"

	"github.com/ayusman/dwellpoint/internal/pointer"
)

// Layout is a pointer.GeometryProvider fed by the browser client. It
// reports pointer.ErrGeometryUnavailable until a layout with a non-empty
// surface has been received.
type Layout struct {
	mu      sync.RWMutex
	surface pointer.Rect
	targets []pointer.Target
	set     bool
}

// NewLayout creates an empty Layout.
func NewLayout() *Layout {
	return &Layout{}
}

// Update replaces the surface and targets.
func (l *Layout) Update(surface pointer.Rect, targets []pointer.Target) {
	copied := append([]pointer.Target(nil), targets...)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.surface = surface
	l.targets = copied
	l.set = true
}

// Clear forgets the current layout.
func (l *Layout) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.surface = pointer.Rect{}
	l.targets = nil
	l.set = false
}

// Surface implements pointer.GeometryProvider.
func (l *Layout) Surface() (pointer.Rect, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.set || l.surface.Empty() {
		return pointer.Rect{}, pointer.ErrGeometryUnavailable
	}
	return l.surface, nil
}

// Targets implements pointer.GeometryProvider.
func (l *Layout) Targets() ([]pointer.Target, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.set {
		return nil, pointer.ErrGeometryUnavailable
	}
	return append([]pointer.Target(nil), l.targets...), nil
}
