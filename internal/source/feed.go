// Package source delivers pointer samples and cooldown signals to the
// engine, either pushed by a browser client or produced from the camera.
package source

import (
	"sort"
	"sync"

	"github.com/ayusman/dwellpoint/internal/pointer"
)

// Feed fans published values out to subscribers. Subscribers are called
// synchronously on the publishing goroutine, in subscription order.
type Feed[T any] struct {
	mu   sync.Mutex
	subs map[uint64]func(T)
	next uint64
}

// Subscribe registers fn. The returned function removes it and may be
// called any number of times. Once it returns, fn receives no value
// published afterwards, including the rest of a Publish already in
// progress. A call to fn that has already started is not interrupted.
func (f *Feed[T]) Subscribe(fn func(T)) func() {
	f.mu.Lock()
	if f.subs == nil {
		f.subs = make(map[uint64]func(T))
	}
	f.next++
	id := f.next
	f.subs[id] = fn
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}

// Publish delivers v to every current subscriber. The lock is not held
// while subscribers run, so they may subscribe or unsubscribe.
func (f *Feed[T]) Publish(v T) {
	for _, id := range f.ids() {
		if fn, ok := f.lookup(id); ok {
			fn(v)
		}
	}
}

// Len returns the number of subscribers.
func (f *Feed[T]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// ids returns the current subscription ids in subscription order.
func (f *Feed[T]) ids() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]uint64, 0, len(f.subs))
	for id := range f.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (f *Feed[T]) lookup(id uint64) (func(T), bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn, ok := f.subs[id]
	return fn, ok
}

// SampleFeed is a pointer.SampleSource.
type SampleFeed struct {
	Feed[pointer.Sample]
}

// NewSampleFeed creates an empty SampleFeed.
func NewSampleFeed() *SampleFeed {
	return &SampleFeed{}
}

// SubscribeSamples implements pointer.SampleSource.
func (f *SampleFeed) SubscribeSamples(fn func(pointer.Sample)) func() {
	return f.Subscribe(fn)
}

// CooldownFeed is a pointer.SuppressionSignal. It remembers the last
// published percentage and replays it to new subscribers, so an engine
// started during a cooldown is suppressed immediately.
type CooldownFeed struct {
	Feed[float64]

	mu   sync.Mutex
	last float64
}

// NewCooldownFeed creates a CooldownFeed with no cooldown in effect.
func NewCooldownFeed() *CooldownFeed {
	return &CooldownFeed{}
}

// SubscribeCooldown implements pointer.SuppressionSignal.
func (f *CooldownFeed) SubscribeCooldown(fn func(float64)) func() {
	unsub := f.Subscribe(fn)
	if last := f.Last(); last > 0 {
		fn(last)
	}
	return unsub
}

// Publish records percent and delivers it to subscribers.
func (f *CooldownFeed) Publish(percent float64) {
	f.mu.Lock()
	f.last = percent
	f.mu.Unlock()
	f.Feed.Publish(percent)
}

// Last returns the most recently published percentage.
func (f *CooldownFeed) Last() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}
