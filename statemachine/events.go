package statemachine

import (
	"sync"

	"go.uber.org/atomic"
)

// Event is a one-shot flag such as "damage taken". Raise may be called from
// any goroutine. The owning controller latches pending raises at the start of
// a tick and clears them at the end, so a raise is observed by exactly one
// full tick; a raise that arrives mid-tick waits for the next one.
type Event struct {
	name      string
	pending   *atomic.Bool
	visible   *atomic.Bool
	mu        sync.RWMutex
	listeners []func(name string)
}

// NewEvent creates an event.
func NewEvent(name string) *Event {
	return &Event{
		name:    name,
		pending: atomic.NewBool(false),
		visible: atomic.NewBool(false),
	}
}

// Name returns the event name.
func (e *Event) Name() string {
	return e.name
}

// Raise marks the event pending and notifies subscribers synchronously.
func (e *Event) Raise() {
	e.pending.Store(true)

	e.mu.RLock()
	listeners := e.listeners
	e.mu.RUnlock()

	for _, listener := range listeners {
		listener(e.name)
	}
}

// Subscribe registers fn to be called on every Raise.
func (e *Event) Subscribe(fn func(name string)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.listeners = append(e.listeners[:len(e.listeners):len(e.listeners)], fn)
}

// Latch moves a pending raise into the visible slot and reports whether it
// did. A visible raise stays visible until Clear.
func (e *Event) Latch() bool {
	if e.pending.Swap(false) {
		e.visible.Store(true)

		return true
	}

	return false
}

// WasRaised reports whether the event is visible in the current tick.
func (e *Event) WasRaised() bool {
	return e.visible.Load()
}

// Clear hides the event until the next latched raise.
func (e *Event) Clear() {
	e.visible.Store(false)
}

// Reset drops both pending and visible raises.
func (e *Event) Reset() {
	e.pending.Store(false)
	e.visible.Store(false)
}
