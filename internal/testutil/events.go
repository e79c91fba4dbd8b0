package testutil

import (
	"sync"

	"devpilot/internal/events"
)

// Recorder captures every event published on a bus
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
}

// NewRecorder subscribes a recorder to all kinds on bus
func NewRecorder(bus *events.Bus) *Recorder {
	r := &Recorder{}
	bus.SubscribeAll(func(e events.Event) {
		r.mu.Lock()
		r.events = append(r.events, e)
		r.mu.Unlock()
	})
	return r
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

// Kinds returns the recorded kinds in publish order
func (r *Recorder) Kinds() []events.Kind {
	evs := r.Events()
	kinds := make([]events.Kind, len(evs))
	for i, e := range evs {
		kinds[i] = e.Kind()
	}
	return kinds
}

// Count returns how many events of kind were recorded
func (r *Recorder) Count(kind events.Kind) int {
	n := 0
	for _, e := range r.Events() {
		if e.Kind() == kind {
			n++
		}
	}
	return n
}

// Has reports whether an event of kind was recorded
func (r *Recorder) Has(kind events.Kind) bool {
	return r.Count(kind) > 0
}

// Last returns the most recent event of kind, or nil
func (r *Recorder) Last(kind events.Kind) events.Event {
	evs := r.Events()
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Kind() == kind {
			return evs[i]
		}
	}
	return nil
}

// Reset drops everything recorded so far
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
