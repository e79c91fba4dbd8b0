// Package events provides the in-process publish/subscribe hub and the closed
// set of event variants every component reports through.
package events

import (
	"encoding/json"
	"slices"
	"sync"

	"github.com/google/uuid"

	"devpilot/internal/logger"
)

// Handler receives a published event
type Handler func(Event)

// anyKind is the registry key for wildcard subscribers
const anyKind Kind = "*"

// Subscription identifies one registration. It is returned by Subscribe and
// passed back to Unsubscribe.
type Subscription struct {
	kind Kind
	id   uuid.UUID
}

// ID returns the registration id
func (s Subscription) ID() string {
	return s.id.String()
}

type registration struct {
	id uuid.UUID
	fn Handler
}

// Bus fans events out to subscribers synchronously. The zero value is not
// usable; use NewBus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind][]registration
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{handlers: make(map[Kind][]registration)}
}

// Subscribe registers fn for events of the given kind
func (b *Bus) Subscribe(kind Kind, fn Handler) Subscription {
	sub := Subscription{kind: kind, id: uuid.New()}

	b.mu.Lock()
	b.handlers[kind] = append(b.handlers[kind], registration{id: sub.id, fn: fn})
	b.mu.Unlock()

	return sub
}

// SubscribeAll registers fn for every kind. Wildcard handlers run after the
// kind-specific ones.
func (b *Bus) SubscribeAll(fn Handler) Subscription {
	return b.Subscribe(anyKind, fn)
}

// Unsubscribe removes exactly the registration identified by sub. Unknown or
// already removed subscriptions are ignored.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	regs := b.handlers[sub.kind]
	idx := slices.IndexFunc(regs, func(r registration) bool { return r.id == sub.id })
	if idx < 0 {
		return
	}
	regs = slices.Delete(slices.Clone(regs), idx, idx+1)
	if len(regs) == 0 {
		delete(b.handlers, sub.kind)
		return
	}
	b.handlers[sub.kind] = regs
}

// Publish invokes every handler registered for e's kind, in registration
// order, before returning. The handler set is captured when Publish starts so
// handlers may subscribe, unsubscribe or publish without deadlocking.
func (b *Bus) Publish(e Event) {
	if e == nil {
		return
	}

	b.mu.RLock()
	targets := make([]registration, 0, len(b.handlers[e.Kind()])+len(b.handlers[anyKind]))
	targets = append(targets, b.handlers[e.Kind()]...)
	targets = append(targets, b.handlers[anyKind]...)
	b.mu.RUnlock()

	for _, r := range targets {
		r.fn(e)
	}
}

// Count returns the number of handlers registered for kind
func (b *Bus) Count(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[kind])
}

// Conn is a connection able to receive JSON frames, such as *websocket.Conn
type Conn interface {
	WriteJSON(v interface{}) error
}

// Envelope is the wire form of an event
type Envelope struct {
	Type    Kind  `json:"type"`
	Payload Event `json:"payload"`
}

// NewEnvelope wraps e for the wire
func NewEnvelope(e Event) Envelope {
	return Envelope{Type: e.Kind(), Payload: e}
}

// Marshal encodes e as an envelope
func Marshal(e Event) ([]byte, error) {
	return json.Marshal(NewEnvelope(e))
}

// SendToConns writes e to every connection and returns how many writes
// succeeded. Failed writes are logged and skipped.
func SendToConns(conns []Conn, e Event) int {
	env := NewEnvelope(e)
	sent := 0
	for _, c := range conns {
		if c == nil {
			continue
		}
		if err := c.WriteJSON(env); err != nil {
			logger.WithFields(logger.Fields{
				"event": string(e.Kind()),
				"error": err.Error(),
			}).Debug("Dropping event for connection")
			continue
		}
		sent++
	}
	return sent
}

// BroadcastToWebSocket sends e to every connection, then publishes it in
// process. It is meant for the holder of the connections announcing its own
// events; a bus subscriber forwarding events must use SendToConns.
func (b *Bus) BroadcastToWebSocket(conns []Conn, e Event) {
	SendToConns(conns, e)
	b.Publish(e)
}
