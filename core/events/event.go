package events

import "sync"

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. API streams, reconcilers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(Event)

// Emit implements the Emitter interface.
func (f EmitterFunc) Emit(e Event) {
	if f != nil {
		f(e)
	}
}

// Committed is an event released by a successful commit. Seq increases by
// one per committed event and survives restarts.
type Committed struct {
	Seq   uint64
	Event Event
}

// EventType implements Event by delegating to the wrapped event.
func (c Committed) EventType() string {
	if c.Event == nil {
		return ""
	}
	return c.Event.EventType()
}

// Unwrap returns the underlying event and its commit sequence. Events that
// were never committed report sequence zero.
func Unwrap(e Event) (Event, uint64) {
	if c, ok := e.(Committed); ok {
		return c.Event, c.Seq
	}
	return e, 0
}

// Buffer collects events emitted during a unit of work so they can be
// released only once the work commits.
type Buffer struct {
	events []Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(e Event) {
	if e == nil {
		return
	}
	b.events = append(b.events, e)
}

// Len reports how many events are buffered.
func (b *Buffer) Len() int {
	return len(b.events)
}

// Events returns the buffered events in emission order.
func (b *Buffer) Events() []Event {
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// Flush forwards every buffered event to dst and empties the buffer.
func (b *Buffer) Flush(dst Emitter) {
	if dst != nil {
		for _, e := range b.events {
			dst.Emit(e)
		}
	}
	b.events = nil
}

// Discard drops every buffered event.
func (b *Buffer) Discard() {
	b.events = nil
}

// Broadcaster fans events out to a dynamic set of subscribers. It is safe
// for concurrent use.
type Broadcaster struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]Emitter
}

// NewBroadcaster constructs an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]Emitter)}
}

// Subscribe registers sub and returns a function that removes it again.
func (b *Broadcaster) Subscribe(sub Emitter) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Emit implements the Emitter interface.
func (b *Broadcaster) Emit(e Event) {
	b.mu.RLock()
	subs := make([]Emitter, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()
	for _, sub := range subs {
		sub.Emit(e)
	}
}
