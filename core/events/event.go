package events

import "arclend/core/types"

// Event represents a structured state change emitted by the protocol.
type Event interface {
	EventType() string
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, journals).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while
// discarding all events. It is useful when a component wants to optionally
// expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Buffer collects events produced during one ledger operation. Events only
// become visible to subscribers when the operation commits; an aborted
// operation truncates the buffer back to its checkpoint so no record of the
// rolled-back work survives.
type Buffer struct {
	events []Event
}

// NewBuffer constructs an empty event buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Emit appends an event to the buffer.
func (b *Buffer) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	b.events = append(b.events, evt)
}

// Checkpoint returns a marker for the current buffer length.
func (b *Buffer) Checkpoint() int {
	if b == nil {
		return 0
	}
	return len(b.events)
}

// Revert truncates the buffer back to a previously taken checkpoint.
func (b *Buffer) Revert(checkpoint int) {
	if b == nil || checkpoint < 0 || checkpoint > len(b.events) {
		return
	}
	b.events = b.events[:checkpoint]
}

// Events returns the buffered events in emission order.
func (b *Buffer) Events() []Event {
	if b == nil {
		return nil
	}
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// FlushTo drains the buffer into the provided emitter and resets it. The
// drained events are returned for audit-trail bookkeeping.
func (b *Buffer) FlushTo(sink Emitter) []Event {
	if b == nil {
		return nil
	}
	drained := b.events
	b.events = nil
	if sink != nil {
		for _, evt := range drained {
			sink.Emit(evt)
		}
	}
	return drained
}

// MultiEmitter fans a single event out to several sinks.
type MultiEmitter []Emitter

// Emit implements the Emitter interface.
func (m MultiEmitter) Emit(evt Event) {
	for _, sink := range m {
		if sink != nil {
			sink.Emit(evt)
		}
	}
}
