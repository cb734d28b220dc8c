package events

import "time"

type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// PropertyEvent is implemented by events about one apartment. Deliveries keyed by
// PartitionKey keep the events of an apartment in order.
type PropertyEvent interface {
	DomainEvent
	PropertyKey() string
}

// PartitionKey returns the apartment of ev, or its aggregate id when it has none.
func PartitionKey(ev DomainEvent) string {
	if pe, ok := ev.(PropertyEvent); ok && pe.PropertyKey() != "" {
		return pe.PropertyKey()
	}
	return ev.AggregateID()
}

// EventRecorder collects the events an aggregate raised until a handler drains them
// into the outbox.
type EventRecorder struct {
	pending []DomainEvent
}

func (r *EventRecorder) Record(event DomainEvent) {
	if event == nil {
		return
	}
	r.pending = append(r.pending, event)
}

func (r *EventRecorder) PendingEvents() []DomainEvent {
	return append([]DomainEvent(nil), r.pending...)
}

func (r *EventRecorder) ClearEvents() {
	r.pending = nil
}

// Drain returns the pending events and clears the recorder.
func (r *EventRecorder) Drain() []DomainEvent {
	out := r.pending
	r.pending = nil
	return out
}
