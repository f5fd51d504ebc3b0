package events

import "time"

// DomainEvent is the minimal contract the outbox needs to serialize and
// route an event.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}
