// Package events delivers in-process domain events between modules.
// Concrete event types live with the feature packages that publish them;
// this package only knows how to describe and route them.
package events

import "time"

// Event is anything the bus can deliver. EventName doubles as the
// subscription key.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent carries the occurrence timestamp; embed it in concrete events.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// NewBaseEvent stamps a base event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}
