// Package events carries the in-process event plumbing the portal's modules
// communicate over. The leads engine publishes lifecycle events (creation,
// transitions, escalations); the risk and notification modules subscribe
// without the leads engine knowing they exist.
package events

import (
	"context"
	"time"
)

// Event is implemented by every published event. EventName doubles as the
// subscription key, so two event types must never share a name.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent carries the publication timestamp. Domain events embed it and add
// their own payload fields.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// NewBaseEvent stamps a base event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// OccurredAt returns the publication time.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// Handler consumes events. Subscribers receive only events whose name they
// registered for; a handler returning an error does not stop other handlers.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function into a Handler.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}
