package stream

import (
	"context"
	"encoding/json"
	"time"
)

type EventType string

const (
	EventCreate EventType = "create"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// ChangeEvent is one document change as delivered to a reactor. Before is
// empty on create, After on delete; both are full document snapshots.
type ChangeEvent struct {
	ID         string          `json:"id"`
	Collection string          `json:"collection"`
	Type       EventType       `json:"type"`
	DocID      string          `json:"docId"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// Handler reacts to one change event. A returned error aborts that
// invocation's remaining steps; writes already committed stay in place and
// the event is not retried.
type Handler func(ctx context.Context, ev ChangeEvent) error

// Publisher emits change events for reactors to consume.
type Publisher interface {
	Publish(ctx context.Context, ev ChangeEvent) error
}
