// Package reactors holds the handlers bound to the change stream: one
// reactor per collection, plus the webhook-driven subscription renewal and
// shipment status flows. Reactors run under at-least-once delivery with no
// ordering across documents, so every step is either idempotent or
// explicitly deduplicated.
package reactors

import "context"

// CounterEngine applies counter deltas to a counts document.
type CounterEngine interface {
	Apply(ctx context.Context, docID string, deltas map[string]int) error
}

// Enqueuer records a side effect for the outbox sweeper.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind string, payload interface{}) error
}

// Deduper reports whether a key is seen for the first time. Used to keep
// redelivered inventory decrements from applying twice.
type Deduper interface {
	Once(ctx context.Context, key string) (bool, error)
}
