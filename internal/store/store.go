// Package store owns every write to the primary database. Each repository
// performs the GORM mutation and then publishes a change event carrying
// before/after snapshots, which is what drives the reactors. The publish is
// not transactional with the write: a crash in between can drop an event,
// and redelivery can replay one. Reactors are built for at-least-once.
package store

import (
	"context"
	"encoding/json"

	"github.com/storefront-labs/storefront-backend/internal/stream"
)

func snapshot(doc interface{}) json.RawMessage {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil
	}
	return b
}

func publish(ctx context.Context, pub stream.Publisher, collection string, typ stream.EventType, docID string, before, after json.RawMessage) error {
	return pub.Publish(ctx, stream.ChangeEvent{
		Collection: collection,
		Type:       typ,
		DocID:      docID,
		Before:     before,
		After:      after,
	})
}
