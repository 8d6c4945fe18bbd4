package reactors

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/storefront-labs/storefront-backend/internal/models"
	"github.com/storefront-labs/storefront-backend/internal/store"
	"github.com/storefront-labs/storefront-backend/internal/stream"
)

type appliedDelta struct {
	docID  string
	deltas map[string]int
}

type fakeCounters struct {
	mu      sync.Mutex
	applied []appliedDelta
	err     error
}

func (f *fakeCounters) Apply(_ context.Context, docID string, deltas map[string]int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.applied = append(f.applied, appliedDelta{docID: docID, deltas: deltas})
	return nil
}

type enqueued struct {
	kind    string
	payload interface{}
}

type fakeOutbox struct {
	mu      sync.Mutex
	entries []enqueued
}

func (f *fakeOutbox) Enqueue(_ context.Context, kind string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, enqueued{kind: kind, payload: payload})
	return nil
}

func (f *fakeOutbox) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.entries))
	for i, e := range f.entries {
		out[i] = e.kind
	}
	return out
}

// fakeInventory implements ProductInventory over a map keyed by product id.
type fakeInventory struct {
	mu       sync.Mutex
	products map[uuid.UUID]*models.Product
	writes   int
}

func newFakeInventory(products ...*models.Product) *fakeInventory {
	m := make(map[uuid.UUID]*models.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return &fakeInventory{products: m}
}

func (f *fakeInventory) Get(_ context.Context, id uuid.UUID) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeInventory) SetInventory(_ context.Context, id uuid.UUID, inventory int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	f.products[id].Inventory = inventory
	return nil
}

// fakeDeduper remembers keys it has seen; preseed seen to simulate a
// redelivered event.
type fakeDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeDeduper() *fakeDeduper {
	return &fakeDeduper{seen: make(map[string]bool)}
}

func (f *fakeDeduper) Once(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func orderEvent(t *testing.T, typ stream.EventType, before, after *models.Order) stream.ChangeEvent {
	t.Helper()
	ev := stream.ChangeEvent{Collection: models.CollectionOrders, Type: typ}
	if before != nil {
		ev.DocID = before.ID.String()
		ev.Before = mustJSON(t, before)
	}
	if after != nil {
		ev.DocID = after.ID.String()
		ev.After = mustJSON(t, after)
	}
	return ev
}

func productEvent(t *testing.T, typ stream.EventType, before, after *models.Product) stream.ChangeEvent {
	t.Helper()
	ev := stream.ChangeEvent{Collection: models.CollectionProducts, Type: typ}
	if before != nil {
		ev.DocID = before.ID.String()
		ev.Before = mustJSON(t, before)
	}
	if after != nil {
		ev.DocID = after.ID.String()
		ev.After = mustJSON(t, after)
	}
	return ev
}
