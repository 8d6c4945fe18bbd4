// Package counters maintains the singleton counts documents: one running
// total per collection, plus per-category totals for products. Counts are
// denormalized projections; they survive concurrent reactors through a
// versioned conditional write with bounded retry.
package counters

import (
	"context"
	"errors"
	"fmt"

	"github.com/storefront-labs/storefront-backend/internal/models"
)

// FieldAll addresses the collection-wide total; every other field name is a
// product category.
const FieldAll = "All"

const maxAttempts = 5

var ErrContention = errors.New("counter update contention")

// Store is the persistence the engine needs. Get returns ErrNotFound when
// the counts document has never been created; UpdateVersioned reports false
// when another writer bumped the version first.
type Store interface {
	Get(ctx context.Context, id string) (*models.CountsDoc, error)
	Insert(ctx context.Context, doc *models.CountsDoc) error
	UpdateVersioned(ctx context.Context, doc *models.CountsDoc, expectedVersion int) (bool, error)
}

var ErrNotFound = errors.New("counts document not found")

type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Apply read-modify-writes the named counter fields of one counts document
// in a single write. Semantics:
//   - absent document + any negative delta: skipped entirely (guards the
//     startup race where a delete lands before the first create)
//   - absent document + increments: bootstrap all known fields to zero,
//     then apply
//   - every decrement clamps at zero
//   - version conflict: re-read and retry, bounded
func (e *Engine) Apply(ctx context.Context, docID string, deltas map[string]int) error {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		doc, err := e.store.Get(ctx, docID)
		if errors.Is(err, ErrNotFound) {
			if hasNegative(deltas) {
				return nil
			}
			doc = bootstrap(docID)
			applyDeltas(doc, deltas)
			if err := e.store.Insert(ctx, doc); err != nil {
				// Lost the first-writer race; retry through the update path.
				continue
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read counts document %s: %w", docID, err)
		}

		applyDeltas(doc, deltas)
		ok, err := e.store.UpdateVersioned(ctx, doc, doc.Version)
		if err != nil {
			return fmt.Errorf("failed to write counts document %s: %w", docID, err)
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrContention, docID)
}

func bootstrap(docID string) *models.CountsDoc {
	doc := &models.CountsDoc{ID: docID}
	if docID == models.ProductCountsID {
		doc.Categories = make(map[string]int, len(models.Categories))
		for _, c := range models.Categories {
			doc.Categories[c] = 0
		}
	}
	return doc
}

func applyDeltas(doc *models.CountsDoc, deltas map[string]int) {
	for field, delta := range deltas {
		if field == FieldAll {
			doc.All = clamp(doc.All + delta)
			continue
		}
		if doc.Categories == nil {
			doc.Categories = make(map[string]int)
		}
		doc.Categories[field] = clamp(doc.Categories[field] + delta)
	}
}

func hasNegative(deltas map[string]int) bool {
	for _, d := range deltas {
		if d < 0 {
			return true
		}
	}
	return false
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
