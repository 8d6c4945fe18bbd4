package reactors

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/storefront-labs/storefront-backend/internal/counters"
	"github.com/storefront-labs/storefront-backend/internal/models"
	"github.com/storefront-labs/storefront-backend/internal/outbox"
	"github.com/storefront-labs/storefront-backend/internal/search"
	"github.com/storefront-labs/storefront-backend/internal/stream"
)

// Provisioner is the slice of the payment gateway the product reactor needs.
type Provisioner interface {
	ProvisionRecurringProduct(ctx context.Context, p *models.Product) (string, map[string]string, error)
}

// ProductWriter is the store surface the reactor writes back through.
type ProductWriter interface {
	MergeSubscription(ctx context.Context, id uuid.UUID, remoteID string, prices map[string]string) error
}

// ProductReactor maintains the product counters (total + per category),
// mirrors products into the search index, and runs the recurring-price
// provisioning saga on creation.
type ProductReactor struct {
	counters CounterEngine
	outbox   Enqueuer
	products ProductWriter
	payments Provisioner
}

func NewProductReactor(counters CounterEngine, outbox Enqueuer, products ProductWriter, payments Provisioner) *ProductReactor {
	return &ProductReactor{counters: counters, outbox: outbox, products: products, payments: payments}
}

func (r *ProductReactor) Handle(ctx context.Context, ev stream.ChangeEvent) error {
	switch ev.Type {
	case stream.EventCreate:
		return r.created(ctx, ev)
	case stream.EventUpdate:
		return r.updated(ctx, ev)
	case stream.EventDelete:
		return r.deleted(ctx, ev)
	}
	return nil
}

func (r *ProductReactor) created(ctx context.Context, ev stream.ChangeEvent) error {
	var p models.Product
	if err := json.Unmarshal(ev.After, &p); err != nil {
		return fmt.Errorf("malformed product snapshot: %w", err)
	}

	deltas := map[string]int{counters.FieldAll: 1}
	if p.Category != "" {
		deltas[p.Category] = 1
	}
	if err := r.counters.Apply(ctx, models.ProductCountsID, deltas); err != nil {
		return fmt.Errorf("product counter increment: %w", err)
	}

	if err := r.outbox.Enqueue(ctx, outbox.KindSearchUpsert, outbox.SearchUpsertPayload{
		Index: search.IndexProducts, ObjectID: ev.DocID, Body: ev.After,
	}); err != nil {
		return err
	}

	return r.Provision(ctx, &p)
}

// Provision runs the recurring-price saga: remote product, one price per
// interval, price ids merged back into the document. The product stays in
// provisioning=pending until the merge lands, so the reconciler can re-run
// this for partially provisioned products.
func (r *ProductReactor) Provision(ctx context.Context, p *models.Product) error {
	if p.Provisioning == models.ProvisioningComplete {
		return nil
	}

	remoteID, prices, err := r.payments.ProvisionRecurringProduct(ctx, p)
	if err != nil {
		return fmt.Errorf("recurring product provisioning: %w", err)
	}
	if err := r.products.MergeSubscription(ctx, p.ID, remoteID, prices); err != nil {
		return fmt.Errorf("failed to attach prices to product %s: %w", p.ID, err)
	}
	return nil
}

func (r *ProductReactor) updated(ctx context.Context, ev stream.ChangeEvent) error {
	var before, after models.Product
	if err := json.Unmarshal(ev.Before, &before); err != nil {
		return fmt.Errorf("malformed product snapshot: %w", err)
	}
	if err := json.Unmarshal(ev.After, &after); err != nil {
		return fmt.Errorf("malformed product snapshot: %w", err)
	}

	// Category moves touch the two category fields only; All changes on
	// create/delete alone.
	if before.Category != after.Category {
		deltas := map[string]int{before.Category: -1, after.Category: 1}
		if err := r.counters.Apply(ctx, models.ProductCountsID, deltas); err != nil {
			return fmt.Errorf("category move: %w", err)
		}
	}

	return r.outbox.Enqueue(ctx, outbox.KindSearchUpsert, outbox.SearchUpsertPayload{
		Index: search.IndexProducts, ObjectID: ev.DocID, Body: ev.After,
	})
}

func (r *ProductReactor) deleted(ctx context.Context, ev stream.ChangeEvent) error {
	var p models.Product
	if err := json.Unmarshal(ev.Before, &p); err != nil {
		return fmt.Errorf("malformed product snapshot: %w", err)
	}

	deltas := map[string]int{counters.FieldAll: -1}
	if p.Category != "" {
		deltas[p.Category] = -1
	}
	if err := r.counters.Apply(ctx, models.ProductCountsID, deltas); err != nil {
		return fmt.Errorf("product counter decrement: %w", err)
	}

	return r.outbox.Enqueue(ctx, outbox.KindSearchDelete, outbox.SearchDeletePayload{
		Index: search.IndexProducts, ObjectID: ev.DocID,
	})
}
