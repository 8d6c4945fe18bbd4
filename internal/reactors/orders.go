package reactors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/storefront-labs/storefront-backend/internal/counters"
	"github.com/storefront-labs/storefront-backend/internal/models"
	"github.com/storefront-labs/storefront-backend/internal/outbox"
	"github.com/storefront-labs/storefront-backend/internal/search"
	"github.com/storefront-labs/storefront-backend/internal/store"
	"github.com/storefront-labs/storefront-backend/internal/stream"
	"golang.org/x/sync/errgroup"
)

const inventoryFanout = 4

// ProductInventory is the store surface the order reactor decrements
// through.
type ProductInventory interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	SetInventory(ctx context.Context, id uuid.UUID, inventory int) error
}

// OrderReactor drives the order lifecycle: inventory decrement and shipment
// creation when payment succeeds, counter maintenance, and index mirroring.
type OrderReactor struct {
	counters CounterEngine
	outbox   Enqueuer
	products ProductInventory
	dedup    Deduper
}

func NewOrderReactor(counters CounterEngine, outbox Enqueuer, products ProductInventory, dedup Deduper) *OrderReactor {
	return &OrderReactor{counters: counters, outbox: outbox, products: products, dedup: dedup}
}

func (r *OrderReactor) Handle(ctx context.Context, ev stream.ChangeEvent) error {
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

func (r *OrderReactor) created(ctx context.Context, ev stream.ChangeEvent) error {
	var order models.Order
	if err := json.Unmarshal(ev.After, &order); err != nil {
		return fmt.Errorf("malformed order snapshot: %w", err)
	}

	if order.PaymentStatus == models.PaymentSuccess {
		if err := r.fulfill(ctx, ev.DocID, &order); err != nil {
			return err
		}
	}

	if err := r.counters.Apply(ctx, models.OrderCountsID, map[string]int{counters.FieldAll: 1}); err != nil {
		return fmt.Errorf("order counter increment: %w", err)
	}

	return r.outbox.Enqueue(ctx, outbox.KindSearchUpsert, outbox.SearchUpsertPayload{
		Index: search.IndexOrders, ObjectID: ev.DocID, Body: ev.After,
	})
}

func (r *OrderReactor) updated(ctx context.Context, ev stream.ChangeEvent) error {
	var before, after models.Order
	if err := json.Unmarshal(ev.Before, &before); err != nil {
		return fmt.Errorf("malformed order snapshot: %w", err)
	}
	if err := json.Unmarshal(ev.After, &after); err != nil {
		return fmt.Errorf("malformed order snapshot: %w", err)
	}

	// Only the Processing -> Success transition fulfills; every other field
	// change, including Success -> Success redeliveries, just re-mirrors.
	if before.PaymentStatus == models.PaymentProcessing && after.PaymentStatus == models.PaymentSuccess {
		if err := r.fulfill(ctx, ev.DocID, &after); err != nil {
			return err
		}
	}

	return r.outbox.Enqueue(ctx, outbox.KindSearchUpsert, outbox.SearchUpsertPayload{
		Index: search.IndexOrders, ObjectID: ev.DocID, Body: ev.After,
	})
}

func (r *OrderReactor) deleted(ctx context.Context, ev stream.ChangeEvent) error {
	// Inventory is not restored on deletion.
	if err := r.counters.Apply(ctx, models.OrderCountsID, map[string]int{counters.FieldAll: -1}); err != nil {
		return fmt.Errorf("order counter decrement: %w", err)
	}

	if err := r.outbox.Enqueue(ctx, outbox.KindShipmentCancel, outbox.ShipmentCancelPayload{
		OrderID: ev.DocID,
	}); err != nil {
		return err
	}

	return r.outbox.Enqueue(ctx, outbox.KindSearchDelete, outbox.SearchDeletePayload{
		Index: search.IndexOrders, ObjectID: ev.DocID,
	})
}

// fulfill decrements inventory for every line item and queues the remote
// shipment. Items are processed concurrently with no ordering among them,
// each decrement deduplicated on (order id, product id) so a redelivered
// event cannot drain stock twice.
func (r *OrderReactor) fulfill(ctx context.Context, orderID string, order *models.Order) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(inventoryFanout)
	for _, item := range order.Items {
		item := item
		g.Go(func() error {
			return r.decrement(gctx, orderID, item)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return r.outbox.Enqueue(ctx, outbox.KindShipmentCreate, outbox.ShipmentCreatePayload{
		OrderID: orderID,
		Order:   *order,
	})
}

func (r *OrderReactor) decrement(ctx context.Context, orderID string, item models.CartItem) error {
	productID := item.Item.ID
	first, err := r.dedup.Once(ctx, "inv:"+orderID+":"+productID.String())
	if err != nil {
		return fmt.Errorf("inventory dedup check: %w", err)
	}
	if !first {
		slog.Info("skipping duplicate inventory decrement", "doc_id", orderID, "product_id", productID.String())
		return nil
	}

	product, err := r.products.Get(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load product %s: %w", productID, err)
	}

	// Oversold orders floor at zero rather than going negative or blocking.
	inventory := product.Inventory - item.Quantity
	if inventory < 0 {
		inventory = 0
	}
	if err := r.products.SetInventory(ctx, productID, inventory); err != nil {
		return fmt.Errorf("failed to decrement inventory for %s: %w", productID, err)
	}
	return nil
}
