package reactors

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-labs/storefront-backend/internal/models"
	"github.com/storefront-labs/storefront-backend/internal/shipping"
	"github.com/storefront-labs/storefront-backend/internal/store"
)

type fakeDetailFetcher struct {
	detail *shipping.ShipmentDetail
	err    error
	calls  int
}

func (f *fakeDetailFetcher) FetchShipmentDetail(_ context.Context, _ string) (*shipping.ShipmentDetail, error) {
	f.calls++
	return f.detail, f.err
}

type fakeShipmentOrders struct {
	known   map[uuid.UUID]*models.Order
	updates map[uuid.UUID]string
}

func newFakeShipmentOrders(orders ...*models.Order) *fakeShipmentOrders {
	known := make(map[uuid.UUID]*models.Order, len(orders))
	for _, o := range orders {
		known[o.ID] = o
	}
	return &fakeShipmentOrders{known: known, updates: make(map[uuid.UUID]string)}
}

func (f *fakeShipmentOrders) Get(_ context.Context, id uuid.UUID) (*models.Order, error) {
	o, ok := f.known[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return o, nil
}

func (f *fakeShipmentOrders) SetShipmentStatus(_ context.Context, id uuid.UUID, status string) error {
	f.updates[id] = status
	return nil
}

func TestShipNotifyFlipsOrderToShipped(t *testing.T) {
	order := &models.Order{ID: uuid.New(), ShipmentStatus: models.ShipmentPreparing}
	orders := newFakeShipmentOrders(order)
	fetcher := &fakeDetailFetcher{detail: &shipping.ShipmentDetail{OrderKey: order.ID.String()}}

	r := NewShipmentReactor(fetcher, orders)
	err := r.HandleNotification(context.Background(), shipping.NotifyShipped, "https://ship.example.com/shipments/1")
	require.NoError(t, err)
	assert.Equal(t, models.ShipmentShipped, orders.updates[order.ID])
}

func TestShipNotifyIgnoresOtherResourceTypes(t *testing.T) {
	fetcher := &fakeDetailFetcher{}
	r := NewShipmentReactor(fetcher, newFakeShipmentOrders())

	err := r.HandleNotification(context.Background(), "ITEM_ORDER_NOTIFY", "https://ship.example.com/x")
	require.NoError(t, err)
	assert.Zero(t, fetcher.calls, "only SHIP_NOTIFY triggers a detail fetch")
}

func TestShipNotifyUnknownOrderIsANoOp(t *testing.T) {
	orders := newFakeShipmentOrders()
	fetcher := &fakeDetailFetcher{detail: &shipping.ShipmentDetail{OrderKey: uuid.NewString()}}

	r := NewShipmentReactor(fetcher, orders)
	err := r.HandleNotification(context.Background(), shipping.NotifyShipped, "https://ship.example.com/shipments/1")
	require.NoError(t, err)
	assert.Empty(t, orders.updates)
}

func TestShipNotifyUnparsableOrderKeyIsANoOp(t *testing.T) {
	orders := newFakeShipmentOrders()
	fetcher := &fakeDetailFetcher{detail: &shipping.ShipmentDetail{OrderKey: "SS-12345"}}

	r := NewShipmentReactor(fetcher, orders)
	err := r.HandleNotification(context.Background(), shipping.NotifyShipped, "https://ship.example.com/shipments/1")
	require.NoError(t, err)
	assert.Empty(t, orders.updates)
}

func TestShipNotifyPropagatesFetchFailure(t *testing.T) {
	fetcher := &fakeDetailFetcher{err: errors.New("gateway timeout")}
	r := NewShipmentReactor(fetcher, newFakeShipmentOrders())

	err := r.HandleNotification(context.Background(), shipping.NotifyShipped, "https://ship.example.com/shipments/1")
	require.Error(t, err)
}
