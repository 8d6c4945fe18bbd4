package reactors

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/storefront-labs/storefront-backend/internal/models"
	"github.com/storefront-labs/storefront-backend/internal/shipping"
	"github.com/storefront-labs/storefront-backend/internal/store"
)

// ShipmentDetailFetcher is the slice of the shipping client the webhook
// follow-up needs.
type ShipmentDetailFetcher interface {
	FetchShipmentDetail(ctx context.Context, resourceURL string) (*shipping.ShipmentDetail, error)
}

// ShipmentOrders is the order store surface the status updater writes
// through.
type ShipmentOrders interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	SetShipmentStatus(ctx context.Context, id uuid.UUID, status string) error
}

// ShipmentReactor reacts to the provider's ship-notify webhook: fetch the
// order detail behind resource_url and flip the matching order to Shipped.
// Unknown orders are a silent no-op.
type ShipmentReactor struct {
	shipping ShipmentDetailFetcher
	orders   ShipmentOrders
}

func NewShipmentReactor(sh ShipmentDetailFetcher, orders ShipmentOrders) *ShipmentReactor {
	return &ShipmentReactor{shipping: sh, orders: orders}
}

func (r *ShipmentReactor) HandleNotification(ctx context.Context, resourceType, resourceURL string) error {
	if resourceType != shipping.NotifyShipped {
		return nil
	}

	detail, err := r.shipping.FetchShipmentDetail(ctx, resourceURL)
	if err != nil {
		return fmt.Errorf("failed to fetch shipment detail: %w", err)
	}

	orderID, err := uuid.Parse(detail.OrderKey)
	if err != nil {
		return nil
	}

	if _, err := r.orders.Get(ctx, orderID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	return r.orders.SetShipmentStatus(ctx, orderID, models.ShipmentShipped)
}
