package reactors

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/storefront-labs/storefront-backend/internal/models"
	"github.com/storefront-labs/storefront-backend/internal/payments"
	"golang.org/x/sync/errgroup"
)

// RenewalGateway is the slice of the payment gateway the renewal flow needs.
type RenewalGateway interface {
	RetrievePaymentIntent(ctx context.Context, id string) (*payments.PaymentIntent, error)
	UpdateSubscriptionPayment(ctx context.Context, subscriptionID, paymentMethod string) (*payments.Subscription, error)
}

// RenewalOrders is the order store surface the renewal flow writes through.
type RenewalOrders interface {
	BySubscription(ctx context.Context, subscriptionID string) ([]models.Order, error)
	MarkRenewed(ctx context.Context, id uuid.UUID, amount float64, periodStart int64) error
	Create(ctx context.Context, o *models.Order) error
}

// RenewalReactor rolls a subscription forward on a verified
// payment-succeeded event: the live order (still in New) becomes
// Success/Preparing with the actually-charged amount, and a successor order
// is created in Processing/New anchored to the next period. The update and
// the creation are two separate writes, not one atomic commit.
type RenewalReactor struct {
	gateway RenewalGateway
	orders  RenewalOrders
}

func NewRenewalReactor(gateway RenewalGateway, orders RenewalOrders) *RenewalReactor {
	return &RenewalReactor{gateway: gateway, orders: orders}
}

func (r *RenewalReactor) HandlePaymentSucceeded(ctx context.Context, inv payments.InvoiceData) error {
	intent, err := r.gateway.RetrievePaymentIntent(ctx, inv.PaymentIntent)
	if err != nil {
		return fmt.Errorf("failed to retrieve payment intent: %w", err)
	}
	if intent.PaymentMethod == "" {
		return payments.ErrNoPaymentMethod
	}

	sub, err := r.gateway.UpdateSubscriptionPayment(ctx, inv.Subscription, intent.PaymentMethod)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	orders, err := r.orders.BySubscription(ctx, inv.Subscription)
	if err != nil {
		return fmt.Errorf("failed to query subscription orders: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range orders {
		order := orders[i]
		if order.ShipmentStatus != models.ShipmentNew {
			continue
		}
		g.Go(func() error {
			return r.roll(gctx, &order, intent, sub)
		})
	}
	return g.Wait()
}

func (r *RenewalReactor) roll(ctx context.Context, order *models.Order, intent *payments.PaymentIntent, sub *payments.Subscription) error {
	charged := float64(intent.AmountReceived) / 100
	if err := r.orders.MarkRenewed(ctx, order.ID, charged, sub.CurrentPeriodStart); err != nil {
		return err
	}

	successor := &models.Order{
		ID:                uuid.New(),
		Items:             order.Items,
		Amount:            order.Amount,
		TotalQuantity:     order.TotalQuantity,
		ShippingAddress:   order.ShippingAddress,
		Customer:          order.Customer,
		PaymentStatus:     models.PaymentProcessing,
		PaymentType:       order.PaymentType,
		SubscriptionID:    order.SubscriptionID,
		ShipmentStatus:    models.ShipmentNew,
		SubscriptionStart: sub.CurrentPeriodEnd,
	}
	if err := r.orders.Create(ctx, successor); err != nil {
		return fmt.Errorf("failed to create successor order: %w", err)
	}
	return nil
}
