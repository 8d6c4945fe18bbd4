package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-labs/storefront-backend/internal/config"
	"github.com/storefront-labs/storefront-backend/internal/models"
	"github.com/storefront-labs/storefront-backend/internal/payments"
	"github.com/storefront-labs/storefront-backend/internal/reactors"
	"github.com/storefront-labs/storefront-backend/internal/shipping"
	"github.com/storefront-labs/storefront-backend/internal/store"
)

const webhookSecret = "whsec_test"

type stubGateway struct {
	intent *payments.PaymentIntent
	sub    *payments.Subscription
	calls  int
}

func (s *stubGateway) RetrievePaymentIntent(_ context.Context, _ string) (*payments.PaymentIntent, error) {
	s.calls++
	return s.intent, nil
}

func (s *stubGateway) UpdateSubscriptionPayment(_ context.Context, _, _ string) (*payments.Subscription, error) {
	return s.sub, nil
}

type stubOrders struct {
	mu      sync.Mutex
	orders  []models.Order
	marks   int
	created int
	shipped []uuid.UUID
}

func (s *stubOrders) BySubscription(_ context.Context, _ string) ([]models.Order, error) {
	return s.orders, nil
}

func (s *stubOrders) MarkRenewed(_ context.Context, _ uuid.UUID, _ float64, _ int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marks++
	return nil
}

func (s *stubOrders) Create(_ context.Context, _ *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created++
	return nil
}

func (s *stubOrders) Get(_ context.Context, id uuid.UUID) (*models.Order, error) {
	for i := range s.orders {
		if s.orders[i].ID == id {
			return &s.orders[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *stubOrders) SetShipmentStatus(_ context.Context, id uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == models.ShipmentShipped {
		s.shipped = append(s.shipped, id)
	}
	return nil
}

type stubDetailFetcher struct {
	detail *shipping.ShipmentDetail
}

func (s *stubDetailFetcher) FetchShipmentDetail(_ context.Context, _ string) (*shipping.ShipmentDetail, error) {
	return s.detail, nil
}

func webhookApp(gw *stubGateway, orders *stubOrders, fetcher *stubDetailFetcher) *fiber.App {
	cfg := &config.Config{
		StripeSigningKey: webhookSecret,
		WebhookTolerance: 5 * time.Minute,
	}
	h := NewWebhookHandler(cfg,
		reactors.NewRenewalReactor(gw, orders),
		reactors.NewShipmentReactor(fetcher, orders),
	)
	app := fiber.New()
	app.Post("/api/webhooks/payments", h.HandlePayments)
	app.Post("/api/webhooks/shipments", h.HandleShipments)
	return app
}

func signEvent(payload []byte, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestPaymentWebhookRejectsInvalidSignature(t *testing.T) {
	gw := &stubGateway{}
	orders := &stubOrders{orders: []models.Order{{ID: uuid.New(), ShipmentStatus: models.ShipmentNew}}}
	app := webhookApp(gw, orders, &stubDetailFetcher{})

	payload := []byte(`{"id": "evt_1", "type": "invoice.payment_succeeded", "data": {"object": {}}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payments", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=1700000000,v1=00deadbeef")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// A rejected request must not touch the gateway or the store.
	assert.Zero(t, gw.calls)
	assert.Zero(t, orders.marks)
	assert.Zero(t, orders.created)
}

func TestPaymentWebhookRenewsSubscription(t *testing.T) {
	gw := &stubGateway{
		intent: &payments.PaymentIntent{ID: "pi_1", AmountReceived: 5998, PaymentMethod: "pm_1"},
		sub:    &payments.Subscription{ID: "sub_42", CurrentPeriodStart: 1, CurrentPeriodEnd: 2},
	}
	orders := &stubOrders{orders: []models.Order{{
		ID:             uuid.New(),
		SubscriptionID: "sub_42",
		PaymentStatus:  models.PaymentProcessing,
		ShipmentStatus: models.ShipmentNew,
	}}}
	app := webhookApp(gw, orders, &stubDetailFetcher{})

	payload := []byte(`{
		"id": "evt_1",
		"type": "invoice.payment_succeeded",
		"data": {"object": {"subscription": "sub_42", "payment_intent": "pi_1"}}
	}`)
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payments", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signEvent(payload, time.Now()))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, orders.marks)
	assert.Equal(t, 1, orders.created)
}

func TestPaymentWebhookIgnoresOtherEventTypes(t *testing.T) {
	gw := &stubGateway{}
	orders := &stubOrders{}
	app := webhookApp(gw, orders, &stubDetailFetcher{})

	payload := []byte(`{"id": "evt_1", "type": "customer.created", "data": {"object": {}}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payments", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signEvent(payload, time.Now()))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, gw.calls)
}

func TestShipmentWebhookMarksOrderShipped(t *testing.T) {
	orderID := uuid.New()
	orders := &stubOrders{orders: []models.Order{{ID: orderID, ShipmentStatus: models.ShipmentPreparing}}}
	fetcher := &stubDetailFetcher{detail: &shipping.ShipmentDetail{OrderKey: orderID.String()}}
	app := webhookApp(&stubGateway{}, orders, fetcher)

	payload := []byte(`{"resource_type": "SHIP_NOTIFY", "resource_url": "https://ship.example.com/shipments/1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/shipments", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []uuid.UUID{orderID}, orders.shipped)
}

func TestShipmentWebhookIgnoresOtherResourceTypes(t *testing.T) {
	orders := &stubOrders{}
	app := webhookApp(&stubGateway{}, orders, &stubDetailFetcher{})

	payload := []byte(`{"resource_type": "FULFILLMENT_SHIPPED", "resource_url": "https://ship.example.com/x"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/shipments", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, orders.shipped)
}
