package handlers

import (
	"encoding/json"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/storefront-labs/storefront-backend/internal/config"
	"github.com/storefront-labs/storefront-backend/internal/dto"
	"github.com/storefront-labs/storefront-backend/internal/payments"
	"github.com/storefront-labs/storefront-backend/internal/reactors"
)

// WebhookHandler receives the two inbound gateway callbacks. Both collapse
// every failure into a bare 400: the sender's retries cannot tell
// transient from permanent, which is accepted.
type WebhookHandler struct {
	cfg      *config.Config
	renewal  *reactors.RenewalReactor
	shipment *reactors.ShipmentReactor
}

func NewWebhookHandler(cfg *config.Config, renewal *reactors.RenewalReactor, shipment *reactors.ShipmentReactor) *WebhookHandler {
	return &WebhookHandler{cfg: cfg, renewal: renewal, shipment: shipment}
}

// HandlePayments verifies the signature first; nothing is mutated on a
// verification failure.
func (h *WebhookHandler) HandlePayments(c *fiber.Ctx) error {
	event, err := payments.ConstructEvent(
		c.Body(),
		c.Get("Stripe-Signature"),
		h.cfg.StripeSigningKey,
		h.cfg.WebhookTolerance,
	)
	if err != nil {
		slog.Warn("payment webhook rejected", "error", err.Error())
		return c.SendStatus(fiber.StatusBadRequest)
	}

	if event.Type == payments.EventPaymentSucceeded {
		var inv payments.InvoiceData
		if err := json.Unmarshal(event.Data.Object, &inv); err != nil {
			return c.SendStatus(fiber.StatusBadRequest)
		}
		if err := h.renewal.HandlePaymentSucceeded(c.Context(), inv); err != nil {
			slog.Error("subscription renewal failed",
				"action", "renewal",
				"event_id", event.ID,
				"error", err.Error())
			return c.SendStatus(fiber.StatusBadRequest)
		}
	}

	return c.SendStatus(fiber.StatusOK)
}

// HandleShipments is unauthenticated by provider design; unknown resource
// types and unknown orders are no-ops.
func (h *WebhookHandler) HandleShipments(c *fiber.Ctx) error {
	var note dto.ShipmentNotification
	if err := c.BodyParser(&note); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	if err := h.shipment.HandleNotification(c.Context(), note.ResourceType, note.ResourceURL); err != nil {
		slog.Error("shipment notification failed", "action", "ship-notify", "error", err.Error())
		return c.SendStatus(fiber.StatusBadRequest)
	}
	return c.SendStatus(fiber.StatusOK)
}
