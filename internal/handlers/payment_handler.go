package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/storefront-labs/storefront-backend/internal/dto"
	"github.com/storefront-labs/storefront-backend/internal/middleware"
	"github.com/storefront-labs/storefront-backend/internal/payments"
	"github.com/storefront-labs/storefront-backend/internal/store"
)

// PaymentHandler exposes the authenticated payment RPC surface. Gateway
// errors propagate to the caller verbatim.
type PaymentHandler struct {
	gateway *payments.Client
	users   *store.Users
}

func NewPaymentHandler(gateway *payments.Client, users *store.Users) *PaymentHandler {
	return &PaymentHandler{gateway: gateway, users: users}
}

func (h *PaymentHandler) CreateIntent(c *fiber.Ctx) error {
	var req dto.PaymentIntentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	intent, err := h.gateway.CreatePaymentIntent(c.Context(), req.Amount, req.Customer, req.PaymentMethod)
	if err != nil {
		return gatewayError(c, err)
	}
	return c.JSON(dto.PaymentIntentResponse{ClientSecret: intent.ClientSecret})
}

// CreateCustomer provisions the remote customer for the caller and stores
// its id on the user document.
func (h *PaymentHandler) CreateCustomer(c *fiber.Ctx) error {
	callerID, err := middleware.CallerID(c)
	if err != nil {
		return unauthorized(c)
	}

	customer, err := h.gateway.CreateCustomer(c.Context(), middleware.CallerEmail(c))
	if err != nil {
		return gatewayError(c, err)
	}

	if err := h.users.SetStripeCustomer(c.Context(), callerID, customer.ID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to store customer id",
		})
	}
	return c.JSON(dto.CreateCustomerResponse{CustomerID: customer.ID})
}

func (h *PaymentHandler) SetDefaultCard(c *fiber.Ctx) error {
	var req dto.SetDefaultCardRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	customer, err := h.gateway.SetDefaultCard(c.Context(), req.CustomerID, req.PaymentMethod)
	if err != nil {
		return gatewayError(c, err)
	}
	return c.JSON(customer)
}

func (h *PaymentHandler) ListPaymentMethods(c *fiber.Ctx) error {
	customerID := c.Query("customerId")
	if customerID == "" {
		return badRequest(c, "customerId is required")
	}

	methods, err := h.gateway.ListPaymentMethods(c.Context(), customerID)
	if err != nil {
		return gatewayError(c, err)
	}
	customer, err := h.gateway.RetrieveCustomer(c.Context(), customerID)
	if err != nil {
		return gatewayError(c, err)
	}
	return c.JSON(fiber.Map{"paymentMethods": methods, "customer": customer})
}

func (h *PaymentHandler) DetachPaymentMethod(c *fiber.Ctx) error {
	paymentMethod := c.Params("id")
	pm, err := h.gateway.DetachPaymentMethod(c.Context(), paymentMethod)
	if err != nil {
		return gatewayError(c, err)
	}
	return c.JSON(fiber.Map{"paymentMethod": pm})
}

func (h *PaymentHandler) CreateSubscription(c *fiber.Ctx) error {
	var req dto.CreateSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	sub, err := h.gateway.CreateSubscription(c.Context(), req.StripeID, req.PriceID, req.CouponID, req.Quantity)
	if err != nil {
		return gatewayError(c, err)
	}

	resp := dto.CreateSubscriptionResponse{SubscriptionID: sub.ID}
	if sub.LatestInvoice != nil && sub.LatestInvoice.PaymentIntent != nil {
		resp.ClientSecret = sub.LatestInvoice.PaymentIntent.ClientSecret
	}
	return c.JSON(resp)
}

func (h *PaymentHandler) CancelSubscription(c *fiber.Ctx) error {
	sub, err := h.gateway.CancelSubscription(c.Context(), c.Params("id"))
	if err != nil {
		return gatewayError(c, err)
	}
	return c.JSON(fiber.Map{"subscription": sub})
}

func (h *PaymentHandler) PauseSubscription(c *fiber.Ctx) error {
	sub, err := h.gateway.PauseSubscription(c.Context(), c.Params("id"))
	if err != nil {
		return gatewayError(c, err)
	}
	return c.JSON(fiber.Map{"subscription": sub})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: msg})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Unauthorized"})
}

func gatewayError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: true, Message: err.Error()})
}
