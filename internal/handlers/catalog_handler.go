package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/storefront-labs/storefront-backend/internal/dto"
	"github.com/storefront-labs/storefront-backend/internal/middleware"
	"github.com/storefront-labs/storefront-backend/internal/models"
	"github.com/storefront-labs/storefront-backend/internal/store"
)

// CatalogHandler is the admin/storefront write surface. These writes feed
// the change stream; everything downstream (counters, search, gateways)
// happens in the reactors.
type CatalogHandler struct {
	products *store.Products
	orders   *store.Orders
	users    *store.Users
}

func NewCatalogHandler(products *store.Products, orders *store.Orders, users *store.Users) *CatalogHandler {
	return &CatalogHandler{products: products, orders: orders, users: users}
}

func (h *CatalogHandler) CreateProduct(c *fiber.Ctx) error {
	var req dto.ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if !models.ValidCategory(req.Category) {
		return badRequest(c, "Unknown category")
	}

	product := models.Product{
		ID:            uuid.New(),
		Title:         req.Title,
		Description:   req.Description,
		ImageURL:      req.ImageURL,
		ImageRef:      req.ImageRef,
		ImageFileName: req.ImageFileName,
		Price:         req.Price,
		Category:      req.Category,
		Inventory:     req.Inventory,
		Creator:       middleware.CallerEmail(c),
	}
	if err := h.products.Create(c.Context(), &product); err != nil {
		return internalError(c)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

func (h *CatalogHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid product id")
	}

	var req dto.ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if !models.ValidCategory(req.Category) {
		return badRequest(c, "Unknown category")
	}

	product := models.Product{
		ID:            id,
		Title:         req.Title,
		Description:   req.Description,
		ImageURL:      req.ImageURL,
		ImageRef:      req.ImageRef,
		ImageFileName: req.ImageFileName,
		Price:         req.Price,
		Category:      req.Category,
	}
	if err := h.products.Update(c.Context(), &product); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c)
		}
		return internalError(c)
	}
	return c.JSON(fiber.Map{"message": "Product updated"})
}

func (h *CatalogHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid product id")
	}
	if err := h.products.Delete(c.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c)
		}
		return internalError(c)
	}
	return c.JSON(fiber.Map{"message": "Product deleted"})
}

// Checkout writes the order document; the order reactor picks it up from
// the change stream.
func (h *CatalogHandler) Checkout(c *fiber.Ctx) error {
	callerID, err := middleware.CallerID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if len(req.Items) == 0 {
		return badRequest(c, "Order has no items")
	}

	user, err := h.users.Get(c.Context(), callerID)
	if err != nil {
		return unauthorized(c)
	}

	paymentStatus := req.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = models.PaymentProcessing
	}

	order := models.Order{
		ID:              uuid.New(),
		Items:           req.Items,
		Amount:          req.Amount,
		TotalQuantity:   req.TotalQuantity,
		ShippingAddress: req.ShippingAddress,
		Customer: models.Customer{
			ID:    user.ID.String(),
			Name:  user.Username,
			Email: user.Email,
		},
		PaymentStatus:  paymentStatus,
		PaymentType:    req.PaymentType,
		SubscriptionID: req.SubscriptionID,
		ShipmentStatus: models.ShipmentNew,
	}
	if err := h.orders.Create(c.Context(), &order); err != nil {
		return internalError(c)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

func (h *CatalogHandler) DeleteOrder(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid order id")
	}
	if err := h.orders.Delete(c.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c)
		}
		return internalError(c)
	}
	return c.JSON(fiber.Map{"message": "Order deleted"})
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: true, Message: "Not found"})
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: true, Message: "Internal server error"})
}
