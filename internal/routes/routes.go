package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/storefront-labs/storefront-backend/internal/config"
	"github.com/storefront-labs/storefront-backend/internal/handlers"
	"github.com/storefront-labs/storefront-backend/internal/middleware"
	"github.com/storefront-labs/storefront-backend/internal/models"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	catalogHandler *handlers.CatalogHandler,
	paymentHandler *handlers.PaymentHandler,
	webhookHandler *handlers.WebhookHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Auth is public with a stricter rate limit
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	jwt := middleware.JWTProtected(cfg)

	// Role management; the service enforces SUPER_ADMIN
	api.Put("/users/:id/role", jwt, authHandler.UpdateRole)

	// Payment RPC surface
	pay := api.Group("/payments", jwt)
	pay.Post("/intents", paymentHandler.CreateIntent)
	pay.Post("/customers", paymentHandler.CreateCustomer)
	pay.Post("/methods/default", paymentHandler.SetDefaultCard)
	pay.Get("/methods", paymentHandler.ListPaymentMethods)
	pay.Delete("/methods/:id", paymentHandler.DetachPaymentMethod)

	subs := api.Group("/subscriptions", jwt)
	subs.Post("/", paymentHandler.CreateSubscription)
	subs.Delete("/:id", paymentHandler.CancelSubscription)
	subs.Post("/:id/pause", paymentHandler.PauseSubscription)

	// Admin catalog writes
	adminOnly := middleware.RoleRequired(models.RoleSuperAdmin, models.RoleAdmin)
	api.Post("/products", jwt, adminOnly, catalogHandler.CreateProduct)
	api.Put("/products/:id", jwt, adminOnly, catalogHandler.UpdateProduct)
	api.Delete("/products/:id", jwt, adminOnly, catalogHandler.DeleteProduct)
	api.Delete("/orders/:id", jwt, adminOnly, catalogHandler.DeleteOrder)

	// Checkout
	api.Post("/orders", jwt, catalogHandler.Checkout)

	// Webhooks carry no JWT; payments verifies its own signature, shipments is
	// unauthenticated by provider design
	webhooks := api.Group("/webhooks")
	webhooks.Post("/payments", webhookHandler.HandlePayments)
	webhooks.Post("/shipments", webhookHandler.HandleShipments)
}
