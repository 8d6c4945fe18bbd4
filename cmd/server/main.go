package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/robfig/cron"

	"github.com/storefront-labs/storefront-backend/internal/config"
	"github.com/storefront-labs/storefront-backend/internal/counters"
	"github.com/storefront-labs/storefront-backend/internal/database"
	"github.com/storefront-labs/storefront-backend/internal/handlers"
	"github.com/storefront-labs/storefront-backend/internal/logging"
	"github.com/storefront-labs/storefront-backend/internal/middleware"
	"github.com/storefront-labs/storefront-backend/internal/models"
	"github.com/storefront-labs/storefront-backend/internal/outbox"
	"github.com/storefront-labs/storefront-backend/internal/payments"
	"github.com/storefront-labs/storefront-backend/internal/reactors"
	"github.com/storefront-labs/storefront-backend/internal/routes"
	"github.com/storefront-labs/storefront-backend/internal/search"
	"github.com/storefront-labs/storefront-backend/internal/services"
	"github.com/storefront-labs/storefront-backend/internal/shipping"
	"github.com/storefront-labs/storefront-backend/internal/store"
	"github.com/storefront-labs/storefront-backend/internal/stream"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// Redis (change feed + dedup keys)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		slog.Error("redis connection failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		pgLogHandler,
	)))

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Store + change feed
	publisher := stream.NewRedisPublisher(rdb)
	users := store.NewUsers(database.DB, publisher)
	products := store.NewProducts(database.DB, publisher)
	orders := store.NewOrders(database.DB, publisher)
	countsStore := store.NewCounts(database.DB)

	// External gateways
	gateway := payments.New(cfg)
	searchClient := search.New(cfg)
	shippingClient := shipping.New(cfg)

	// Engine, outbox, reactors
	engine := counters.NewEngine(countsStore)
	queue := outbox.NewQueue(database.DB)
	dedup := reactors.NewRedisDeduper(rdb)

	userReactor := reactors.NewUserReactor(engine, queue)
	productReactor := reactors.NewProductReactor(engine, queue, products, gateway)
	orderReactor := reactors.NewOrderReactor(engine, queue, products, dedup)
	renewalReactor := reactors.NewRenewalReactor(gateway, orders)
	shipmentReactor := reactors.NewShipmentReactor(shippingClient, orders)

	hostname, _ := os.Hostname()
	consumer := stream.NewConsumer(rdb, hostname)
	consumer.Bind(models.CollectionUsers, userReactor.Handle)
	consumer.Bind(models.CollectionProducts, productReactor.Handle)
	consumer.Bind(models.CollectionOrders, orderReactor.Handle)

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	go func() {
		if err := consumer.Run(consumerCtx); err != nil && consumerCtx.Err() == nil {
			slog.Error("change stream consumer stopped", "error", err)
		}
	}()

	// Background schedules
	worker := outbox.NewWorker(database.DB, searchClient, shippingClient)
	reconciler := reactors.NewProvisioningReconciler(products, productReactor)

	scheduler := cron.New()
	scheduler.AddFunc("@every 5s", func() { worker.Sweep(context.Background()) })
	scheduler.AddFunc("@every 1m", func() { reconciler.Run(context.Background()) })
	scheduler.AddFunc("@daily", func() { logging.Cleanup(database.DB) })
	scheduler.Start()

	// Services + handlers
	accounts := services.NewAccountService(users, cfg)

	authHandler := handlers.NewAuthHandler(accounts)
	catalogHandler := handlers.NewCatalogHandler(products, orders, users)
	paymentHandler := handlers.NewPaymentHandler(gateway, users)
	webhookHandler := handlers.NewWebhookHandler(cfg, renewalReactor, shipmentReactor)
	healthHandler := handlers.NewHealthHandler(rdb)

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		return c.Next()
	})

	routes.Setup(app, cfg, authHandler, catalogHandler, paymentHandler, webhookHandler, healthHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	scheduler.Stop()
	stopConsumer()
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if err := rdb.Close(); err != nil {
		slog.Error("redis close error", "error", err)
	}
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
