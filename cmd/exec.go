package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"

	"festival-pass/config"
	"festival-pass/handlers"
	"festival-pass/internal/checkout"
	"festival-pass/internal/store"
	"festival-pass/monitoring"
	"festival-pass/services"
	"festival-pass/utils"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL)
	defer redisClient.Close()

	// Initialize PubNub
	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	pn := pubnub.NewPubNub(pnConfig)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Record store and checkout provider clients
	storeClient := store.New(&store.Config{
		BaseURL: cfg.StoreURL,
		APIKey:  cfg.StoreAPIKey,
		Timeout: cfg.StoreTimeout,
	})

	loader := checkout.NewLoader(&checkout.Config{
		KeyID:              cfg.CheckoutKeyID,
		KeySecret:          cfg.CheckoutKeySecret,
		BaseURL:            cfg.CheckoutBaseURL,
		ScriptURL:          cfg.CheckoutScriptURL,
		DisplayName:        cfg.DisplayName,
		DisplayDescription: cfg.DisplayDescription,
		ThemeColor:         cfg.ThemeColor,
		Currency:           cfg.CheckoutCurrency,
	})

	// Warm the shared checkout handle; purchase actions retry on their own.
	go func() {
		if _, err := loader.Load(ctx); err != nil {
			slog.Warn("checkout: preload", "error", err)
		}
	}()

	// Initialize services
	publisher := services.NewPubNubPublisher(pn)
	ticketService := services.NewTicketService(
		services.NewStoreRepository(storeClient),
		loader,
		redisClient,
		publisher,
		cfg,
	)

	go ticketService.SubscribeToPaymentNotifications(ctx, pn)

	// Initialize handlers
	ticketHandler := handlers.NewTicketHandler(app, ticketService, publisher, cfg.PostPurchasePath, cfg.OpsTokenHash)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	if cfg.EnableMetrics {
		monitoring.NewMonitor(redisClient)
	}

	// Setup graceful shutdown
	go handleShutdown(cancel)

	// Register routes
	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		eventHandler := handlers.NewEventHandler(services.NewEventService(app.DB()))

		// Ticket endpoints
		e.Router.GET("/api/v1/ticket", ticketHandler.GetTicket)
		e.Router.POST("/api/v1/ticket/checkout", ticketHandler.BeginCheckout)
		e.Router.POST("/api/v1/ticket/confirm", ticketHandler.ConfirmPayment)
		e.Router.POST("/api/v1/ticket/checkout/cancel", ticketHandler.CancelCheckout)

		// Events page
		e.Router.GET("/api/v1/events/categories", eventHandler.GetCategories)

		// Test endpoint for payment simulation
		if cfg.Environment == "development" {
			e.Router.POST("/api/v1/test/simulate-payment", ticketHandler.SimulatePayment)
		}

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		if cfg.EnableMetrics {
			e.Router.GET("/metrics", func(e *core.RequestEvent) error {
				promhttp.Handler().ServeHTTP(e.Response, e.Request)
				return nil
			})
		}

		log.Println("Server routes registered")

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		return err
	}
	return nil
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
