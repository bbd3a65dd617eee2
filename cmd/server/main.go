package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v83"

	"storefront_back_end/internal/auth"
	"storefront_back_end/internal/cart"
	"storefront_back_end/internal/catalog"
	"storefront_back_end/internal/checkout"
	"storefront_back_end/internal/config"
	"storefront_back_end/internal/database"
	"storefront_back_end/internal/events"
	"storefront_back_end/internal/handlers"
	"storefront_back_end/internal/middleware"
	"storefront_back_end/internal/notify"
	"storefront_back_end/internal/orders"
	"storefront_back_end/internal/payment"
	"storefront_back_end/internal/routes"
	"storefront_back_end/internal/services"
	"storefront_back_end/internal/stock"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	stripe.Key = cfg.StripeSecretKey
	log.Println("✅ Stripe initialised")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conns, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Backing services unavailable: %v", err)
	}
	defer conns.Close()

	productsSession, err := conns.Scylla.ProductsSession()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	ordersSession, err := conns.Scylla.OrdersSession()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	identities := auth.NewVerifier(cfg.JWTSecret)
	products := catalog.NewCached(catalog.NewScyllaCatalog(productsSession), conns.Redis)
	orderStore := orders.NewScyllaStore(ordersSession)
	ledger := stock.NewRedisLedger(conns.Redis)
	carts := cart.NewRedisStore(conns.Redis)

	breakerCfg := payment.DefaultBreakerConfig()
	breakerCfg.CallTimeout = cfg.ProcessorTimeout
	processor := payment.NewBreaker(payment.NewStripeProcessor(), breakerCfg)

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		defer kp.Close()
		publisher = kp
		log.Printf("✅ Order events published to %s", cfg.KafkaTopic)
	}

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.MailEnabled() {
		notifier = notify.NewEmailNotifier(notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}), cfg.OpsEmail)
		log.Println("✅ Confirmation e-mails enabled")
	}

	svc := checkout.NewService(checkout.Deps{
		Identities: identities,
		Catalog:    products,
		Orders:     orderStore,
		Ledger:     ledger,
		Processor:  processor,
		Carts:      carts,
		Images:     services.NewImageResolver(conns.MinIO, cfg.MinIOBucket, cfg.ImageURLTTL),
		Events:     publisher,
		Notifier:   notifier,
	}, checkout.Config{
		SiteURL:       cfg.SiteURL,
		Currency:      cfg.Currency,
		VerifyTimeout: cfg.VerifyTimeout,
	})

	r := gin.Default()
	routes.RegisterRoutes(r, routes.Handlers{
		Auth:     identities,
		Checkout: handlers.NewCheckoutHandler(svc),
		Webhook:  handlers.NewWebhookHandler(svc.Finalizer, cfg.StripeWebhookSecret),
		Cart:     handlers.NewCartHandler(carts, products),
		Orders:   handlers.NewOrdersHandler(orderStore),
		Stock:    handlers.NewStockHandler(ledger),
		Health: handlers.Health(map[string]handlers.Pinger{
			"redis":  func(ctx context.Context) error { return conns.Redis.Ping(ctx).Err() },
			"scylla": conns.Scylla.Ping,
		}),
		CheckoutLimit: middleware.NewRateLimit(conns.Redis, identities, "ratelimit:checkout",
			cfg.CheckoutRateLimit, cfg.RateLimitWindow).Handler(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Println("🚀 Storefront back end listening on port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Forced shutdown: %v", err)
	}
	// E-mails and events still in flight.
	svc.Wait()
}
