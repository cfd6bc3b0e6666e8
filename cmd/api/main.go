package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-api/internal/auth"
	"storefront-api/internal/client"
	"storefront-api/internal/config"
	"storefront-api/internal/events"
	"storefront-api/internal/logger"
	"storefront-api/internal/notifier"
	"storefront-api/internal/repository"
	"storefront-api/internal/server"
	"storefront-api/internal/service"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Printf("Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	db, err := client.InitDBClient(cfg.Database)
	if err != nil {
		return err
	}

	productCache := repository.NewNopProductCache()
	if cfg.Redis.Addr != "" {
		rdb, err := client.InitRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		productCache = repository.NewRedisProductCache(rdb, cfg.Redis.ProductTTL)
		log.Info("product cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	publisher := events.NewNopPublisher()
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka, log)
		log.Info("order events enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	defer publisher.Close()

	orderNotifier := notifier.NewNopNotifier()
	if cfg.SES.Sender != "" {
		orderNotifier, err = notifier.NewSESNotifier(ctx, cfg.SES)
		if err != nil {
			return err
		}
		log.Info("order emails enabled", zap.String("sender", cfg.SES.Sender))
	}

	if cfg.Stripe.SecretKey == "" {
		log.Warn("STRIPE_SECRET_KEY is not set; checkout sessions will fail")
	}
	if cfg.Stripe.WebhookSecret == "" {
		log.Warn("STRIPE_WEBHOOK_SECRET is not set; every webhook will be rejected")
	}
	paymentClient := client.NewStripeClient(&cfg.Stripe)

	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	authService := service.NewAuthService(userRepo, auth.NewTokenMaker(cfg.Auth), cfg.BcryptCost, log)
	catalogService := service.NewCatalogService(productRepo, categoryRepo, reviewRepo, productCache, log)
	orderService := service.NewOrderService(db, productRepo, orderRepo, productCache, publisher, log)
	paymentService := service.NewPaymentService(
		db,
		paymentClient,
		cfg.FrontendURL,
		cfg.Stripe.Currency,
		orderService,
		orderRepo,
		webhookEventRepo,
		publisher,
		orderNotifier,
		log,
	)

	if err := authService.SeedAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	srv := server.NewServer(cfg, server.Services{
		Auth:    authService,
		Catalog: catalogService,
		Order:   orderService,
		Payment: paymentService,
	}, log)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	errCh := make(chan error, 1)
	log.Info("starting HTTP server", zap.String("addr", serverAddr), zap.String("environment", cfg.Environment.Name))
	go func() {
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-sigChan:
	}
	log.Info("signal received, starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
