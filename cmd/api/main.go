package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/storefront-pricing/internal/config"
	"github.com/fairyhunter13/storefront-pricing/internal/handler"
	"github.com/fairyhunter13/storefront-pricing/internal/repository"
	"github.com/fairyhunter13/storefront-pricing/internal/service"
	"github.com/fairyhunter13/storefront-pricing/internal/validator"
	"github.com/fairyhunter13/storefront-pricing/pkg/database"
	"github.com/fairyhunter13/storefront-pricing/pkg/kvstore"
)

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	initLogger(cfg)

	ctx := context.Background()

	// Discount catalog and redemption ledger
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), cfg.DB.MaxRetries)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to prepare database schema")
	}

	// Durable storage for applied discounts
	storage, err := kvstore.New(ctx, kvstore.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
		TTL:      cfg.Redis.KeyTTL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	app := fiber.New(fiber.Config{
		AppName:      "Storefront Pricing",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024, // 1MB covers a 500-line cart
	})

	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())

	validate := validator.New()

	discountRepo := repository.NewDiscountRepository(pool)
	redemptionRepo := repository.NewRedemptionRepository(pool)

	sessions := service.NewSessionRegistry(discountRepo, storage,
		service.SessionLimits{IdleTTL: cfg.Discount.SessionIdleTTL, MaxSessions: cfg.Discount.MaxSessions},
		service.WithBannerDismissDelay(cfg.Discount.BannerDismissDelay),
		service.WithFetchTimeout(cfg.Discount.FetchTimeout),
	)
	discountService := service.NewDiscountService(discountRepo, redemptionRepo)
	checkoutService := service.NewCheckoutService(pool, discountRepo, redemptionRepo, sessions, cfg.Checkout.Currency)

	healthHandler := handler.NewHealthHandler(pool, storage)
	sessionHandler := handler.NewSessionHandler(sessions, validate)
	discountHandler := handler.NewDiscountHandler(discountService, validate)
	checkoutHandler := handler.NewCheckoutHandler(checkoutService, validate)

	app.Get("/health", healthHandler.Check)

	// Shopper routes
	app.Post("/api/sessions", sessionHandler.CreateSession)
	app.Get("/api/sessions/:session/discount", sessionHandler.GetDiscount)
	app.Post("/api/sessions/:session/discount", sessionHandler.ApplyDiscount)
	app.Delete("/api/sessions/:session/discount", sessionHandler.RemoveDiscount)
	app.Get("/api/sessions/:session/price", sessionHandler.Price)
	app.Post("/api/sessions/:session/quote", sessionHandler.Quote)
	app.Post("/api/sessions/:session/checkout", checkoutHandler.Checkout)

	// Catalog routes
	app.Post("/api/discounts", discountHandler.CreateDiscount)
	app.Get("/api/discounts", discountHandler.ListDiscounts)
	app.Get("/api/discounts/:code", discountHandler.GetDiscount)

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Shutdown server (waits for in-flight requests)
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Close backends AFTER server shutdown (even if shutdown timed out)
	if err := storage.Close(); err != nil {
		log.Error().Err(err).Msg("error closing redis")
	}
	pool.Close()
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
