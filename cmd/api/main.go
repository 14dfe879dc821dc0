package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lucasberthier/prepalettres-backend/api/controllers"
	"github.com/lucasberthier/prepalettres-backend/api/routes"
	"github.com/lucasberthier/prepalettres-backend/internal/ai"
	"github.com/lucasberthier/prepalettres-backend/internal/billing"
	"github.com/lucasberthier/prepalettres-backend/internal/exercises"
	"github.com/lucasberthier/prepalettres-backend/internal/plans"
	"github.com/lucasberthier/prepalettres-backend/internal/ratelimit"
	"github.com/lucasberthier/prepalettres-backend/internal/subscriptions"
	stripewebhook "github.com/lucasberthier/prepalettres-backend/internal/webhooks/stripe"
	"github.com/lucasberthier/prepalettres-backend/internal/works"
	"github.com/lucasberthier/prepalettres-backend/pkg/config"
	"github.com/lucasberthier/prepalettres-backend/pkg/db"
	"github.com/lucasberthier/prepalettres-backend/pkg/logger"
	"github.com/lucasberthier/prepalettres-backend/pkg/metrics"
	"github.com/lucasberthier/prepalettres-backend/pkg/migrate"
	pkgredis "github.com/lucasberthier/prepalettres-backend/pkg/redis"
	pkgstripe "github.com/lucasberthier/prepalettres-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	pingers := map[string]controllers.Pinger{
		"postgres": dbClient,
	}

	// Redis is optional. Without it rate limiting and webhook replay
	// protection fall back to in-process stores, which only cover a
	// single instance.
	var rateLimitStore ratelimit.CounterStore
	var idempotencyStore pkgredis.IdempotencyStore
	if cfg.Redis.Enabled() {
		redisClient, err := pkgredis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		pingers["redis"] = redisClient
		rateLimitStore = redisClient
		idempotencyStore = redisClient
	} else {
		logg.Warn(context.Background(), "redis not configured, using in-process rate limit and idempotency stores")
		rateLimitStore = ratelimit.NewMemoryStore()
		idempotencyStore = stripewebhook.NewMemoryIdempotencyStore()
	}

	registry := prometheus.NewRegistry()
	apiMetrics := metrics.NewAPIMetrics(registry)

	catalog := plans.NewCatalog(cfg.Stripe)
	subscriptionRepo := subscriptions.NewRepository(dbClient.DB())

	resolver, err := subscriptions.NewResolver(subscriptions.ResolverParams{
		Repo:    subscriptionRepo,
		Catalog: catalog,
		Policy:  cfg.Entitlements,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription resolver", err)
		os.Exit(1)
	}

	generator := ai.NewGenerator(cfg.AI, cfg.App, logg)

	analysisService, err := ai.NewAnalysisService(ai.AnalysisServiceParams{
		Generator: generator,
		Store:     works.NewAnalysisRepository(dbClient.DB()),
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create analysis service", err)
		os.Exit(1)
	}

	exerciseService, err := exercises.NewService(exercises.ServiceParams{
		Repo:             exercises.NewRepository(dbClient.DB()),
		SubscriptionRepo: subscriptionRepo,
		Generator:        generator,
		Logger:           logg,
		Metrics:          apiMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create exercise service", err)
		os.Exit(1)
	}

	// Stripe is optional in development. Checkout, portal and webhook
	// routes answer with a typed error until it is configured.
	var stripeClient *pkgstripe.Client
	var billingService billing.Service
	var webhookService *stripewebhook.Service
	var webhookGuard *stripewebhook.IdempotencyGuard
	if cfg.Stripe.APIKey != "" {
		stripeClient, err = pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap stripe", err)
			os.Exit(1)
		}

		billingService, err = billing.NewService(billing.ServiceParams{
			Repo:    subscriptionRepo,
			Catalog: catalog,
			Stripe:  billing.NewStripeClient(stripeClient),
			Logger:  logg,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create billing service", err)
			os.Exit(1)
		}

		webhookService, err = stripewebhook.NewService(stripewebhook.ServiceParams{
			Repo:    subscriptionRepo,
			Catalog: catalog,
			Logger:  logg,
			Metrics: apiMetrics,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create webhook service", err)
			os.Exit(1)
		}

		webhookGuard, err = stripewebhook.NewIdempotencyGuard(idempotencyStore, cfg.Entitlements.WebhookIdempotencyTTL, "stripe")
		if err != nil {
			logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "stripe not configured, billing routes disabled")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:           cfg,
			Logger:           logg,
			Registry:         registry,
			Metrics:          apiMetrics,
			Pingers:          pingers,
			PlanCatalog:      catalog,
			Resolver:         resolver,
			SubscriptionRepo: subscriptionRepo,
			BillingService:   billingService,
			Generator:        generator,
			Analysis:         analysisService,
			Exercises:        exerciseService,
			RateLimitStore:   rateLimitStore,
			StripeClient:     stripeClient,
			WebhookSvc:       webhookService,
			WebhookGuard:     webhookGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
