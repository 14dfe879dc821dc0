package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lucasberthier/prepalettres-backend/api/controllers"
	webhookcontrollers "github.com/lucasberthier/prepalettres-backend/api/controllers/webhooks"
	"github.com/lucasberthier/prepalettres-backend/api/middleware"
	"github.com/lucasberthier/prepalettres-backend/internal/ai"
	"github.com/lucasberthier/prepalettres-backend/internal/billing"
	"github.com/lucasberthier/prepalettres-backend/internal/exercises"
	"github.com/lucasberthier/prepalettres-backend/internal/plans"
	"github.com/lucasberthier/prepalettres-backend/internal/ratelimit"
	"github.com/lucasberthier/prepalettres-backend/internal/subscriptions"
	stripewebhook "github.com/lucasberthier/prepalettres-backend/internal/webhooks/stripe"
	"github.com/lucasberthier/prepalettres-backend/pkg/config"
	"github.com/lucasberthier/prepalettres-backend/pkg/logger"
	"github.com/lucasberthier/prepalettres-backend/pkg/metrics"
	"github.com/lucasberthier/prepalettres-backend/pkg/stripe"
)

// RouterParams carries everything the HTTP surface depends on. Optional
// dependencies (Stripe, Redis-backed pingers) may be nil; the affected routes
// then answer with a typed error instead of panicking.
type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.APIMetrics

	Pingers map[string]controllers.Pinger

	PlanCatalog      *plans.Catalog
	Resolver         subscriptions.Resolver
	SubscriptionRepo subscriptions.Repository
	BillingService   billing.Service
	Generator        ai.Generator
	Analysis         *ai.AnalysisService
	Exercises        exercises.Service
	RateLimitStore   ratelimit.CounterStore

	StripeClient *stripe.Client
	WebhookSvc   *stripewebhook.Service
	WebhookGuard *stripewebhook.IdempotencyGuard
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Pingers))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/plans", controllers.PlansList(p.PlanCatalog))
		r.Get("/works", controllers.WorksList(logg))

		r.Post("/webhooks/stripe", webhookcontrollers.StripeWebhook(webhookService(p.WebhookSvc), stripeSigner(p.StripeClient), webhookGuard(p.WebhookGuard), logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.SubscriptionContext(p.Resolver, logg))

			r.Get("/subscriptions/me", controllers.SubscriptionMe(logg))
			r.Post("/billing/checkout", controllers.BillingCheckout(p.BillingService, logg))
			r.Post("/billing/portal", controllers.BillingPortal(p.BillingService, logg))
			r.Get("/exercises", controllers.ExerciseHistory(p.Exercises, logg))
			r.With(middleware.RequireTutoring(logg)).Get("/tutoring/balance", controllers.TutoringBalance(logg))
			r.With(middleware.RequireTutoring(logg)).Post("/tutoring/consume", controllers.TutoringConsume(p.SubscriptionRepo, logg))

			r.Route("/ai", func(r chi.Router) {
				r.Use(middleware.RateLimit("ai", cfg.RateLimit, p.RateLimitStore, p.Metrics, logg))

				r.With(middleware.RequireAI(logg)).Post("/generate-subject", controllers.AIGenerateSubject(p.Generator, p.Metrics, logg))
				r.With(middleware.RequireAI(logg)).Post("/generate-subject-list", controllers.AIGenerateSubjectList(p.Generator, p.Metrics, logg))
				r.With(middleware.RequireAI(logg)).Post("/work-analysis", controllers.AIWorkAnalysis(p.Analysis, p.Metrics, logg))
				r.With(middleware.CheckExerciseLimit(logg)).Post("/evaluate", controllers.AIEvaluate(p.Exercises, p.Metrics, logg))
			})
		})
	})

	return r
}

// The helpers below keep optional webhook dependencies nil when they are not
// configured, instead of handing the controller a typed nil.

func stripeSigner(client *stripe.Client) webhookcontrollers.StripeSigner {
	if client == nil {
		return nil
	}
	return client
}

func webhookService(svc *stripewebhook.Service) webhookcontrollers.StripeWebhookService {
	if svc == nil {
		return nil
	}
	return svc
}

func webhookGuard(guard *stripewebhook.IdempotencyGuard) webhookcontrollers.WebhookGuard {
	if guard == nil {
		return nil
	}
	return guard
}
