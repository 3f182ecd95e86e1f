package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tripcreators/creator-wallet/api/controllers"
	webhookcontrollers "github.com/tripcreators/creator-wallet/api/controllers/webhooks"
	"github.com/tripcreators/creator-wallet/api/middleware"
	"github.com/tripcreators/creator-wallet/internal/accounts"
	"github.com/tripcreators/creator-wallet/internal/commission"
	"github.com/tripcreators/creator-wallet/internal/payouts"
	"github.com/tripcreators/creator-wallet/internal/wallets"
	"github.com/tripcreators/creator-wallet/pkg/config"
	"github.com/tripcreators/creator-wallet/pkg/enums"
	"github.com/tripcreators/creator-wallet/pkg/logger"
)

// Dependencies carries everything the HTTP surface is wired to. Nil stores
// disable the middleware that needs them.
type Dependencies struct {
	DB    controllers.Pinger
	Redis controllers.Pinger

	IdempotencyStore middleware.IdempotencyStore
	RateLimitStore   middleware.RateLimiterStore
	Metrics          http.Handler

	Payouts    payouts.Service
	Wallets    wallets.Service
	Accounts   accounts.Service
	Commission commission.Service

	StripeWebhooks webhookcontrollers.StripeWebhookService
	StripeSigner   webhookcontrollers.StripeSigner
	StripeGuard    webhookcontrollers.StripeWebhookGuard
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		chimw.RealIP,
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	payoutRequestPolicy := middleware.NewRateLimitPolicy(
		"payout_request",
		cfg.RateLimit.PayoutRequestWindow,
		cfg.RateLimit.PayoutRequestLimit,
	)

	idempotent := func(ttl time.Duration) func(http.Handler) http.Handler {
		return middleware.Idempotent(deps.IdempotencyStore, ttl, logg)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"database": deps.DB,
			"redis":    deps.Redis,
		}, logg))
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhooks, deps.StripeSigner, deps.StripeGuard, logg))
	})

	r.Route("/api/v1/ingest", func(r chi.Router) {
		r.Use(middleware.IngestKey(cfg.Ingest.KeyHash, logg))
		r.Post("/sales", controllers.IngestSale(deps.Commission, logg))
	})

	r.Route("/api/v1/creator", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserRoleCreator, logg))

		r.Route("/payouts", func(r chi.Router) {
			r.With(
				middleware.RateLimit(payoutRequestPolicy, deps.RateLimitStore, logg),
				idempotent(middleware.MoneyIdempotencyTTL),
			).Post("/", controllers.CreatorRequestPayout(deps.Payouts, logg))
			r.Get("/", controllers.CreatorListPayouts(deps.Payouts, logg))
		})
		r.Route("/wallet", func(r chi.Router) {
			r.Get("/summary", controllers.CreatorWalletSummary(deps.Payouts, logg))
			r.Get("/transactions", controllers.CreatorWalletTransactions(deps.Wallets, logg))
		})
		r.With(idempotent(middleware.StandardIdempotencyTTL)).
			Post("/payout-account/onboarding", controllers.CreatorPayoutOnboarding(deps.Accounts, logg))
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))

		r.Route("/commission", func(r chi.Router) {
			r.Put("/global", controllers.AdminSetGlobalCommission(deps.Commission, logg))
			r.With(idempotent(middleware.StandardIdempotencyTTL)).
				Post("/overrides", controllers.AdminAddCommissionOverride(deps.Commission, logg))
			r.Put("/overrides/{creatorId}", controllers.AdminSetCommissionOverride(deps.Commission, logg))
		})
		r.With(idempotent(middleware.StandardIdempotencyTTL)).
			Post("/sales/{saleId}/commission", controllers.AdminCommissionSale(deps.Commission, logg))
		r.Route("/payouts/{payoutId}", func(r chi.Router) {
			r.Use(idempotent(middleware.MoneyIdempotencyTTL))
			r.Post("/approve", controllers.AdminApprovePayout(deps.Payouts, logg))
			r.Post("/reject", controllers.AdminRejectPayout(deps.Payouts, logg))
		})
		r.Put("/payout-threshold", controllers.AdminSetPayoutThreshold(deps.Payouts, logg))
	})

	return r
}
