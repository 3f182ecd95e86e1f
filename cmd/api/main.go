// Command api serves the creator, admin, ingest and webhook HTTP routes.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tripcreators/creator-wallet/api/routes"
	"github.com/tripcreators/creator-wallet/internal/app"
	stripewebhooks "github.com/tripcreators/creator-wallet/internal/webhooks/stripe"
	"github.com/tripcreators/creator-wallet/pkg/env"
	"github.com/tripcreators/creator-wallet/pkg/metrics"
	pkgstripe "github.com/tripcreators/creator-wallet/pkg/stripe"
)

const (
	webhookScope      = "stripe-webhook"
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

func main() {
	app.Main("api", run)
}

func run(ctx context.Context, rt *app.Runtime) error {
	cfg, logg := rt.Config, rt.Logger

	redisClient, err := rt.Redis(ctx)
	if err != nil {
		return err
	}
	stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return fmt.Errorf("stripe: %w", err)
	}

	opts, err := app.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	opts.Provider = stripeClient
	services, err := app.NewServices(rt.DB, opts, logg)
	if err != nil {
		return err
	}

	webhooks, err := stripewebhooks.NewService(stripewebhooks.ServiceParams{
		Payouts:  services.Payouts,
		Accounts: services.Accounts,
		Metrics:  metrics.NewWebhookMetrics(prometheus.DefaultRegisterer),
		Logger:   logg,
	})
	if err != nil {
		return fmt.Errorf("webhook service: %w", err)
	}
	guard, err := stripewebhooks.NewIdempotencyGuard(redisClient, cfg.Eventing.WebhookIdempotencyTTL, webhookScope)
	if err != nil {
		return fmt.Errorf("webhook guard: %w", err)
	}

	// PORT wins so the platform router can assign one
	addr := ":" + env.Get("PORT", cfg.App.Port)
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			DB:               rt.DB,
			Redis:            redisClient,
			IdempotencyStore: redisClient,
			RateLimitStore:   redisClient,
			Metrics:          promhttp.Handler(),
			Payouts:          services.Payouts,
			Wallets:          services.Wallets,
			Accounts:         services.Accounts,
			Commission:       services.Commission,
			StripeWebhooks:   webhooks,
			StripeSigner:     stripeClient,
			StripeGuard:      guard,
		}),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	served := make(chan error, 1)
	go func() { served <- server.ListenAndServe() }()
	logg.Info(logg.WithField(ctx, "addr", addr), "api server listening")

	select {
	case err := <-served:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-served; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
