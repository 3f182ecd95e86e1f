// Command settlement-worker consumes payout_approved events and drives each
// payout through the provider transfer.
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tripcreators/creator-wallet/internal/app"
	"github.com/tripcreators/creator-wallet/internal/settlement"
	"github.com/tripcreators/creator-wallet/pkg/metrics"
	"github.com/tripcreators/creator-wallet/pkg/outbox/idempotency"
	"github.com/tripcreators/creator-wallet/pkg/pubsub"
	pkgstripe "github.com/tripcreators/creator-wallet/pkg/stripe"
)

func main() {
	app.Main("settlement-worker", run)
}

func run(ctx context.Context, rt *app.Runtime) error {
	cfg := rt.Config
	redisClient, err := rt.Redis(ctx)
	if err != nil {
		return err
	}
	pubsubClient, err := rt.PubSub(ctx, pubsub.Subscription(cfg.PubSub.PayoutsSubscription))
	if err != nil {
		return err
	}
	subscription := pubsubClient.PayoutsSubscription()
	if subscription == nil {
		return errors.New("payouts subscription not configured")
	}
	stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, rt.Logger)
	if err != nil {
		return fmt.Errorf("stripe: %w", err)
	}

	opts, err := app.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	services, err := app.NewServices(rt.DB, opts, rt.Logger)
	if err != nil {
		return err
	}

	settler, err := settlement.NewSettler(
		services.Payouts,
		services.AccountsRepo,
		stripeClient,
		metrics.NewSettlementMetrics(prometheus.DefaultRegisterer),
		rt.Logger,
	)
	if err != nil {
		return fmt.Errorf("settler: %w", err)
	}
	claims, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return fmt.Errorf("idempotency manager: %w", err)
	}
	consumer, err := settlement.NewConsumer(subscription, settler, claims, rt.Logger)
	if err != nil {
		return fmt.Errorf("settlement consumer: %w", err)
	}

	rt.ServeMetrics(ctx)
	rt.Logger.Info(rt.Logger.WithField(ctx, "stripeEnv", stripeClient.Environment()), "settlement worker ready")
	return consumer.Run(ctx)
}
