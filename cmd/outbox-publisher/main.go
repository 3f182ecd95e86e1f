// Command outbox-publisher relays committed outbox rows to Pub/Sub.
package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tripcreators/creator-wallet/internal/app"
	"github.com/tripcreators/creator-wallet/pkg/metrics"
	"github.com/tripcreators/creator-wallet/pkg/outbox"
	"github.com/tripcreators/creator-wallet/pkg/outbox/registry"
	"github.com/tripcreators/creator-wallet/pkg/pubsub"
)

func main() {
	app.Main("outbox-publisher", run)
}

func run(ctx context.Context, rt *app.Runtime) error {
	routes, err := registry.NewEventRegistry(rt.Config.PubSub)
	if err != nil {
		return fmt.Errorf("event registry: %w", err)
	}
	var topics []pubsub.Resource
	for _, topic := range routes.Topics() {
		topics = append(topics, pubsub.Topic(topic))
	}
	pubsubClient, err := rt.PubSub(ctx, topics...)
	if err != nil {
		return err
	}

	conn := rt.DB.DB()
	relay, err := NewRelay(RelayDeps{
		Outbox:   rt.Config.Outbox,
		Logger:   rt.Logger,
		DB:       rt.DB,
		PubSub:   pubsubClient,
		Events:   outbox.NewRepository(conn),
		DLQ:      outbox.NewDLQRepository(conn),
		Registry: routes,
		Metrics:  metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return fmt.Errorf("outbox relay: %w", err)
	}

	rt.ServeMetrics(ctx)
	rt.Logger.Info(rt.Logger.WithField(ctx, "topics", routes.Topics()), "starting outbox publisher")
	return relay.Run(ctx)
}
