// Command cron-worker runs the periodic wallet jobs under a Redis lease.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tripcreators/creator-wallet/internal/app"
	"github.com/tripcreators/creator-wallet/internal/cron"
	"github.com/tripcreators/creator-wallet/pkg/bigquery"
	"github.com/tripcreators/creator-wallet/pkg/metrics"
	"github.com/tripcreators/creator-wallet/pkg/outbox"
)

var (
	once    = flag.Bool("once", false, "run every job a single time and exit")
	onlyJob = flag.String("job", "", "run only the named job once and exit")
)

func main() {
	flag.Parse()
	app.Main("cron-worker", run)
}

func run(ctx context.Context, rt *app.Runtime) error {
	cfg := rt.Config
	redisClient, err := rt.Redis(ctx)
	if err != nil {
		return err
	}
	opts, err := app.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	services, err := app.NewServices(rt.DB, opts, rt.Logger)
	if err != nil {
		return err
	}

	registry, err := buildRegistry(ctx, rt, services)
	if err != nil {
		return fmt.Errorf("cron jobs: %w", err)
	}
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		return err
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   rt.Logger,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}

	ctx = rt.Logger.WithField(ctx, "jobs", len(registry.Jobs()))
	switch {
	case *onlyJob != "":
		return service.RunJob(ctx, *onlyJob)
	case *once:
		return service.RunOnce(ctx)
	}
	rt.ServeMetrics(ctx)
	rt.Logger.Info(ctx, "starting cron worker")
	return service.Run(ctx)
}

func buildRegistry(ctx context.Context, rt *app.Runtime, services *app.Services) (*cron.Registry, error) {
	cfg, logg, conn := rt.Config, rt.Logger, rt.DB.DB()
	ledgerMetrics := metrics.NewLedgerMetrics(prometheus.DefaultRegisterer)
	registry := cron.NewRegistry()

	var (
		jobs []cron.Job
		errs []error
	)
	collect := func(job cron.Job, err error) {
		if err != nil {
			errs = append(errs, err)
			return
		}
		jobs = append(jobs, job)
	}

	collect(cron.NewLedgerReconcileJob(cron.LedgerReconcileJobParams{
		Logger:   logg,
		Wallets:  services.LedgerRepo,
		Balances: services.Wallets,
		Metrics:  ledgerMetrics,
	}))
	collect(cron.NewStuckPayoutsJob(cron.StuckPayoutsJobParams{
		Logger:     logg,
		Payouts:    services.Payouts,
		Metrics:    ledgerMetrics,
		StuckAfter: cfg.Payouts.StuckAfter,
	}))
	collect(cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:       logg,
		DB:           rt.DB,
		Repository:   outbox.NewRepository(conn),
		DLQ:          outbox.NewDLQRepository(conn),
		Retention:    cfg.Cron.OutboxRetention,
		DLQRetention: cfg.Cron.DLQRetention,
	}))

	if cfg.BigQuery.ExportEnabled {
		warehouse, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
		if err != nil {
			return nil, fmt.Errorf("bigquery client: %w", err)
		}
		rt.Defer("bigquery", warehouse.Close)
		collect(cron.NewLedgerExportJob(cron.LedgerExportJobParams{
			Logger:    logg,
			Entries:   services.LedgerRepo,
			Warehouse: warehouse,
			Cursors:   cron.NewExportCursorRepository(conn),
			Metrics:   ledgerMetrics,
			BatchSize: cfg.BigQuery.ExportBatchLimit,
		}))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	for _, job := range jobs {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}
