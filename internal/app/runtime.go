package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tripcreators/creator-wallet/pkg/config"
	"github.com/tripcreators/creator-wallet/pkg/db"
	"github.com/tripcreators/creator-wallet/pkg/instance"
	"github.com/tripcreators/creator-wallet/pkg/logger"
	"github.com/tripcreators/creator-wallet/pkg/metrics"
	"github.com/tripcreators/creator-wallet/pkg/migrate"
	"github.com/tripcreators/creator-wallet/pkg/pubsub"
	"github.com/tripcreators/creator-wallet/pkg/redis"
)

// Runtime is the process plumbing shared by the long-running binaries:
// config, logger and database, plus whatever clients a binary opens through it.
// Everything opened is closed by Close in reverse order.
type Runtime struct {
	Service string
	Config  *config.Config
	Logger  *logger.Logger
	DB      *db.Client

	closers []closer
}

type closer struct {
	name string
	fn   func() error
}

// Boot loads .env and config, then opens the database and applies dev
// migrations when the feature flag asks for them.
func Boot(ctx context.Context, service string) (*Runtime, error) {
	bootLog := logger.New(logger.Options{ServiceName: service})
	if err := godotenv.Load(); err != nil {
		bootLog.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = service

	rt := &Runtime{
		Service: service,
		Config:  cfg,
		Logger: logger.New(logger.Options{
			ServiceName: service,
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			WarnStack:   cfg.App.LogWarnStack,
		}),
	}

	rt.DB, err = db.New(ctx, cfg.DB, rt.Logger)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	rt.Defer("database", rt.DB.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, rt.Logger, rt.DB); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("dev migrations: %w", err)
	}
	return rt, nil
}

// Defer registers fn to run on Close.
func (rt *Runtime) Defer(name string, fn func() error) {
	rt.closers = append(rt.closers, closer{name: name, fn: fn})
}

// Close releases everything registered with Defer, newest first, logging failures.
func (rt *Runtime) Close(ctx context.Context) {
	for _, c := range slices.Backward(rt.closers) {
		if err := c.fn(); err != nil {
			rt.Logger.Error(rt.Logger.WithField(ctx, "resource", c.name), "close failed", err)
		}
	}
	rt.closers = nil
}

// Redis connects to Redis and closes the client with the runtime.
func (rt *Runtime) Redis(ctx context.Context) (*redis.Client, error) {
	client, err := redis.New(ctx, rt.Config.Redis, rt.Logger)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	rt.Defer("redis", client.Close)
	return client, nil
}

// PubSub connects to Pub/Sub, failing when a required topic or subscription is missing.
func (rt *Runtime) PubSub(ctx context.Context, required ...pubsub.Resource) (*pubsub.Client, error) {
	client, err := pubsub.NewClient(ctx, rt.Config.GCP, rt.Config.PubSub, rt.Logger, required...)
	if err != nil {
		return nil, fmt.Errorf("pubsub: %w", err)
	}
	rt.Defer("pubsub", client.Close)
	return client, nil
}

// ServeMetrics exposes /metrics on the app port until ctx ends.
func (rt *Runtime) ServeMetrics(ctx context.Context) {
	go func() {
		if err := metrics.Serve(ctx, ":"+rt.Config.App.Port, rt.Logger); err != nil {
			rt.Logger.Error(ctx, "metrics server stopped", err)
		}
	}()
}

// Main boots a runtime, runs fn until SIGINT or SIGTERM, and exits non-zero
// when booting or fn fails. Cancellation is a clean shutdown.
func Main(service string, fn func(ctx context.Context, rt *Runtime) error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rt, err := Boot(ctx, service)
	if err != nil {
		logger.New(logger.Options{ServiceName: service}).Error(ctx, "bootstrap failed", err)
		stop()
		os.Exit(1)
	}
	ctx = rt.Logger.WithFields(ctx, map[string]any{
		"env":         rt.Config.App.Env,
		"instance":    instance.GetID(),
		"serviceKind": service,
	})

	err = fn(ctx, rt)
	rt.Close(context.WithoutCancel(ctx))
	stop()

	if err != nil && !errors.Is(err, context.Canceled) {
		rt.Logger.Error(ctx, service+" stopped unexpectedly", err)
		os.Exit(1)
	}
	rt.Logger.Info(ctx, service+" shut down gracefully")
}
