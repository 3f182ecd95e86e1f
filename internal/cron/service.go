package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tripcreators/creator-wallet/pkg/logger"
	"github.com/tripcreators/creator-wallet/pkg/metrics"
)

// ErrLockHeld is returned by RunJob when another worker holds the lease.
var ErrLockHeld = errors.New("cron lock held by another instance")

// ServiceParams configure the cron service. Zero Interval and JobTimeout
// fall back to 5m and 2m.
type ServiceParams struct {
	Logger     *logger.Logger
	Registry   *Registry
	Lock       Lock
	Metrics    *metrics.CronJobMetrics
	Interval   time.Duration
	JobTimeout time.Duration
}

// Service runs every registered job once per interval while holding the
// cluster-wide lock. A failing job does not stop the jobs after it.
type Service struct {
	ServiceParams
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Lock == nil {
		return nil, errors.New("lock required")
	}
	if params.Registry == nil {
		params.Registry = NewRegistry()
	}
	if params.Interval <= 0 {
		params.Interval = 5 * time.Minute
	}
	if params.JobTimeout <= 0 {
		params.JobTimeout = 2 * time.Minute
	}
	return &Service{ServiceParams: params}, nil
}

// Run executes a cycle immediately and then on every tick until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		if err := s.RunOnce(ctx); err != nil {
			s.Logger.Error(ctx, "scheduled run failed", err)
		}
		select {
		case <-ctx.Done():
			s.Logger.Info(ctx, "cron service stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce runs one cycle. A held lock skips the cycle without error; job
// failures are joined into the returned error.
func (s *Service) RunOnce(ctx context.Context) error {
	jobs := s.Registry.Jobs()
	err := s.withLease(ctx, func() error {
		s.Logger.Info(s.Logger.WithField(ctx, "jobs", len(jobs)), "scheduled run starting")
		var failed []error
		for _, job := range jobs {
			if err := s.execute(ctx, job); err != nil {
				failed = append(failed, fmt.Errorf("%s: %w", job.Name(), err))
			}
		}
		s.Logger.Info(s.Logger.WithField(ctx, "failed", len(failed)), "scheduled run complete")
		return errors.Join(failed...)
	})
	if errors.Is(err, ErrLockHeld) {
		return nil
	}
	return err
}

// RunJob runs one named job under the lock and returns its error, or
// ErrLockHeld when another worker is busy.
func (s *Service) RunJob(ctx context.Context, name string) error {
	job, ok := s.Registry.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown cron job %q", name)
	}
	return s.withLease(ctx, func() error {
		return s.execute(ctx, job)
	})
}

func (s *Service) withLease(ctx context.Context, fn func() error) error {
	acquired, err := s.Lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !acquired {
		logCtx := ctx
		if hl, ok := s.Lock.(holderLock); ok {
			if holder, err := hl.Holder(ctx); err == nil && holder != "" {
				logCtx = s.Logger.WithField(ctx, "lock_holder", holder)
			}
		}
		s.Logger.Info(logCtx, "another cron instance is running; skipping")
		return ErrLockHeld
	}
	defer func() {
		// release even when ctx was cancelled mid-cycle
		if err := s.Lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.Logger.Error(ctx, "failed to release cron lock", err)
		}
	}()
	return fn()
}

func (s *Service) execute(ctx context.Context, job Job) error {
	jobCtx := s.Logger.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job"})
	runCtx, cancel := context.WithTimeout(jobCtx, s.JobTimeout)
	defer cancel()

	started := time.Now()
	err := job.Run(runCtx)
	elapsed := time.Since(started)
	s.Metrics.Observe(job.Name(), elapsed, err)

	jobCtx = s.Logger.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.Logger.Error(jobCtx, "job failed", err)
		return err
	}
	s.Logger.Info(jobCtx, "job completed")
	return nil
}
