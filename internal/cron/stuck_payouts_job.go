package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/tripcreators/creator-wallet/pkg/db/models"
	"github.com/tripcreators/creator-wallet/pkg/logger"
	"github.com/tripcreators/creator-wallet/pkg/metrics"
)

const defaultStuckAfter = 30 * time.Minute

// StuckPayoutsJobParams configure the stuck settlement sweep.
type StuckPayoutsJobParams struct {
	Logger     *logger.Logger
	Payouts    stuckPayoutService
	Metrics    *metrics.LedgerMetrics
	StuckAfter time.Duration
	Limit      int
}

type stuckPayoutService interface {
	ListStuck(ctx context.Context, olderThan time.Duration, limit int) ([]models.Payout, error)
	RetrySettlement(ctx context.Context, payoutID uuid.UUID) (bool, error)
}

// NewStuckPayoutsJob requeues settlement for approved or funded payouts that
// have not moved within the configured window.
func NewStuckPayoutsJob(params StuckPayoutsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payouts == nil {
		return nil, fmt.Errorf("payout service required")
	}
	stuckAfter := params.StuckAfter
	if stuckAfter <= 0 {
		stuckAfter = defaultStuckAfter
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultJobBatch
	}
	return &stuckPayoutsJob{
		logg:       params.Logger,
		payouts:    params.Payouts,
		metrics:    params.Metrics,
		stuckAfter: stuckAfter,
		limit:      limit,
		now:        time.Now,
	}, nil
}

type stuckPayoutsJob struct {
	logg       *logger.Logger
	payouts    stuckPayoutService
	metrics    *metrics.LedgerMetrics
	stuckAfter time.Duration
	limit      int
	now        func() time.Time
}

func (j *stuckPayoutsJob) Name() string { return "stuck-payouts" }

func (j *stuckPayoutsJob) Run(ctx context.Context) error {
	stuck, err := j.payouts.ListStuck(ctx, j.stuckAfter, j.limit)
	if err != nil {
		return fmt.Errorf("list stuck payouts: %w", err)
	}
	j.metrics.SetStuckPayouts(len(stuck))

	var (
		requeued int
		errs     error
	)
	now := j.now().UTC()
	for _, payout := range stuck {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"payout_id":    payout.ID.String(),
			"status":       string(payout.Status),
			"stuck_for":    now.Sub(payout.UpdatedAt).Round(time.Second).String(),
			"has_transfer": payout.TransferID != nil,
		})
		emitted, err := j.payouts.RetrySettlement(ctx, payout.ID)
		if err != nil {
			j.logg.Error(logCtx, "failed to requeue payout settlement", err)
			errs = multierr.Append(errs, fmt.Errorf("retry payout %s: %w", payout.ID, err))
			continue
		}
		if emitted {
			requeued++
			j.logg.Warn(logCtx, "payout settlement requeued")
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"stuck":    len(stuck),
		"requeued": requeued,
	})
	j.logg.Info(logCtx, "stuck payout sweep complete")
	return errs
}
