package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/tripcreators/creator-wallet/internal/ledger"
	"github.com/tripcreators/creator-wallet/pkg/logger"
	"github.com/tripcreators/creator-wallet/pkg/metrics"
)

// LedgerReconcileJobParams configure the balance drift check.
type LedgerReconcileJobParams struct {
	Logger    *logger.Logger
	Wallets   walletIDLister
	Balances  balanceReconstructor
	Metrics   *metrics.LedgerMetrics
	BatchSize int
}

type walletIDLister interface {
	ListWalletIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
}

type balanceReconstructor interface {
	ReconstructBalance(ctx context.Context, walletID uuid.UUID) (*ledger.Reconstruction, error)
}

// NewLedgerReconcileJob replays every wallet's ledger and reports projections
// that disagree with it. It never rewrites balances.
func NewLedgerReconcileJob(params LedgerReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Wallets == nil {
		return nil, fmt.Errorf("wallet lister required")
	}
	if params.Balances == nil {
		return nil, fmt.Errorf("balance reconstructor required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultJobBatch
	}
	return &ledgerReconcileJob{
		logg:     params.Logger,
		wallets:  params.Wallets,
		balances: params.Balances,
		metrics:  params.Metrics,
		batch:    batch,
	}, nil
}

type ledgerReconcileJob struct {
	logg     *logger.Logger
	wallets  walletIDLister
	balances balanceReconstructor
	metrics  *metrics.LedgerMetrics
	batch    int
}

func (j *ledgerReconcileJob) Name() string { return "ledger-reconcile" }

func (j *ledgerReconcileJob) Run(ctx context.Context) error {
	var (
		after   uuid.UUID
		checked int
		drifted int
		errs    error
	)
	for {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		ids, err := j.wallets.ListWalletIDs(ctx, after, j.batch)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("list wallets: %w", err))
		}
		for _, id := range ids {
			checked++
			result, err := j.balances.ReconstructBalance(ctx, id)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("reconstruct wallet %s: %w", id, err))
				continue
			}
			if result.Consistent() {
				j.metrics.ClearDrift(id.String())
				continue
			}
			drifted++
			drift, _ := result.Drift().Float64()
			j.metrics.SetDrift(id.String(), drift)
			logCtx := j.logg.WithFields(ctx, map[string]any{
				"wallet_id":   id.String(),
				"projected":   result.Projected.StringFixed(2),
				"replayed":    result.Replayed.StringFixed(2),
				"drift":       result.Drift().StringFixed(2),
				"entry_count": result.EntryCount,
				"breaks":      result.Breaks,
			})
			j.logg.Warn(logCtx, "wallet balance disagrees with ledger")
		}
		if len(ids) < j.batch {
			break
		}
		after = ids[len(ids)-1]
	}

	j.metrics.SetDriftedWallets(drifted)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"wallets_checked": checked,
		"wallets_drifted": drifted,
	})
	j.logg.Info(logCtx, "ledger reconciliation complete")
	return errs
}
