package cron

import (
	"context"
	"fmt"

	pkgbq "github.com/tripcreators/creator-wallet/pkg/bigquery"
	"github.com/tripcreators/creator-wallet/pkg/db/models"
	"github.com/tripcreators/creator-wallet/pkg/logger"
	"github.com/tripcreators/creator-wallet/pkg/metrics"
	"github.com/tripcreators/creator-wallet/pkg/pagination"
)

const (
	ledgerExportCursorName = "ledger_bigquery"
	ledgerExportMaxBatches = 20
)

// LedgerExportJobParams configure the warehouse export of ledger entries.
type LedgerExportJobParams struct {
	Logger     *logger.Logger
	Entries    ledgerEntryReader
	Warehouse  ledgerWarehouse
	Cursors    exportCursorStore
	Metrics    *metrics.LedgerMetrics
	BatchSize  int
	MaxBatches int
}

type ledgerEntryReader interface {
	EntriesCreatedAfter(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.WalletTransaction, error)
}

type ledgerWarehouse interface {
	InsertLedgerRows(ctx context.Context, rows []pkgbq.LedgerRow) error
	LedgerTable() string
}

type exportCursorStore interface {
	Load(ctx context.Context, name string) (*pagination.Cursor, error)
	Save(ctx context.Context, name string, cursor pagination.Cursor) error
}

// NewLedgerExportJob streams ledger entries to BigQuery past the stored cursor.
// Rows carry the entry id as insert id so a replayed batch dedupes.
func NewLedgerExportJob(params LedgerExportJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Entries == nil {
		return nil, fmt.Errorf("ledger reader required")
	}
	if params.Warehouse == nil {
		return nil, fmt.Errorf("warehouse client required")
	}
	if params.Cursors == nil {
		return nil, fmt.Errorf("cursor store required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultJobBatch
	}
	maxBatches := params.MaxBatches
	if maxBatches <= 0 {
		maxBatches = ledgerExportMaxBatches
	}
	return &ledgerExportJob{
		logg:       params.Logger,
		entries:    params.Entries,
		warehouse:  params.Warehouse,
		cursors:    params.Cursors,
		metrics:    params.Metrics,
		batch:      batch,
		maxBatches: maxBatches,
	}, nil
}

type ledgerExportJob struct {
	logg       *logger.Logger
	entries    ledgerEntryReader
	warehouse  ledgerWarehouse
	cursors    exportCursorStore
	metrics    *metrics.LedgerMetrics
	batch      int
	maxBatches int
}

func (j *ledgerExportJob) Name() string { return "ledger-export" }

func (j *ledgerExportJob) Run(ctx context.Context) error {
	cursor, err := j.cursors.Load(ctx, ledgerExportCursorName)
	if err != nil {
		return fmt.Errorf("load export cursor: %w", err)
	}

	exported := 0
	for i := 0; i < j.maxBatches; i++ {
		entries, err := j.entries.EntriesCreatedAfter(ctx, cursor, j.batch)
		if err != nil {
			return fmt.Errorf("read ledger entries: %w", err)
		}
		if len(entries) == 0 {
			break
		}
		rows := make([]pkgbq.LedgerRow, 0, len(entries))
		for _, entry := range entries {
			rows = append(rows, pkgbq.NewLedgerRow(entry))
		}
		if err := j.warehouse.InsertLedgerRows(ctx, rows); err != nil {
			return err
		}
		last := entries[len(entries)-1]
		next := pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
		if err := j.cursors.Save(ctx, ledgerExportCursorName, next); err != nil {
			return fmt.Errorf("save export cursor: %w", err)
		}
		cursor = &next
		exported += len(entries)
		j.metrics.AddExported(len(entries))
		if len(entries) < j.batch {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"table":    j.warehouse.LedgerTable(),
		"exported": exported,
	})
	j.logg.Info(logCtx, "ledger export complete")
	return nil
}
