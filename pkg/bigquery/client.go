package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/tripcreators/creator-wallet/pkg/config"
	"github.com/tripcreators/creator-wallet/pkg/gcp"
	"github.com/tripcreators/creator-wallet/pkg/logger"
)

const (
	metadataTimeout = 10 * time.Second
	// streaming inserts above this size are split into several Put calls
	maxRowsPerPut = 500
)

var (
	errDatasetRequired      = errors.New("bigquery dataset is required")
	errTableRequired        = errors.New("bigquery ledger table is required")
	errClientNotInitialized = errors.New("bigquery client not initialized")
)

// Client streams ledger rows into one dataset table.
type Client struct {
	bq      *bigquery.Client
	dataset *bigquery.Dataset
	table   string
}

// NewClient connects to BigQuery and checks the ledger table. When
// cfg.CreateTable is set a missing table is created, day-partitioned on
// created_at and clustered by wallet.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	project, err := gcp.ProjectID(gcpCfg)
	if err != nil {
		return nil, err
	}
	datasetID := strings.TrimSpace(cfg.Dataset)
	if datasetID == "" {
		return nil, errDatasetRequired
	}
	table := strings.TrimSpace(cfg.LedgerTable)
	if table == "" {
		return nil, errTableRequired
	}

	bq, err := bigquery.NewClient(ctx, project, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	c := &Client{bq: bq, dataset: bq.Dataset(datasetID), table: table}

	created, err := c.prepare(ctx, cfg.CreateTable)
	if err != nil {
		_ = bq.Close()
		return nil, err
	}

	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"dataset": datasetID,
			"table":   table,
			"created": created,
		})
		logg.Info(logCtx, "bigquery client initialized")
	}
	return c, nil
}

func (c *Client) prepare(ctx context.Context, create bool) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		if isNotFound(err) {
			return false, fmt.Errorf("dataset %q does not exist", c.dataset.DatasetID)
		}
		return false, fmt.Errorf("checking dataset %q: %w", c.dataset.DatasetID, err)
	}

	ref := c.dataset.Table(c.table)
	_, err := ref.Metadata(ctx)
	switch {
	case err == nil:
		return false, nil
	case !isNotFound(err):
		return false, fmt.Errorf("checking table %q: %w", c.table, err)
	case !create:
		return false, fmt.Errorf("table %q does not exist", c.table)
	}

	meta, err := ledgerTableMetadata()
	if err != nil {
		return false, err
	}
	if err := ref.Create(ctx, meta); err != nil {
		return false, fmt.Errorf("creating table %q: %w", c.table, err)
	}
	return true, nil
}

func ledgerTableMetadata() (*bigquery.TableMetadata, error) {
	schema, err := bigquery.InferSchema(LedgerRow{})
	if err != nil {
		return nil, fmt.Errorf("infer ledger schema: %w", err)
	}
	return &bigquery.TableMetadata{
		Schema: schema,
		TimePartitioning: &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: "created_at",
		},
		Clustering:  &bigquery.Clustering{Fields: []string{"wallet_id"}},
		Description: "Append-only creator wallet ledger",
	}, nil
}

// LedgerTable returns the table rows are streamed into.
func (c *Client) LedgerTable() string {
	if c == nil {
		return ""
	}
	return c.table
}

// InsertLedgerRows streams rows in chunks. Each row carries its transaction
// id as insert id, so replaying a chunk after a partial failure dedupes.
func (c *Client) InsertLedgerRows(ctx context.Context, rows []LedgerRow) error {
	if c == nil || c.bq == nil {
		return errClientNotInitialized
	}
	inserter := c.dataset.Table(c.table).Inserter()
	for start := 0; start < len(rows); start += maxRowsPerPut {
		end := min(start+maxRowsPerPut, len(rows))
		if err := inserter.Put(ctx, rows[start:end]); err != nil {
			return describePutError(err, start)
		}
	}
	return nil
}

// describePutError flattens a PutMultiError into its first row failure.
func describePutError(err error, offset int) error {
	var multi bigquery.PutMultiError
	if !errors.As(err, &multi) || len(multi) == 0 {
		return fmt.Errorf("insert ledger rows: %w", err)
	}
	first := multi[0]
	return fmt.Errorf("insert ledger rows: %d rows rejected, first at index %d: %w",
		len(multi), offset+first.RowIndex, first.Errors)
}

// Ping checks the dataset and table are still reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.bq == nil {
		return errClientNotInitialized
	}
	_, err := c.prepare(ctx, false)
	return err
}

// Close releases the client.
func (c *Client) Close() error {
	if c == nil || c.bq == nil {
		return nil
	}
	return c.bq.Close()
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
