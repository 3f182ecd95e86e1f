package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/tripcreators/creator-wallet/pkg/db/models"
)

// LedgerRow is one wallet ledger entry as stored in the warehouse. Money
// columns are fixed two-place decimal strings.
type LedgerRow struct {
	TransactionID string              `bigquery:"transaction_id"`
	WalletID      string              `bigquery:"wallet_id"`
	Sequence      int64               `bigquery:"sequence"`
	Type          string              `bigquery:"type"`
	Source        string              `bigquery:"source"`
	Amount        string              `bigquery:"amount"`
	BalanceBefore string              `bigquery:"balance_before"`
	BalanceAfter  string              `bigquery:"balance_after"`
	Status        string              `bigquery:"status"`
	SaleID        bigquery.NullString `bigquery:"sale_id"`
	PayoutID      bigquery.NullString `bigquery:"payout_id"`
	Reference     bigquery.NullString `bigquery:"reference"`
	Metadata      bigquery.NullString `bigquery:"metadata"`
	CreatedAt     time.Time           `bigquery:"created_at"`
}

// NewLedgerRow maps a ledger entry, leaving absent links NULL.
func NewLedgerRow(entry models.WalletTransaction) LedgerRow {
	row := LedgerRow{
		TransactionID: entry.ID.String(),
		WalletID:      entry.WalletID.String(),
		Sequence:      entry.Sequence,
		Type:          string(entry.Type),
		Source:        string(entry.Source),
		Amount:        entry.Amount.StringFixed(2),
		BalanceBefore: entry.BalanceBefore.StringFixed(2),
		BalanceAfter:  entry.BalanceAfter.StringFixed(2),
		Status:        string(entry.Status),
		CreatedAt:     entry.CreatedAt.UTC(),
	}
	if entry.SaleID != nil {
		row.SaleID = nullString(entry.SaleID.String())
	}
	if entry.PayoutID != nil {
		row.PayoutID = nullString(entry.PayoutID.String())
	}
	if entry.Reference != nil {
		row.Reference = nullString(*entry.Reference)
	}
	if len(entry.Metadata) > 0 {
		row.Metadata = nullString(string(entry.Metadata))
	}
	return row
}

func nullString(v string) bigquery.NullString {
	return bigquery.NullString{StringVal: v, Valid: true}
}

// Save implements bigquery.ValueSaver with the transaction id as insert id.
func (r LedgerRow) Save() (map[string]bigquery.Value, string, error) {
	return map[string]bigquery.Value{
		"transaction_id": r.TransactionID,
		"wallet_id":      r.WalletID,
		"sequence":       r.Sequence,
		"type":           r.Type,
		"source":         r.Source,
		"amount":         r.Amount,
		"balance_before": r.BalanceBefore,
		"balance_after":  r.BalanceAfter,
		"status":         r.Status,
		"sale_id":        r.SaleID,
		"payout_id":      r.PayoutID,
		"reference":      r.Reference,
		"metadata":       r.Metadata,
		"created_at":     r.CreatedAt,
	}, r.TransactionID, nil
}
