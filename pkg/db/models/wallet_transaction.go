package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tripcreators/creator-wallet/pkg/enums"
)

// WalletTransaction is an immutable ledger entry. Sequence is the wallet
// version produced by the mutation and totally orders a wallet's entries.
type WalletTransaction struct {
	ID            uuid.UUID                     `gorm:"column:id;type:uuid;primaryKey"`
	WalletID      uuid.UUID                     `gorm:"column:wallet_id;type:uuid;not null;uniqueIndex:ux_wallet_transactions_sequence,priority:1"`
	Sequence      int64                         `gorm:"column:sequence;not null;uniqueIndex:ux_wallet_transactions_sequence,priority:2"`
	Type          enums.WalletTransactionType   `gorm:"column:type;type:varchar(16);not null"`
	Source        enums.WalletTransactionSource `gorm:"column:source;type:varchar(32);not null;index"`
	Amount        decimal.Decimal               `gorm:"column:amount;type:numeric(12,2);not null"`
	BalanceBefore decimal.Decimal               `gorm:"column:balance_before;type:numeric(12,2);not null"`
	BalanceAfter  decimal.Decimal               `gorm:"column:balance_after;type:numeric(12,2);not null"`
	Status        enums.WalletTransactionStatus `gorm:"column:status;type:varchar(16);not null"`
	SaleID        *uuid.UUID                    `gorm:"column:sale_id;type:uuid;index"`
	PayoutID      *uuid.UUID                    `gorm:"column:payout_id;type:uuid;index"`
	Reference     *string                       `gorm:"column:reference"`
	Metadata      json.RawMessage               `gorm:"column:metadata;type:jsonb"`
	CreatedAt     time.Time                     `gorm:"column:created_at;autoCreateTime"`
}

func (t *WalletTransaction) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// BeforeUpdate rejects any attempt to rewrite a ledger entry.
func (t *WalletTransaction) BeforeUpdate(*gorm.DB) error {
	return ErrLedgerImmutable
}

// BeforeDelete rejects any attempt to remove a ledger entry.
func (t *WalletTransaction) BeforeDelete(*gorm.DB) error {
	return ErrLedgerImmutable
}

// SignedAmount returns the balance delta the entry applied.
func (t WalletTransaction) SignedAmount() decimal.Decimal {
	if t.Type == enums.WalletTransactionDebit {
		return t.Amount.Neg()
	}
	if t.Type == enums.WalletTransactionAdjustment {
		return t.BalanceAfter.Sub(t.BalanceBefore)
	}
	return t.Amount
}
