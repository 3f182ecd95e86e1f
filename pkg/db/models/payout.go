package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tripcreators/creator-wallet/pkg/enums"
)

// Payout is a withdrawal of reserved wallet funds to the creator's bank
// through the payout provider. It is a financial record and never deleted.
type Payout struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	CreatorID        uuid.UUID          `gorm:"column:creator_id;type:uuid;not null;index:ix_payouts_creator_status,priority:1"`
	WalletID         uuid.UUID          `gorm:"column:wallet_id;type:uuid;not null;index"`
	Amount           decimal.Decimal    `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency         enums.Currency     `gorm:"column:currency;type:varchar(3);not null"`
	Method           enums.PayoutMethod `gorm:"column:method;type:varchar(16);not null"`
	Status           enums.PayoutStatus `gorm:"column:status;type:varchar(16);not null;index:ix_payouts_creator_status,priority:2"`
	TransferID       *string            `gorm:"column:transfer_id"`
	ProviderPayoutID *string            `gorm:"column:provider_payout_id;uniqueIndex:ux_payouts_provider_payout_id"`
	FailureReason    *string            `gorm:"column:failure_reason"`
	ApprovedBy       *uuid.UUID         `gorm:"column:approved_by;type:uuid"`
	ApprovedAt       *time.Time         `gorm:"column:approved_at"`
	RequestedAt      time.Time          `gorm:"column:requested_at;not null"`
	PaidAt           *time.Time         `gorm:"column:paid_at"`
	FailedAt         *time.Time         `gorm:"column:failed_at"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payout) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// HasTransfer reports whether phase one already succeeded.
func (p Payout) HasTransfer() bool {
	return p.TransferID != nil && *p.TransferID != ""
}

// HasProviderPayout reports whether phase two already succeeded.
func (p Payout) HasProviderPayout() bool {
	return p.ProviderPayoutID != nil && *p.ProviderPayoutID != ""
}

// PayoutThreshold bounds payout request amounts. Only the active row applies.
type PayoutThreshold struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	MinimumAmount decimal.Decimal     `gorm:"column:minimum_amount;type:numeric(12,2);not null"`
	MaximumAmount decimal.NullDecimal `gorm:"column:maximum_amount;type:numeric(12,2)"`
	Currency      enums.Currency      `gorm:"column:currency;type:varchar(3);not null"`
	IsActive      bool                `gorm:"column:is_active;not null;default:true"`
	SetBy         *uuid.UUID          `gorm:"column:set_by;type:uuid"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *PayoutThreshold) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
