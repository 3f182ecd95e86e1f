package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tripcreators/creator-wallet/pkg/enums"
)

// Wallet is a creator's balance projection. Balance only changes through the
// wallet service together with an appended WalletTransaction; Version counts
// those mutations and doubles as the ledger sequence number.
type Wallet struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	CreatorID uuid.UUID          `gorm:"column:creator_id;type:uuid;not null;uniqueIndex:ux_wallets_creator_id"`
	Balance   decimal.Decimal    `gorm:"column:balance;type:numeric(12,2);not null"`
	Currency  enums.Currency     `gorm:"column:currency;type:varchar(3);not null"`
	Status    enums.WalletStatus `gorm:"column:status;type:varchar(16);not null"`
	Version   int64              `gorm:"column:version;not null;default:0"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (w *Wallet) BeforeCreate(*gorm.DB) error {
	ensureID(&w.ID)
	return nil
}

// IsActive reports whether the wallet accepts balance mutations.
func (w Wallet) IsActive() bool {
	return w.Status == enums.WalletStatusActive
}
