package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tripcreators/creator-wallet/pkg/enums"
)

// Sale is one booking event reported by the travel provider, keyed by the
// provider's transaction reference.
type Sale struct {
	ID                       uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ProductID                *uuid.UUID          `gorm:"column:product_id;type:uuid"`
	ProductCode              string              `gorm:"column:product_code;not null;default:''"`
	CreatorID                *uuid.UUID          `gorm:"column:creator_id;type:uuid;index"`
	BookingRef               string              `gorm:"column:booking_ref;not null;index"`
	TransactionRef           string              `gorm:"column:transaction_ref;not null;uniqueIndex:ux_sales_transaction_ref"`
	EventType                enums.SaleEventType `gorm:"column:event_type;type:varchar(50);not null;index"`
	Status                   enums.SaleStatus    `gorm:"column:status;type:varchar(16);not null"`
	CampaignValue            *string             `gorm:"column:campaign_value"`
	TravelDate               *time.Time          `gorm:"column:travel_date;type:date"`
	Price                    decimal.NullDecimal `gorm:"column:price;type:numeric(12,2)"`
	PlatformCommission       decimal.NullDecimal `gorm:"column:platform_commission;type:numeric(12,2)"`
	CreatorCommission        decimal.NullDecimal `gorm:"column:creator_commission;type:numeric(12,2)"`
	CreatorCommissionPercent decimal.NullDecimal `gorm:"column:creator_commission_percent;type:numeric(5,2)"`
	Currency                 enums.Currency      `gorm:"column:currency;type:varchar(3);not null"`
	IsCommissioned           bool                `gorm:"column:is_commissioned;not null;default:false"`
	WalletCreditedAt         *time.Time          `gorm:"column:wallet_credited_at"`
	RawPayload               json.RawMessage     `gorm:"column:raw_payload;type:jsonb"`
	CreatedAt                time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Sale) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
