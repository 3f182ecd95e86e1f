package models

import (
	"time"

	"github.com/google/uuid"
)

// CreatorAccount links a creator to their connected payout provider account.
// PayoutsEnabled mirrors the provider's payouts capability.
type CreatorAccount struct {
	CreatorID        uuid.UUID `gorm:"column:creator_id;type:uuid;primaryKey"`
	StripeAccountID  *string   `gorm:"column:stripe_account_id;uniqueIndex:ux_creator_accounts_stripe_account_id"`
	Email            string    `gorm:"column:email;not null;default:''"`
	Country          string    `gorm:"column:country;type:varchar(2);not null;default:''"`
	PayoutsEnabled   bool      `gorm:"column:payouts_enabled;not null;default:false"`
	DetailsSubmitted bool      `gorm:"column:details_submitted;not null;default:false"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// ReadyForPayouts reports whether the creator can receive provider payouts.
func (a CreatorAccount) ReadyForPayouts() bool {
	return a.StripeAccountID != nil && *a.StripeAccountID != "" && a.PayoutsEnabled
}
