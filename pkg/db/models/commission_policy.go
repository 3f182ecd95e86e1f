package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CommissionSetting holds the global creator commission percent. Only the
// latest active row is consulted.
type CommissionSetting struct {
	ID                             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	GlobalCreatorCommissionPercent decimal.Decimal `gorm:"column:global_creator_commission_percent;type:numeric(5,2);not null"`
	Active                         bool            `gorm:"column:active;not null;default:true"`
	SetBy                          *uuid.UUID      `gorm:"column:set_by;type:uuid"`
	CreatedAt                      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *CommissionSetting) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// CreatorCommissionOverride replaces the global percent for one creator while
// its effective window contains the evaluation time. A nil EffectiveTo is open-ended.
type CreatorCommissionOverride struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CreatorID     uuid.UUID       `gorm:"column:creator_id;type:uuid;not null;index"`
	Percent       decimal.Decimal `gorm:"column:creator_commission_percent;type:numeric(5,2);not null"`
	EffectiveFrom time.Time       `gorm:"column:effective_from;not null"`
	EffectiveTo   *time.Time      `gorm:"column:effective_to"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *CreatorCommissionOverride) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// Covers reports whether the override window contains at.
func (o CreatorCommissionOverride) Covers(at time.Time) bool {
	if at.Before(o.EffectiveFrom) {
		return false
	}
	return o.EffectiveTo == nil || !at.After(*o.EffectiveTo)
}
