package commission

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tripcreators/creator-wallet/pkg/db/models"
)

// RateSource names where a resolved percent came from.
type RateSource string

const (
	RateSourceOverride RateSource = "override"
	RateSourceGlobal   RateSource = "global"
	RateSourceDefault  RateSource = "default"
)

// Rate is the percent that applies to a creator at a point in time.
type Rate struct {
	Percent    decimal.Decimal
	Source     RateSource
	OverrideID *uuid.UUID
}

// PolicyRepository reads and writes the global rate and per-creator overrides.
type PolicyRepository interface {
	WithTx(tx *gorm.DB) PolicyRepository
	ResolveRate(ctx context.Context, creatorID uuid.UUID, at time.Time) (Rate, error)
	ActiveGlobal(ctx context.Context) (*models.CommissionSetting, error)
	ReplaceGlobal(ctx context.Context, setting *models.CommissionSetting) error
	CreateOverride(ctx context.Context, override *models.CreatorCommissionOverride) error
	SaveOverride(ctx context.Context, override *models.CreatorCommissionOverride) error
	LatestOverride(ctx context.Context, creatorID uuid.UUID) (*models.CreatorCommissionOverride, error)
	ListOverrides(ctx context.Context, creatorID *uuid.UUID) ([]models.CreatorCommissionOverride, error)
}

type policyRepository struct {
	db *gorm.DB
}

// NewPolicyRepository returns a commission policy repository.
func NewPolicyRepository(db *gorm.DB) PolicyRepository {
	return &policyRepository{db: db}
}

func (r *policyRepository) WithTx(tx *gorm.DB) PolicyRepository {
	if tx == nil {
		return r
	}
	return &policyRepository{db: tx}
}

// ResolveRate applies override, then global, then zero. Among overrides whose
// window contains at, the latest effective_from wins.
func (r *policyRepository) ResolveRate(ctx context.Context, creatorID uuid.UUID, at time.Time) (Rate, error) {
	at = at.UTC()
	if creatorID != uuid.Nil {
		var override models.CreatorCommissionOverride
		err := r.db.WithContext(ctx).
			Where("creator_id = ?", creatorID).
			Where("effective_from <= ?", at).
			Where("effective_to IS NULL OR effective_to >= ?", at).
			Order("effective_from DESC").
			Order("created_at DESC").
			Take(&override).Error
		switch {
		case err == nil:
			id := override.ID
			return Rate{Percent: override.Percent, Source: RateSourceOverride, OverrideID: &id}, nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return Rate{}, err
		}
	}

	global, err := r.ActiveGlobal(ctx)
	if err != nil {
		return Rate{}, err
	}
	if global != nil {
		return Rate{Percent: global.GlobalCreatorCommissionPercent, Source: RateSourceGlobal}, nil
	}
	return Rate{Percent: decimal.Zero, Source: RateSourceDefault}, nil
}

func (r *policyRepository) ActiveGlobal(ctx context.Context) (*models.CommissionSetting, error) {
	var setting models.CommissionSetting
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at DESC").
		Take(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// ReplaceGlobal deactivates every active setting and inserts the new one.
// Callers run it inside a transaction.
func (r *policyRepository) ReplaceGlobal(ctx context.Context, setting *models.CommissionSetting) error {
	if err := r.db.WithContext(ctx).
		Model(&models.CommissionSetting{}).
		Where("active = ?", true).
		Updates(map[string]any{"active": false, "updated_at": time.Now().UTC()}).Error; err != nil {
		return err
	}
	setting.Active = true
	return r.db.WithContext(ctx).Create(setting).Error
}

func (r *policyRepository) CreateOverride(ctx context.Context, override *models.CreatorCommissionOverride) error {
	return r.db.WithContext(ctx).Create(override).Error
}

func (r *policyRepository) SaveOverride(ctx context.Context, override *models.CreatorCommissionOverride) error {
	return r.db.WithContext(ctx).Save(override).Error
}

func (r *policyRepository) LatestOverride(ctx context.Context, creatorID uuid.UUID) (*models.CreatorCommissionOverride, error) {
	var override models.CreatorCommissionOverride
	err := r.db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("effective_from DESC").
		Order("created_at DESC").
		Take(&override).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &override, nil
}

func (r *policyRepository) ListOverrides(ctx context.Context, creatorID *uuid.UUID) ([]models.CreatorCommissionOverride, error) {
	query := r.db.WithContext(ctx).Model(&models.CreatorCommissionOverride{})
	if creatorID != nil {
		query = query.Where("creator_id = ?", *creatorID)
	}
	var rows []models.CreatorCommissionOverride
	if err := query.Order("creator_id ASC").Order("effective_from DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
