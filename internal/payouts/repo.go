package payouts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tripcreators/creator-wallet/pkg/db/models"
	"github.com/tripcreators/creator-wallet/pkg/enums"
	"github.com/tripcreators/creator-wallet/pkg/pagination"
)

// ListQuery selects a creator's payouts newest first.
type ListQuery struct {
	CreatorID uuid.UUID
	Status    *enums.PayoutStatus
	From      *time.Time
	To        *time.Time
	Cursor    *pagination.Cursor
	Limit     int
}

// Repository persists payouts and payout thresholds.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payout *models.Payout) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Payout, error)
	FindByProviderPayoutID(ctx context.Context, providerPayoutID string) (*models.Payout, error)
	Transition(ctx context.Context, id uuid.UUID, from enums.PayoutStatus, updates map[string]any) (bool, error)
	List(ctx context.Context, query ListQuery) ([]models.Payout, error)
	SumAmount(ctx context.Context, creatorID uuid.UUID, statuses []enums.PayoutStatus) (decimal.Decimal, error)
	SumPaidBetween(ctx context.Context, creatorID uuid.UUID, from, to time.Time) (decimal.Decimal, error)
	ListStuck(ctx context.Context, statuses []enums.PayoutStatus, updatedBefore time.Time, limit int) ([]models.Payout, error)
	ActiveThreshold(ctx context.Context) (*models.PayoutThreshold, error)
	ReplaceThreshold(ctx context.Context, threshold *models.PayoutThreshold) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payout repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payout *models.Payout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&payout).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&payout).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

// FindByProviderPayoutID returns nil when no payout carries the provider reference.
func (r *repository) FindByProviderPayoutID(ctx context.Context, providerPayoutID string) (*models.Payout, error) {
	var payout models.Payout
	err := r.db.WithContext(ctx).Where("provider_payout_id = ?", providerPayoutID).Take(&payout).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

// Transition applies updates only while the payout is still in from.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, from enums.PayoutStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.Payout, error) {
	q := r.db.WithContext(ctx).Where("creator_id = ?", query.CreatorID)
	if query.Status != nil {
		q = q.Where("status = ?", *query.Status)
	}
	if query.From != nil {
		q = q.Where("created_at >= ?", *query.From)
	}
	if query.To != nil {
		q = q.Where("created_at < ?", *query.To)
	}

	var rows []models.Payout
	if err := q.Scopes(pagination.NewestFirst(query.Cursor)).Limit(query.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) SumAmount(ctx context.Context, creatorID uuid.UUID, statuses []enums.PayoutStatus) (decimal.Decimal, error) {
	var rows []models.Payout
	if err := r.db.WithContext(ctx).
		Select("amount").
		Where("creator_id = ? AND status IN ?", creatorID, statuses).
		Find(&rows).Error; err != nil {
		return decimal.Zero, err
	}
	return sumAmounts(rows), nil
}

func (r *repository) SumPaidBetween(ctx context.Context, creatorID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	var rows []models.Payout
	if err := r.db.WithContext(ctx).
		Select("amount").
		Where("creator_id = ? AND status = ?", creatorID, enums.PayoutStatusPaid).
		Where("paid_at >= ? AND paid_at < ?", from, to).
		Find(&rows).Error; err != nil {
		return decimal.Zero, err
	}
	return sumAmounts(rows), nil
}

func (r *repository) ListStuck(ctx context.Context, statuses []enums.PayoutStatus, updatedBefore time.Time, limit int) ([]models.Payout, error) {
	var rows []models.Payout
	if err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Where("updated_at < ?", updatedBefore).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ActiveThreshold returns nil when no threshold was ever configured.
func (r *repository) ActiveThreshold(ctx context.Context) (*models.PayoutThreshold, error) {
	var threshold models.PayoutThreshold
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Take(&threshold).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &threshold, nil
}

func (r *repository) ReplaceThreshold(ctx context.Context, threshold *models.PayoutThreshold) error {
	if err := r.db.WithContext(ctx).
		Model(&models.PayoutThreshold{}).
		Where("is_active = ?", true).
		Update("is_active", false).Error; err != nil {
		return err
	}
	threshold.IsActive = true
	return r.db.WithContext(ctx).Create(threshold).Error
}

func sumAmounts(rows []models.Payout) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Amount)
	}
	return total
}
