package accounts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tripcreators/creator-wallet/pkg/db/models"
)

// Repository persists creator payout accounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCreator(ctx context.Context, creatorID uuid.UUID) (*models.CreatorAccount, error)
	FindByStripeAccount(ctx context.Context, stripeAccountID string) (*models.CreatorAccount, error)
	Upsert(ctx context.Context, account *models.CreatorAccount) error
	UpdateCapabilities(ctx context.Context, stripeAccountID string, payoutsEnabled, detailsSubmitted bool) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a creator account repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByCreator returns nil when the creator has no account yet.
func (r *repository) FindByCreator(ctx context.Context, creatorID uuid.UUID) (*models.CreatorAccount, error) {
	var account models.CreatorAccount
	err := r.db.WithContext(ctx).Where("creator_id = ?", creatorID).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// FindByStripeAccount returns nil when the connected account is unknown.
func (r *repository) FindByStripeAccount(ctx context.Context, stripeAccountID string) (*models.CreatorAccount, error) {
	var account models.CreatorAccount
	err := r.db.WithContext(ctx).Where("stripe_account_id = ?", stripeAccountID).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) Upsert(ctx context.Context, account *models.CreatorAccount) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "creator_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"stripe_account_id", "email", "country", "updated_at"}),
	}).Create(account).Error
}

func (r *repository) UpdateCapabilities(ctx context.Context, stripeAccountID string, payoutsEnabled, detailsSubmitted bool) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CreatorAccount{}).
		Where("stripe_account_id = ?", stripeAccountID).
		Updates(map[string]any{
			"payouts_enabled":   payoutsEnabled,
			"details_submitted": detailsSubmitted,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
