package sales

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tripcreators/creator-wallet/pkg/db/models"
)

// Repository persists sales keyed by the provider's transaction reference.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sale *models.Sale) error
	Save(ctx context.Context, sale *models.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	FindByTransactionRef(ctx context.Context, ref string) (*models.Sale, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	LockByTransactionRef(ctx context.Context, ref string) (*models.Sale, error)
	MarkCommissioned(ctx context.Context, id uuid.UUID, creditedAt *time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a sales repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *repository) Save(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Save(sale).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&sale).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) FindByTransactionRef(ctx context.Context, ref string) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).Where("transaction_ref = ?", ref).Take(&sale).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&sale).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) LockByTransactionRef(ctx context.Context, ref string) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("transaction_ref = ?", ref).
		Take(&sale).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// MarkCommissioned flips is_commissioned once. It reports false when another
// writer already did.
func (r *repository) MarkCommissioned(ctx context.Context, id uuid.UUID, creditedAt *time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id = ? AND is_commissioned = ?", id, false).
		Updates(map[string]any{
			"is_commissioned":    true,
			"wallet_credited_at": creditedAt,
			"updated_at":         time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
