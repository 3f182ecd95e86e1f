package ledger

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

// Repository manages persistence for wallets and their append-only ledger.
// There is deliberately no method that updates or deletes a ledger entry.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateWallet(ctx context.Context, wallet *models.Wallet) error
	FindWallet(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error)
	FindWalletByCreator(ctx context.Context, creatorID uuid.UUID) (*models.Wallet, error)
	LockWallet(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error)
	LockWalletByCreator(ctx context.Context, creatorID uuid.UUID) (*models.Wallet, error)
	UpdateWalletStatus(ctx context.Context, walletID uuid.UUID, status enums.WalletStatus) error
	SaveBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal, version, expectedVersion int64) (bool, error)
	AppendEntry(ctx context.Context, entry *models.WalletTransaction) error
	ListEntries(ctx context.Context, walletID uuid.UUID) ([]models.WalletTransaction, error)
	PageEntries(ctx context.Context, walletID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.WalletTransaction, error)
	EntriesCreatedAfter(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.WalletTransaction, error)
	FindPayoutEntry(ctx context.Context, payoutID uuid.UUID, sources ...enums.WalletTransactionSource) (*models.WalletTransaction, error)
	SumBySource(ctx context.Context, walletID uuid.UUID, source enums.WalletTransactionSource) (decimal.Decimal, error)
	NetOutsidePayouts(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error)
	ListWalletIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateWallet(ctx context.Context, wallet *models.Wallet) error {
	return r.db.WithContext(ctx).Create(wallet).Error
}

func (r *repository) FindWallet(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).Where("id = ?", walletID).Take(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) FindWalletByCreator(ctx context.Context, creatorID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).Where("creator_id = ?", creatorID).Take(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// LockWallet loads the wallet with SELECT ... FOR UPDATE. Must run inside a transaction.
func (r *repository) LockWallet(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", walletID).
		Take(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) LockWalletByCreator(ctx context.Context, creatorID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("creator_id = ?", creatorID).
		Take(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) UpdateWalletStatus(ctx context.Context, walletID uuid.UUID, status enums.WalletStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ?", walletID).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SaveBalance writes the projection only if nobody bumped the version since
// the wallet was locked. It reports whether the row was updated.
func (r *repository) SaveBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal, version, expectedVersion int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ? AND version = ?", walletID, expectedVersion).
		Updates(map[string]any{
			"balance":    balance,
			"version":    version,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) AppendEntry(ctx context.Context, entry *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListEntries(ctx context.Context, walletID uuid.UUID) ([]models.WalletTransaction, error) {
	var entries []models.WalletTransaction
	if err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("sequence ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// PageEntries lists a wallet's entries newest first using a (created_at, id) cursor.
func (r *repository) PageEntries(ctx context.Context, walletID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.WalletTransaction, error) {
	var entries []models.WalletTransaction
	if err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Scopes(pagination.NewestFirst(cursor)).
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// EntriesCreatedAfter lists entries across all wallets oldest first, strictly after the cursor.
func (r *repository) EntriesCreatedAfter(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.WalletTransaction, error) {
	var entries []models.WalletTransaction
	if err := r.db.WithContext(ctx).
		Scopes(pagination.OldestFirst(cursor)).
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) FindPayoutEntry(ctx context.Context, payoutID uuid.UUID, sources ...enums.WalletTransactionSource) (*models.WalletTransaction, error) {
	query := r.db.WithContext(ctx).Where("payout_id = ?", payoutID)
	if len(sources) > 0 {
		query = query.Where("source IN ?", sources)
	}

	var entry models.WalletTransaction
	err := query.Order("sequence ASC").Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) SumBySource(ctx context.Context, walletID uuid.UUID, source enums.WalletTransactionSource) (decimal.Decimal, error) {
	var entries []models.WalletTransaction
	if err := r.db.WithContext(ctx).
		Select("amount").
		Where("wallet_id = ? AND source = ? AND status = ?", walletID, source, enums.WalletTransactionCompleted).
		Find(&entries).Error; err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, entry := range entries {
		total = total.Add(entry.Amount)
	}
	return total, nil
}

// NetOutsidePayouts is credits minus debits over entries not tied to a payout:
// everything that reached the wallet from outside the payout flow.
func (r *repository) NetOutsidePayouts(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	var entries []models.WalletTransaction
	if err := r.db.WithContext(ctx).
		Select("type", "amount").
		Where("wallet_id = ? AND payout_id IS NULL AND status = ?", walletID, enums.WalletTransactionCompleted).
		Find(&entries).Error; err != nil {
		return decimal.Zero, err
	}
	balance := decimal.Zero
	for _, entry := range entries {
		if entry.Type == enums.WalletTransactionDebit {
			balance = balance.Sub(entry.Amount)
			continue
		}
		balance = balance.Add(entry.Amount)
	}
	return balance, nil
}

func (r *repository) ListWalletIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	query := r.db.WithContext(ctx).Model(&models.Wallet{})
	if after != uuid.Nil {
		query = query.Where("id > ?", after)
	}

	var ids []uuid.UUID
	if err := query.Order("id ASC").Limit(limit).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
