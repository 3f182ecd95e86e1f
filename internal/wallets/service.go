package wallets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tripcreators/creator-wallet/internal/ledger"
	"github.com/tripcreators/creator-wallet/internal/sales"
	"github.com/tripcreators/creator-wallet/pkg/db"
	"github.com/tripcreators/creator-wallet/pkg/db/models"
	"github.com/tripcreators/creator-wallet/pkg/enums"
	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
	"github.com/tripcreators/creator-wallet/pkg/logger"
	"github.com/tripcreators/creator-wallet/pkg/outbox"
	"github.com/tripcreators/creator-wallet/pkg/outbox/payloads"
	"github.com/tripcreators/creator-wallet/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Movement is one balance change requested by a caller.
type Movement struct {
	Amount    decimal.Decimal
	Source    enums.WalletTransactionSource
	SaleID    *uuid.UUID
	PayoutID  *uuid.UUID
	Reference *string
	Metadata  map[string]any
}

// CommissionResult reports what ApplySaleCommission did.
type CommissionResult struct {
	SaleID        uuid.UUID
	Applied       bool
	Amount        decimal.Decimal
	TransactionID *uuid.UUID
	WalletID      *uuid.UUID
}

// Service owns every wallet balance mutation. Each mutation locks the wallet
// row, appends one ledger entry and updates the projection in one transaction.
type Service interface {
	EnsureWallet(ctx context.Context, creatorID uuid.UUID, currency enums.Currency) (*models.Wallet, error)
	EnsureWalletTx(ctx context.Context, tx *gorm.DB, creatorID uuid.UUID, currency enums.Currency) (*models.Wallet, error)
	GetWallet(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error)
	GetByCreator(ctx context.Context, creatorID uuid.UUID) (*models.Wallet, error)
	SetStatus(ctx context.Context, walletID uuid.UUID, status enums.WalletStatus) error

	Credit(ctx context.Context, walletID uuid.UUID, movement Movement) (*models.WalletTransaction, error)
	Debit(ctx context.Context, walletID uuid.UUID, movement Movement) (*models.WalletTransaction, error)
	CreditTx(ctx context.Context, tx *gorm.DB, walletID uuid.UUID, movement Movement) (*models.WalletTransaction, error)
	DebitTx(ctx context.Context, tx *gorm.DB, walletID uuid.UUID, movement Movement) (*models.WalletTransaction, error)

	ApplySaleCommission(ctx context.Context, saleID uuid.UUID) (*CommissionResult, error)
	ApplySaleCommissionTx(ctx context.Context, tx *gorm.DB, saleID uuid.UUID) (*CommissionResult, error)

	ListTransactions(ctx context.Context, walletID uuid.UUID, params pagination.Params) (*ledger.Page, error)
	ReconstructBalance(ctx context.Context, walletID uuid.UUID) (*ledger.Reconstruction, error)
}

type service struct {
	repo   ledger.Repository
	store  ledger.Store
	sales  sales.Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
}

// NewService wires the wallet service.
func NewService(repo ledger.Repository, store ledger.Store, salesRepo sales.Repository, tx txRunner, outbox outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if store == nil {
		return nil, fmt.Errorf("ledger store required")
	}
	if salesRepo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   repo,
		store:  store,
		sales:  salesRepo,
		tx:     tx,
		outbox: outbox,
		logg:   logg,
	}, nil
}

func (s *service) EnsureWallet(ctx context.Context, creatorID uuid.UUID, currency enums.Currency) (*models.Wallet, error) {
	var wallet *models.Wallet
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		wallet, err = s.EnsureWalletTx(ctx, tx, creatorID, currency)
		return err
	})
	if err != nil && db.IsUniqueViolation(err, "ux_wallets_creator_id") {
		return s.GetByCreator(ctx, creatorID)
	}
	return wallet, err
}

// EnsureWalletTx returns the creator's wallet, creating an empty active one on first use.
func (s *service) EnsureWalletTx(ctx context.Context, tx *gorm.DB, creatorID uuid.UUID, currency enums.Currency) (*models.Wallet, error) {
	if creatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "creator id is required")
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid wallet currency")
	}
	repo := s.repo.WithTx(tx)
	existing, err := repo.FindWalletByCreator(ctx, creatorID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}

	wallet := &models.Wallet{
		CreatorID: creatorID,
		Balance:   decimal.Zero,
		Currency:  currency,
		Status:    enums.WalletStatusActive,
	}
	if err := repo.CreateWallet(ctx, wallet); err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithWalletID(ctx, wallet.ID.String()), "wallet created")
	return wallet, nil
}

func (s *service) GetWallet(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error) {
	wallet, err := s.repo.FindWallet(ctx, walletID)
	if err != nil {
		return nil, s.mapLoadError(err, "wallet_id", walletID)
	}
	return wallet, nil
}

func (s *service) GetByCreator(ctx context.Context, creatorID uuid.UUID) (*models.Wallet, error) {
	wallet, err := s.repo.FindWalletByCreator(ctx, creatorID)
	if err != nil {
		return nil, s.mapLoadError(err, "creator_id", creatorID)
	}
	return wallet, nil
}

func (s *service) SetStatus(ctx context.Context, walletID uuid.UUID, status enums.WalletStatus) error {
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid wallet status")
	}
	if err := s.repo.UpdateWalletStatus(ctx, walletID, status); err != nil {
		return s.mapLoadError(err, "wallet_id", walletID)
	}
	s.logg.Info(s.logg.WithField(s.logg.WithWalletID(ctx, walletID.String()), "status", status), "wallet status changed")
	return nil
}

func (s *service) Credit(ctx context.Context, walletID uuid.UUID, movement Movement) (*models.WalletTransaction, error) {
	if !ledger.ValidAmount(movement.Amount) {
		return nil, ledger.InvalidAmountError(movement.Amount)
	}
	var row *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		row, err = s.CreditTx(ctx, tx, walletID, movement)
		return err
	})
	return row, err
}

func (s *service) Debit(ctx context.Context, walletID uuid.UUID, movement Movement) (*models.WalletTransaction, error) {
	if !ledger.ValidAmount(movement.Amount) {
		return nil, ledger.InvalidAmountError(movement.Amount)
	}
	var row *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		row, err = s.DebitTx(ctx, tx, walletID, movement)
		return err
	})
	return row, err
}

func (s *service) CreditTx(ctx context.Context, tx *gorm.DB, walletID uuid.UUID, movement Movement) (*models.WalletTransaction, error) {
	return s.mutate(ctx, tx, walletID, enums.WalletTransactionCredit, movement)
}

func (s *service) DebitTx(ctx context.Context, tx *gorm.DB, walletID uuid.UUID, movement Movement) (*models.WalletTransaction, error) {
	return s.mutate(ctx, tx, walletID, enums.WalletTransactionDebit, movement)
}

func (s *service) mutate(ctx context.Context, tx *gorm.DB, walletID uuid.UUID, kind enums.WalletTransactionType, movement Movement) (*models.WalletTransaction, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if !ledger.ValidAmount(movement.Amount) {
		return nil, ledger.InvalidAmountError(movement.Amount)
	}

	wallet, err := s.repo.WithTx(tx).LockWallet(ctx, walletID)
	if err != nil {
		return nil, s.mapLoadError(err, "wallet_id", walletID)
	}
	// Returning reserved payout funds must succeed even on a frozen wallet.
	releasing := movement.PayoutID != nil && movement.Source.ReleasesReservation()
	if !wallet.IsActive() && !releasing {
		return nil, WalletNotActiveError(wallet.ID, string(wallet.Status))
	}
	return s.appendLocked(ctx, tx, wallet, kind, movement)
}

func (s *service) appendLocked(ctx context.Context, tx *gorm.DB, wallet *models.Wallet, kind enums.WalletTransactionType, movement Movement) (*models.WalletTransaction, error) {
	row, err := s.store.WithTx(tx).Append(ctx, wallet, ledger.Entry{
		Type:      kind,
		Source:    movement.Source,
		Amount:    movement.Amount,
		SaleID:    movement.SaleID,
		PayoutID:  movement.PayoutID,
		Reference: movement.Reference,
		Metadata:  movement.Metadata,
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeAlreadyHandled, err, "ledger entry already recorded")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry")
	}

	fields := map[string]any{
		"wallet_id":      wallet.ID.String(),
		"transaction_id": row.ID.String(),
		"type":           row.Type,
		"source":         row.Source,
		"amount":         row.Amount.StringFixed(2),
		"balance_after":  row.BalanceAfter.StringFixed(2),
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "wallet ledger entry appended")
	return row, nil
}

func (s *service) ApplySaleCommission(ctx context.Context, saleID uuid.UUID) (*CommissionResult, error) {
	var result *CommissionResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = s.ApplySaleCommissionTx(ctx, tx, saleID)
		return err
	})
	if err != nil {
		logCtx := s.logg.WithField(ctx, "sale_id", saleID.String())
		s.logg.Error(logCtx, "sale commission not applied; retry manually", err)
		return nil, err
	}
	return result, nil
}

// ApplySaleCommissionTx credits a sale's creator commission at most once.
func (s *service) ApplySaleCommissionTx(ctx context.Context, tx *gorm.DB, saleID uuid.UUID) (*CommissionResult, error) {
	salesRepo := s.sales.WithTx(tx)
	sale, err := salesRepo.LockByID(ctx, saleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sales.SaleNotFoundError(saleID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}

	result := &CommissionResult{SaleID: sale.ID}
	if sale.IsCommissioned {
		return result, nil
	}
	if !sale.EventType.IsCommissionable() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale event type is not commissionable").
			WithDetails(map[string]any{"sale_id": sale.ID.String(), "event_type": sale.EventType})
	}
	if !sale.CreatorCommission.Valid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale has no creator commission computed").
			WithDetails(map[string]any{"sale_id": sale.ID.String()})
	}

	amount := sale.CreatorCommission.Decimal
	if sale.CreatorID == nil || !amount.IsPositive() {
		if _, err := salesRepo.MarkCommissioned(ctx, sale.ID, nil); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark sale commissioned")
		}
		return result, nil
	}

	wallet, err := s.repo.WithTx(tx).LockWalletByCreator(ctx, *sale.CreatorID)
	if err != nil {
		return nil, s.mapLoadError(err, "creator_id", *sale.CreatorID)
	}
	if !wallet.IsActive() {
		return nil, WalletNotActiveError(wallet.ID, string(wallet.Status))
	}

	saleIDCopy := sale.ID
	ref := sale.TransactionRef
	row, err := s.appendLocked(ctx, tx, wallet, enums.WalletTransactionCredit, Movement{
		Amount:    amount,
		Source:    enums.SourceSaleCommission,
		SaleID:    &saleIDCopy,
		Reference: &ref,
		Metadata: map[string]any{
			"product_code":    sale.ProductCode,
			"event_type":      sale.EventType,
			"transaction_ref": sale.TransactionRef,
		},
	})
	if err != nil {
		return nil, err
	}

	creditedAt := time.Now().UTC()
	updated, err := salesRepo.MarkCommissioned(ctx, sale.ID, &creditedAt)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark sale commissioned")
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "sale commissioned concurrently")
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventSaleCommissionApplied,
		AggregateType: enums.AggregateSale,
		AggregateID:   sale.ID,
		Data: payloads.SaleCommissionAppliedEvent{
			SaleID:         sale.ID,
			CreatorID:      *sale.CreatorID,
			WalletID:       wallet.ID,
			TransactionRef: sale.TransactionRef,
			Amount:         amount,
			Currency:       wallet.Currency,
			CreditedAt:     creditedAt,
		},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit commission event")
	}

	txID := row.ID
	walletID := wallet.ID
	result.Applied = true
	result.Amount = amount
	result.TransactionID = &txID
	result.WalletID = &walletID
	return result, nil
}

func (s *service) ListTransactions(ctx context.Context, walletID uuid.UUID, params pagination.Params) (*ledger.Page, error) {
	page, err := s.store.Page(ctx, walletID, params)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet transactions")
	}
	return page, nil
}

func (s *service) ReconstructBalance(ctx context.Context, walletID uuid.UUID) (*ledger.Reconstruction, error) {
	result, err := s.store.Reconstruct(ctx, walletID)
	if err != nil {
		return nil, s.mapLoadError(err, "wallet_id", walletID)
	}
	return result, nil
}

func (s *service) mapLoadError(err error, field string, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return WalletNotFoundError(field, id)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
}
