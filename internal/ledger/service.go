package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tripcreators/creator-wallet/pkg/db/models"
	"github.com/tripcreators/creator-wallet/pkg/enums"
	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
	"github.com/tripcreators/creator-wallet/pkg/pagination"
)

// Entry describes one balance movement to append to a wallet's ledger.
type Entry struct {
	Type      enums.WalletTransactionType
	Source    enums.WalletTransactionSource
	Amount    decimal.Decimal
	SaleID    *uuid.UUID
	PayoutID  *uuid.UUID
	Reference *string
	Metadata  map[string]any
}

// Store is the append-only ledger plus the per-wallet balance projection.
// Append expects the wallet to be locked by the caller's transaction.
type Store interface {
	WithTx(tx *gorm.DB) Store
	Append(ctx context.Context, wallet *models.Wallet, entry Entry) (*models.WalletTransaction, error)
	Entries(ctx context.Context, walletID uuid.UUID) ([]models.WalletTransaction, error)
	Page(ctx context.Context, walletID uuid.UUID, params pagination.Params) (*Page, error)
	Reconstruct(ctx context.Context, walletID uuid.UUID) (*Reconstruction, error)
}

// Page is one page of ledger entries, newest first.
type Page struct {
	Entries    []models.WalletTransaction
	NextCursor string
}

type store struct {
	repo Repository
}

// NewStore wires a ledger store over the provided repository.
func NewStore(repo Repository) (Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &store{repo: repo}, nil
}

func (s *store) WithTx(tx *gorm.DB) Store {
	return &store{repo: s.repo.WithTx(tx)}
}

func (s *store) Append(ctx context.Context, wallet *models.Wallet, entry Entry) (*models.WalletTransaction, error) {
	if wallet == nil {
		return nil, fmt.Errorf("wallet required")
	}
	if !ValidAmount(entry.Amount) {
		return nil, InvalidAmountError(entry.Amount)
	}
	if !entry.Source.IsValid() {
		return nil, fmt.Errorf("invalid wallet transaction source %q", entry.Source)
	}

	before := wallet.Balance
	var after decimal.Decimal
	switch entry.Type {
	case enums.WalletTransactionCredit:
		after = before.Add(entry.Amount)
	case enums.WalletTransactionDebit:
		after = before.Sub(entry.Amount)
		if after.IsNegative() {
			return nil, InsufficientBalanceError(wallet.ID, before, entry.Amount)
		}
	default:
		return nil, fmt.Errorf("unsupported ledger entry type %q", entry.Type)
	}

	metadata, err := encodeMetadata(entry.Metadata)
	if err != nil {
		return nil, err
	}

	version := wallet.Version + 1
	row := &models.WalletTransaction{
		WalletID:      wallet.ID,
		Sequence:      version,
		Type:          entry.Type,
		Source:        entry.Source,
		Amount:        entry.Amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Status:        enums.WalletTransactionCompleted,
		SaleID:        entry.SaleID,
		PayoutID:      entry.PayoutID,
		Reference:     entry.Reference,
		Metadata:      metadata,
	}
	if err := s.repo.AppendEntry(ctx, row); err != nil {
		return nil, fmt.Errorf("append ledger entry: %w", err)
	}

	updated, err := s.repo.SaveBalance(ctx, wallet.ID, after, version, wallet.Version)
	if err != nil {
		return nil, fmt.Errorf("save wallet balance: %w", err)
	}
	if !updated {
		return nil, ErrConcurrentUpdate
	}

	wallet.Balance = after
	wallet.Version = version
	return row, nil
}

func (s *store) Entries(ctx context.Context, walletID uuid.UUID) ([]models.WalletTransaction, error) {
	return s.repo.ListEntries(ctx, walletID)
}

func (s *store) Page(ctx context.Context, walletID uuid.UUID, params pagination.Params) (*Page, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.PageEntries(ctx, walletID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, err
	}

	page := &Page{}
	page.Entries, page.NextCursor = pagination.Trim(rows, params.Limit, func(e models.WalletTransaction) pagination.Cursor {
		return pagination.Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
	})
	return page, nil
}

func encodeMetadata(metadata map[string]any) (json.RawMessage, error) {
	if len(metadata) == 0 {
		return json.RawMessage(`{}`), nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode ledger metadata: %w", err)
	}
	return raw, nil
}
