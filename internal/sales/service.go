package sales

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tripcreators/creator-wallet/pkg/db"
	"github.com/tripcreators/creator-wallet/pkg/db/models"
	"github.com/tripcreators/creator-wallet/pkg/enums"
	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// UpsertSaleInput is one booking event as reported by the travel provider.
type UpsertSaleInput struct {
	TransactionRef     string
	BookingRef         string
	EventType          string
	ProductID          *uuid.UUID
	ProductCode        string
	CreatorID          *uuid.UUID
	CampaignValue      *string
	TravelDate         *time.Time
	Price              decimal.NullDecimal
	PlatformCommission decimal.NullDecimal
	Currency           string
	RawPayload         json.RawMessage
}

// UpsertResult reports the stored sale and whether the row was new.
type UpsertResult struct {
	Sale    *models.Sale
	Created bool
}

// Service is the ingestion surface for sale events.
type Service interface {
	UpsertSale(ctx context.Context, input UpsertSaleInput) (*UpsertResult, error)
	UpsertSaleTx(ctx context.Context, tx *gorm.DB, input UpsertSaleInput) (*UpsertResult, error)
	GetSale(ctx context.Context, saleID uuid.UUID) (*models.Sale, error)
}

type service struct {
	repo            Repository
	tx              txRunner
	defaultCurrency enums.Currency
}

// NewService builds the sale ingestion service.
func NewService(repo Repository, tx txRunner, defaultCurrency enums.Currency) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if !defaultCurrency.IsValid() {
		defaultCurrency = enums.CurrencyUSD
	}
	return &service{repo: repo, tx: tx, defaultCurrency: defaultCurrency}, nil
}

func (s *service) UpsertSale(ctx context.Context, input UpsertSaleInput) (*UpsertResult, error) {
	var result *UpsertResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = s.UpsertSaleTx(ctx, tx, input)
		return err
	})
	return result, err
}

// UpsertSaleTx inserts or updates the sale identified by the transaction
// reference. Commission fields of an already commissioned sale are frozen.
func (s *service) UpsertSaleTx(ctx context.Context, tx *gorm.DB, input UpsertSaleInput) (*UpsertResult, error) {
	normalized, err := s.normalize(input)
	if err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)

	existing, err := repo.LockByTransactionRef(ctx, normalized.TransactionRef)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}
	if existing == nil {
		sale := &models.Sale{TransactionRef: normalized.TransactionRef}
		applyInput(sale, normalized)
		if err := repo.Create(ctx, sale); err != nil {
			if db.IsUniqueViolation(err, "ux_sales_transaction_ref") {
				return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "sale already ingested concurrently")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert sale")
		}
		return &UpsertResult{Sale: sale, Created: true}, nil
	}

	applyInput(existing, normalized)
	if err := repo.Save(ctx, existing); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update sale")
	}
	return &UpsertResult{Sale: existing}, nil
}

func (s *service) GetSale(ctx context.Context, saleID uuid.UUID) (*models.Sale, error) {
	sale, err := s.repo.FindByID(ctx, saleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, SaleNotFoundError(saleID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}
	return sale, nil
}

type normalizedInput struct {
	UpsertSaleInput
	eventType enums.SaleEventType
	currency  enums.Currency
}

func (s *service) normalize(input UpsertSaleInput) (normalizedInput, error) {
	out := normalizedInput{UpsertSaleInput: input}
	out.TransactionRef = strings.TrimSpace(input.TransactionRef)
	out.BookingRef = strings.TrimSpace(input.BookingRef)
	out.ProductCode = strings.TrimSpace(input.ProductCode)
	if out.TransactionRef == "" {
		return out, pkgerrors.New(pkgerrors.CodeValidation, "transaction_ref is required")
	}
	if out.BookingRef == "" {
		return out, pkgerrors.New(pkgerrors.CodeValidation, "booking_ref is required")
	}

	eventType, err := enums.ParseSaleEventType(input.EventType)
	if err != nil {
		return out, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event_type")
	}
	out.eventType = eventType

	out.currency = s.defaultCurrency
	if strings.TrimSpace(input.Currency) != "" {
		currency, err := enums.ParseCurrency(input.Currency)
		if err != nil {
			return out, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency")
		}
		out.currency = currency
	}

	if input.Price.Valid && input.Price.Decimal.IsNegative() {
		return out, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if input.PlatformCommission.Valid && input.PlatformCommission.Decimal.IsNegative() {
		return out, pkgerrors.New(pkgerrors.CodeValidation, "platform_commission must not be negative")
	}
	return out, nil
}

func applyInput(sale *models.Sale, input normalizedInput) {
	sale.BookingRef = input.BookingRef
	sale.EventType = input.eventType
	sale.Status = enums.SaleStatusForEvent(input.eventType)
	sale.ProductID = input.ProductID
	sale.ProductCode = input.ProductCode
	sale.CampaignValue = input.CampaignValue
	sale.TravelDate = input.TravelDate
	sale.Currency = input.currency
	if input.Price.Valid {
		sale.Price = decimal.NewNullDecimal(input.Price.Decimal.Round(2))
	}
	if len(input.RawPayload) > 0 {
		sale.RawPayload = input.RawPayload
	}
	if sale.IsCommissioned {
		return
	}
	sale.CreatorID = input.CreatorID
	if input.PlatformCommission.Valid {
		sale.PlatformCommission = decimal.NewNullDecimal(input.PlatformCommission.Decimal.Round(2))
	}
}

// SaleNotFoundError reports an unknown sale id.
func SaleNotFoundError(saleID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "sale not found").
		WithDetails(map[string]any{"sale_id": saleID.String()})
}
