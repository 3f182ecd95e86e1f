package payouts

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tripcreators/creator-wallet/internal/ledger"
	"github.com/tripcreators/creator-wallet/pkg/db/models"
	"github.com/tripcreators/creator-wallet/pkg/enums"
	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
)

// Threshold is the effective payout bound.
type Threshold struct {
	Minimum    decimal.Decimal
	Maximum    decimal.NullDecimal
	Currency   enums.Currency
	Configured bool
}

// ThresholdInput replaces the active threshold.
type ThresholdInput struct {
	Minimum  decimal.Decimal
	Maximum  decimal.NullDecimal
	Currency enums.Currency
	SetBy    *uuid.UUID
}

// GetThreshold returns the active row, falling back to the configured minimum.
func (s *service) GetThreshold(ctx context.Context) (Threshold, error) {
	row, err := s.repo.ActiveThreshold(ctx)
	if err != nil {
		return Threshold{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout threshold")
	}
	if row == nil {
		return Threshold{Minimum: s.defaultMinimum}, nil
	}
	return Threshold{
		Minimum:    row.MinimumAmount,
		Maximum:    row.MaximumAmount,
		Currency:   row.Currency,
		Configured: true,
	}, nil
}

func (s *service) SetPayoutThreshold(ctx context.Context, input ThresholdInput) (*models.PayoutThreshold, error) {
	if input.Minimum.IsNegative() || !input.Minimum.Equal(input.Minimum.Round(2)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum must be a non-negative amount in cents")
	}
	if input.Maximum.Valid {
		if !ledger.ValidAmount(input.Maximum.Decimal) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "maximum must be a positive amount in cents")
		}
		if input.Maximum.Decimal.LessThan(input.Minimum) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "maximum must not be below minimum")
		}
	}
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyUSD
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}

	threshold := &models.PayoutThreshold{
		MinimumAmount: input.Minimum,
		MaximumAmount: input.Maximum,
		Currency:      currency,
		SetBy:         input.SetBy,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).ReplaceThreshold(ctx, threshold)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store payout threshold")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"minimum": threshold.MinimumAmount.StringFixed(2),
		"maximum": threshold.MaximumAmount,
	}), "payout threshold updated")
	return threshold, nil
}
