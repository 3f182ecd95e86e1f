package commission

import (
	"github.com/shopspring/decimal"

	"github.com/tripcreators/creator-wallet/pkg/enums"
	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// ErrNotCommissionable is returned for sale events that never earn commission.
var ErrNotCommissionable = pkgerrors.New(pkgerrors.CodeValidation, "sale event type is not commissionable")

// Input is the part of a sale the calculator looks at.
type Input struct {
	EventType          enums.SaleEventType
	PlatformCommission decimal.Decimal
}

// Result is the computed commission split. PlatformCommission is the rounded
// value stored on the sale.
type Result struct {
	PlatformCommission decimal.Decimal
	CreatorCommission  decimal.Decimal
	Percent            decimal.Decimal
}

// RoundMoney rounds half-up to cents. Amounts are never negative here, so
// half away from zero and half-up agree.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// Calculate derives the creator's share from the raw platform commission.
// The creator amount is rounded once, from the unrounded product.
func Calculate(input Input, percent decimal.Decimal) (Result, error) {
	if !input.EventType.IsCommissionable() {
		return Result{}, ErrNotCommissionable
	}
	if err := ValidatePercent(percent); err != nil {
		return Result{}, err
	}
	if input.PlatformCommission.IsNegative() {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "platform commission must not be negative")
	}

	creator := RoundMoney(input.PlatformCommission.Mul(percent).Div(hundred))
	return Result{
		PlatformCommission: RoundMoney(input.PlatformCommission),
		CreatorCommission:  creator,
		Percent:            percent,
	}, nil
}

// ValidatePercent accepts 0-100 with at most two decimals.
func ValidatePercent(percent decimal.Decimal) error {
	if percent.IsNegative() || percent.GreaterThan(hundred) || !percent.Equal(percent.Round(2)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "percent must be between 0 and 100 with at most two decimals").
			WithDetails(map[string]any{"percent": percent.String()})
	}
	return nil
}
