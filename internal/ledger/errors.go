package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
)

// ErrConcurrentUpdate means the wallet version moved between lock and write,
// which only happens when a caller bypassed the row lock.
var ErrConcurrentUpdate = pkgerrors.New(pkgerrors.CodeConflict, "wallet was modified concurrently")

// InvalidAmountError rejects non-positive or sub-cent amounts.
func InvalidAmountError(amount decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive with at most two decimals").
		WithDetails(map[string]any{"amount": amount.String()})
}

// InsufficientBalanceError reports a debit larger than the locked balance.
func InsufficientBalanceError(walletID uuid.UUID, balance, amount decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "insufficient wallet balance").
		WithDetails(map[string]any{
			"wallet_id": walletID.String(),
			"balance":   balance.StringFixed(2),
			"requested": amount.StringFixed(2),
		})
}

// ValidAmount reports whether amount is a positive value with at most cent precision.
func ValidAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Round(2))
}
