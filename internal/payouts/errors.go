package payouts

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripcreators/creator-wallet/pkg/db/models"
	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
)

func payoutNotFoundError(payoutID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "payout not found").
		WithDetails(map[string]any{"payout_id": payoutID.String()})
}

// AlreadyHandledError reports a payout that left the state an operation requires.
func AlreadyHandledError(payout *models.Payout) error {
	return pkgerrors.New(pkgerrors.CodeAlreadyHandled, "payout already handled").
		WithDetails(map[string]any{"payout_id": payout.ID.String(), "status": payout.Status})
}

// PayoutAccountNotReadyError reports a creator without an enabled connected account.
func PayoutAccountNotReadyError(creatorID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodePayoutAccountNotReady, "payout account is not ready").
		WithDetails(map[string]any{"creator_id": creatorID.String()})
}

// BelowMinimumError reports a request under the active minimum.
func BelowMinimumError(amount, minimum decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "amount is below the payout minimum").
		WithDetails(map[string]any{"reason": "below_minimum", "amount": amount.StringFixed(2), "minimum": minimum.StringFixed(2)})
}

// AboveMaximumError reports a request over the active maximum.
func AboveMaximumError(amount, maximum decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "amount is above the payout maximum").
		WithDetails(map[string]any{"reason": "above_maximum", "amount": amount.StringFixed(2), "maximum": maximum.StringFixed(2)})
}

func stateConflictError(payout *models.Payout, action string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "payout cannot "+action+" from its current status").
		WithDetails(map[string]any{"payout_id": payout.ID.String(), "status": payout.Status})
}
