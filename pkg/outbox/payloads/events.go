package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripcreators/creator-wallet/pkg/enums"
)

// PayoutRequestedEvent records that a creator reserved funds for withdrawal.
type PayoutRequestedEvent struct {
	PayoutID    uuid.UUID       `json:"payout_id"`
	CreatorID   uuid.UUID       `json:"creator_id"`
	WalletID    uuid.UUID       `json:"wallet_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    enums.Currency  `json:"currency"`
	RequestedAt time.Time       `json:"requested_at"`
}

// PayoutApprovedEvent asks the settlement worker to move the funds.
type PayoutApprovedEvent struct {
	PayoutID   uuid.UUID       `json:"payout_id"`
	CreatorID  uuid.UUID       `json:"creator_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   enums.Currency  `json:"currency"`
	ApprovedBy *uuid.UUID      `json:"approved_by,omitempty"`
	ApprovedAt time.Time       `json:"approved_at"`
}

// PayoutPaidEvent is emitted once the provider confirms the bank payout.
type PayoutPaidEvent struct {
	PayoutID         uuid.UUID       `json:"payout_id"`
	CreatorID        uuid.UUID       `json:"creator_id"`
	Amount           decimal.Decimal `json:"amount"`
	ProviderPayoutID string          `json:"provider_payout_id,omitempty"`
	PaidAt           time.Time       `json:"paid_at"`
}

// PayoutFailedEvent is emitted when a payout fails or is cancelled and the
// reserved amount went back to the wallet.
type PayoutFailedEvent struct {
	PayoutID  uuid.UUID          `json:"payout_id"`
	CreatorID uuid.UUID          `json:"creator_id"`
	Amount    decimal.Decimal    `json:"amount"`
	Status    enums.PayoutStatus `json:"status"`
	Reason    string             `json:"reason,omitempty"`
	FailedAt  time.Time          `json:"failed_at"`
}

// SaleCommissionAppliedEvent is emitted when a sale's commission lands in a wallet.
type SaleCommissionAppliedEvent struct {
	SaleID         uuid.UUID       `json:"sale_id"`
	CreatorID      uuid.UUID       `json:"creator_id"`
	WalletID       uuid.UUID       `json:"wallet_id"`
	TransactionRef string          `json:"transaction_ref"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       enums.Currency  `json:"currency"`
	CreditedAt     time.Time       `json:"credited_at"`
}
