package payouts

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripcreators/creator-wallet/internal/commission"
	"github.com/tripcreators/creator-wallet/pkg/enums"
	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// WalletSummary is a creator's earnings overview.
type WalletSummary struct {
	WalletID         uuid.UUID
	Currency         enums.Currency
	WalletStatus     enums.WalletStatus
	AvailableBalance decimal.Decimal
	PendingPayouts   decimal.Decimal
	TotalPaid        decimal.Decimal
	PaidThisMonth    decimal.Decimal
	PaidLastMonth    decimal.Decimal
	PercentChange    decimal.Decimal
	TotalEarned      decimal.Decimal
	// Reconciled is true when available + pending + paid equals the net of
	// every ledger movement not tied to a payout.
	Reconciled bool
}

func (s *service) GetWalletSummary(ctx context.Context, creatorID uuid.UUID) (*WalletSummary, error) {
	wallet, err := s.wallets.GetByCreator(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	pending, err := s.repo.SumAmount(ctx, creatorID, enums.PendingPayoutStatuses)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum pending payouts")
	}
	paid, err := s.repo.SumAmount(ctx, creatorID, []enums.PayoutStatus{enums.PayoutStatusPaid})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum paid payouts")
	}

	now := s.now().UTC()
	thisMonth := startOfMonth(now)
	lastMonth := thisMonth.AddDate(0, -1, 0)
	paidThisMonth, err := s.repo.SumPaidBetween(ctx, creatorID, thisMonth, thisMonth.AddDate(0, 1, 0))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum paid this month")
	}
	paidLastMonth, err := s.repo.SumPaidBetween(ctx, creatorID, lastMonth, thisMonth)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum paid last month")
	}

	earned, err := s.ledger.SumBySource(ctx, wallet.ID, enums.SourceSaleCommission)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum commission earned")
	}
	credited, err := s.ledger.NetOutsidePayouts(ctx, wallet.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum ledger movements")
	}

	return &WalletSummary{
		WalletID:         wallet.ID,
		Currency:         wallet.Currency,
		WalletStatus:     wallet.Status,
		AvailableBalance: wallet.Balance,
		PendingPayouts:   pending,
		TotalPaid:        paid,
		PaidThisMonth:    paidThisMonth,
		PaidLastMonth:    paidLastMonth,
		PercentChange:    percentChange(paidThisMonth, paidLastMonth),
		TotalEarned:      earned,
		Reconciled:       wallet.Balance.Add(pending).Add(paid).Equal(credited),
	}, nil
}

// percentChange is zero when there is nothing to compare against.
func percentChange(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return decimal.Zero
	}
	return commission.RoundMoney(current.Sub(previous).Div(previous).Mul(hundred))
}
