package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripcreators/creator-wallet/pkg/enums"
)

// Reconstruction replays a wallet's ledger and compares it with the projection.
type Reconstruction struct {
	WalletID   uuid.UUID
	Projected  decimal.Decimal
	Replayed   decimal.Decimal
	Credits    decimal.Decimal
	Debits     decimal.Decimal
	EntryCount int
	Breaks     []string
}

// Drift is projected minus replayed balance.
func (r Reconstruction) Drift() decimal.Decimal {
	return r.Projected.Sub(r.Replayed)
}

// Consistent reports whether the projection matches the ledger and the chain is unbroken.
func (r Reconstruction) Consistent() bool {
	return r.Drift().IsZero() && len(r.Breaks) == 0
}

func (s *store) Reconstruct(ctx context.Context, walletID uuid.UUID) (*Reconstruction, error) {
	wallet, err := s.repo.FindWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListEntries(ctx, walletID)
	if err != nil {
		return nil, err
	}

	result := &Reconstruction{
		WalletID:   walletID,
		Projected:  wallet.Balance,
		Replayed:   decimal.Zero,
		Credits:    decimal.Zero,
		Debits:     decimal.Zero,
		EntryCount: len(entries),
	}

	running := decimal.Zero
	for i, entry := range entries {
		if entry.Sequence != int64(i+1) {
			result.Breaks = append(result.Breaks, fmt.Sprintf("entry %s: sequence %d, expected %d", entry.ID, entry.Sequence, i+1))
		}
		if !entry.BalanceBefore.Equal(running) {
			result.Breaks = append(result.Breaks, fmt.Sprintf("entry %s: balance_before %s, expected %s", entry.ID, entry.BalanceBefore.StringFixed(2), running.StringFixed(2)))
		}

		switch entry.Type {
		case enums.WalletTransactionCredit:
			result.Credits = result.Credits.Add(entry.Amount)
		case enums.WalletTransactionDebit:
			result.Debits = result.Debits.Add(entry.Amount)
		}

		running = running.Add(entry.SignedAmount())
		if !entry.BalanceAfter.Equal(running) {
			result.Breaks = append(result.Breaks, fmt.Sprintf("entry %s: balance_after %s, expected %s", entry.ID, entry.BalanceAfter.StringFixed(2), running.StringFixed(2)))
		}
		if running.IsNegative() {
			result.Breaks = append(result.Breaks, fmt.Sprintf("entry %s: balance went negative", entry.ID))
		}
	}

	result.Replayed = running
	if wallet.Version != int64(len(entries)) {
		result.Breaks = append(result.Breaks, fmt.Sprintf("wallet version %d, ledger has %d entries", wallet.Version, len(entries)))
	}
	return result, nil
}
