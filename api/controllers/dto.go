package controllers

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/tripcreators/creator-wallet/internal/accounts"
	"github.com/tripcreators/creator-wallet/internal/commission"
	"github.com/tripcreators/creator-wallet/internal/payouts"
	"github.com/tripcreators/creator-wallet/pkg/db/models"
)

// PayoutDTO is the public shape of a payout.
type PayoutDTO struct {
	ID               uuid.UUID  `json:"id"`
	CreatorID        uuid.UUID  `json:"creator_id"`
	WalletID         uuid.UUID  `json:"wallet_id"`
	Amount           string     `json:"amount"`
	Currency         string     `json:"currency"`
	Method           string     `json:"method"`
	Status           string     `json:"status"`
	TransferID       *string    `json:"transfer_id,omitempty"`
	ProviderPayoutID *string    `json:"provider_payout_id,omitempty"`
	FailureReason    *string    `json:"failure_reason,omitempty"`
	ApprovedBy       *uuid.UUID `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	RequestedAt      time.Time  `json:"requested_at"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	FailedAt         *time.Time `json:"failed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toPayoutDTO(p *models.Payout) PayoutDTO {
	return PayoutDTO{
		ID:               p.ID,
		CreatorID:        p.CreatorID,
		WalletID:         p.WalletID,
		Amount:           p.Amount.StringFixed(2),
		Currency:         string(p.Currency),
		Method:           string(p.Method),
		Status:           string(p.Status),
		TransferID:       p.TransferID,
		ProviderPayoutID: p.ProviderPayoutID,
		FailureReason:    p.FailureReason,
		ApprovedBy:       p.ApprovedBy,
		ApprovedAt:       p.ApprovedAt,
		RequestedAt:      p.RequestedAt,
		PaidAt:           p.PaidAt,
		FailedAt:         p.FailedAt,
		CreatedAt:        p.CreatedAt,
	}
}

// PayoutListDTO is one page of a creator's payout history.
type PayoutListDTO struct {
	Payouts    []PayoutDTO `json:"payouts"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

func toPayoutListDTO(list *payouts.ListResult) PayoutListDTO {
	out := PayoutListDTO{Payouts: make([]PayoutDTO, 0, len(list.Payouts)), NextCursor: list.NextCursor}
	for i := range list.Payouts {
		out.Payouts = append(out.Payouts, toPayoutDTO(&list.Payouts[i]))
	}
	return out
}

// TransactionDTO is one ledger entry as shown to the creator.
type TransactionDTO struct {
	ID            uuid.UUID       `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Amount        string          `json:"amount"`
	BalanceBefore string          `json:"balance_before"`
	BalanceAfter  string          `json:"balance_after"`
	Status        string          `json:"status"`
	SaleID        *uuid.UUID      `json:"sale_id,omitempty"`
	PayoutID      *uuid.UUID      `json:"payout_id,omitempty"`
	Reference     *string         `json:"reference,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TransactionListDTO is one page of ledger entries.
type TransactionListDTO struct {
	Transactions []TransactionDTO `json:"transactions"`
	NextCursor   string           `json:"next_cursor,omitempty"`
}

func toTransactionDTO(t models.WalletTransaction) TransactionDTO {
	return TransactionDTO{
		ID:            t.ID,
		Type:          string(t.Type),
		Source:        string(t.Source),
		Amount:        t.Amount.StringFixed(2),
		BalanceBefore: t.BalanceBefore.StringFixed(2),
		BalanceAfter:  t.BalanceAfter.StringFixed(2),
		Status:        string(t.Status),
		SaleID:        t.SaleID,
		PayoutID:      t.PayoutID,
		Reference:     t.Reference,
		Metadata:      t.Metadata,
		CreatedAt:     t.CreatedAt,
	}
}

// WalletSummaryDTO is the creator earnings dashboard.
type WalletSummaryDTO struct {
	WalletID         uuid.UUID `json:"wallet_id"`
	Currency         string    `json:"currency"`
	WalletStatus     string    `json:"wallet_status"`
	AvailableBalance string    `json:"available_balance"`
	PendingPayouts   string    `json:"pending_payouts"`
	TotalPaid        string    `json:"total_paid"`
	PaidThisMonth    string    `json:"paid_this_month"`
	PaidLastMonth    string    `json:"paid_last_month"`
	PercentChange    string    `json:"percent_change"`
	TotalEarned      string    `json:"total_earned"`
	Reconciled       bool      `json:"reconciled"`
}

func toWalletSummaryDTO(s *payouts.WalletSummary) WalletSummaryDTO {
	return WalletSummaryDTO{
		WalletID:         s.WalletID,
		Currency:         string(s.Currency),
		WalletStatus:     string(s.WalletStatus),
		AvailableBalance: s.AvailableBalance.StringFixed(2),
		PendingPayouts:   s.PendingPayouts.StringFixed(2),
		TotalPaid:        s.TotalPaid.StringFixed(2),
		PaidThisMonth:    s.PaidThisMonth.StringFixed(2),
		PaidLastMonth:    s.PaidLastMonth.StringFixed(2),
		PercentChange:    s.PercentChange.StringFixed(2),
		TotalEarned:      s.TotalEarned.StringFixed(2),
		Reconciled:       s.Reconciled,
	}
}

// OnboardingDTO carries the hosted onboarding link.
type OnboardingDTO struct {
	StripeAccountID string `json:"stripe_account_id"`
	PayoutsEnabled  bool   `json:"payouts_enabled"`
	URL             string `json:"url"`
}

func toOnboardingDTO(o *accounts.Onboarding) OnboardingDTO {
	out := OnboardingDTO{URL: o.URL}
	if o.Account != nil {
		out.PayoutsEnabled = o.Account.PayoutsEnabled
		if o.Account.StripeAccountID != nil {
			out.StripeAccountID = *o.Account.StripeAccountID
		}
	}
	return out
}

// CommissionSettingDTO is the active global rate.
type CommissionSettingDTO struct {
	ID        uuid.UUID  `json:"id"`
	Percent   string     `json:"percent"`
	Active    bool       `json:"active"`
	SetBy     *uuid.UUID `json:"set_by,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func toCommissionSettingDTO(s *models.CommissionSetting) CommissionSettingDTO {
	return CommissionSettingDTO{
		ID:        s.ID,
		Percent:   s.GlobalCreatorCommissionPercent.StringFixed(2),
		Active:    s.Active,
		SetBy:     s.SetBy,
		UpdatedAt: s.UpdatedAt,
	}
}

// OverrideDTO is one creator commission override window.
type OverrideDTO struct {
	ID            uuid.UUID  `json:"id"`
	CreatorID     uuid.UUID  `json:"creator_id"`
	Percent       string     `json:"percent"`
	EffectiveFrom time.Time  `json:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty"`
}

func toOverrideDTO(o *models.CreatorCommissionOverride) OverrideDTO {
	return OverrideDTO{
		ID:            o.ID,
		CreatorID:     o.CreatorID,
		Percent:       o.Percent.StringFixed(2),
		EffectiveFrom: o.EffectiveFrom,
		EffectiveTo:   o.EffectiveTo,
	}
}

// SaleCommissionDTO reports the commission applied to one sale.
type SaleCommissionDTO struct {
	SaleID             uuid.UUID  `json:"sale_id"`
	TransactionRef     string     `json:"transaction_ref"`
	Status             string     `json:"status"`
	PlatformCommission string     `json:"platform_commission"`
	CreatorCommission  string     `json:"creator_commission"`
	Percent            string     `json:"percent"`
	RateSource         string     `json:"rate_source"`
	Credited           bool       `json:"credited"`
	TransactionID      *uuid.UUID `json:"transaction_id,omitempty"`
	CommissionPending  bool       `json:"commission_pending,omitempty"`
	CommissionError    string     `json:"commission_error,omitempty"`
}

func toSaleCommissionDTO(c *commission.SaleCommission) SaleCommissionDTO {
	out := SaleCommissionDTO{
		PlatformCommission: c.Result.PlatformCommission.StringFixed(2),
		CreatorCommission:  c.Result.CreatorCommission.StringFixed(2),
		Percent:            c.Result.Percent.StringFixed(2),
		RateSource:         string(c.Rate.Source),
	}
	if c.Sale != nil {
		out.SaleID = c.Sale.ID
		out.TransactionRef = c.Sale.TransactionRef
		out.Status = string(c.Sale.Status)
	}
	if c.Commission != nil {
		out.Credited = c.Commission.Applied
		out.TransactionID = c.Commission.TransactionID
	}
	if c.CommissionFailure != "" {
		out.CommissionPending = true
		out.CommissionError = string(c.CommissionFailure)
	}
	return out
}

// ThresholdDTO is the active payout threshold.
type ThresholdDTO struct {
	ID            uuid.UUID `json:"id"`
	MinimumAmount string    `json:"minimum_amount"`
	MaximumAmount *string   `json:"maximum_amount,omitempty"`
	Currency      string    `json:"currency"`
	IsActive      bool      `json:"is_active"`
}

func toThresholdDTO(t *models.PayoutThreshold) ThresholdDTO {
	out := ThresholdDTO{
		ID:            t.ID,
		MinimumAmount: t.MinimumAmount.StringFixed(2),
		Currency:      string(t.Currency),
		IsActive:      t.IsActive,
	}
	if t.MaximumAmount.Valid {
		v := t.MaximumAmount.Decimal.StringFixed(2)
		out.MaximumAmount = &v
	}
	return out
}
