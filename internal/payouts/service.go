package payouts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tripcreators/creator-wallet/internal/accounts"
	"github.com/tripcreators/creator-wallet/internal/ledger"
	"github.com/tripcreators/creator-wallet/internal/wallets"
	"github.com/tripcreators/creator-wallet/pkg/db/models"
	"github.com/tripcreators/creator-wallet/pkg/enums"
	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
	"github.com/tripcreators/creator-wallet/pkg/logger"
	"github.com/tripcreators/creator-wallet/pkg/outbox"
	"github.com/tripcreators/creator-wallet/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type walletLedger interface {
	GetByCreator(ctx context.Context, creatorID uuid.UUID) (*models.Wallet, error)
	CreditTx(ctx context.Context, tx *gorm.DB, walletID uuid.UUID, movement wallets.Movement) (*models.WalletTransaction, error)
	DebitTx(ctx context.Context, tx *gorm.DB, walletID uuid.UUID, movement wallets.Movement) (*models.WalletTransaction, error)
}

type ledgerSums interface {
	SumBySource(ctx context.Context, walletID uuid.UUID, source enums.WalletTransactionSource) (decimal.Decimal, error)
	NetOutsidePayouts(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error)
}

// ServiceParams wires the payout service.
type ServiceParams struct {
	Repo           Repository
	Wallets        walletLedger
	Ledger         ledgerSums
	Accounts       accounts.Repository
	Tx             txRunner
	Outbox         outbox.Emitter
	DefaultMinimum decimal.Decimal
	Logger         *logger.Logger
}

// Service owns the payout lifecycle from request to a terminal state.
type Service interface {
	RequestPayout(ctx context.Context, creatorID uuid.UUID, amount decimal.Decimal) (*models.Payout, error)
	ApprovePayout(ctx context.Context, payoutID, adminID uuid.UUID) (*models.Payout, error)
	RejectPayout(ctx context.Context, payoutID, adminID uuid.UUID, reason string) (*models.Payout, error)
	MarkFailed(ctx context.Context, payoutID uuid.UUID, reason string) (*models.Payout, error)
	MarkCanceled(ctx context.Context, payoutID uuid.UUID, reason string) (*models.Payout, error)
	MarkPaid(ctx context.Context, payoutID uuid.UUID, paidAt time.Time) (*models.Payout, error)
	RetrySettlement(ctx context.Context, payoutID uuid.UUID) (bool, error)
	RecordTransfer(ctx context.Context, payoutID uuid.UUID, transferID string) (*models.Payout, error)
	RecordProviderPayout(ctx context.Context, payoutID uuid.UUID, providerPayoutID string) (*models.Payout, error)

	GetPayout(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error)
	FindByProviderPayoutID(ctx context.Context, providerPayoutID string) (*models.Payout, error)
	ListPayouts(ctx context.Context, creatorID uuid.UUID, filter ListFilter) (*ListResult, error)
	ListStuck(ctx context.Context, olderThan time.Duration, limit int) ([]models.Payout, error)
	GetWalletSummary(ctx context.Context, creatorID uuid.UUID) (*WalletSummary, error)

	GetThreshold(ctx context.Context) (Threshold, error)
	SetPayoutThreshold(ctx context.Context, input ThresholdInput) (*models.PayoutThreshold, error)
}

type service struct {
	repo           Repository
	wallets        walletLedger
	ledger         ledgerSums
	accounts       accounts.Repository
	tx             txRunner
	outbox         outbox.Emitter
	defaultMinimum decimal.Decimal
	logg           *logger.Logger
	now            func() time.Time
}

// NewService validates dependencies and returns the payout service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("payout repository required")
	case params.Wallets == nil:
		return nil, fmt.Errorf("wallet service required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("ledger repository required")
	case params.Accounts == nil:
		return nil, fmt.Errorf("account repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.DefaultMinimum.IsNegative():
		return nil, fmt.Errorf("default payout minimum must not be negative")
	}
	return &service{
		repo:           params.Repo,
		wallets:        params.Wallets,
		ledger:         params.Ledger,
		accounts:       params.Accounts,
		tx:             params.Tx,
		outbox:         params.Outbox,
		defaultMinimum: params.DefaultMinimum,
		logg:           params.Logger,
		now:            time.Now,
	}, nil
}

// RequestPayout reserves funds for a withdrawal. Preconditions are checked in
// order; the locked debit is the authoritative balance check.
func (s *service) RequestPayout(ctx context.Context, creatorID uuid.UUID, amount decimal.Decimal) (*models.Payout, error) {
	if !ledger.ValidAmount(amount) {
		return nil, ledger.InvalidAmountError(amount)
	}
	wallet, err := s.wallets.GetByCreator(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if !wallet.IsActive() {
		return nil, wallets.WalletNotActiveError(wallet.ID, string(wallet.Status))
	}
	if err := s.requireAccountReady(ctx, s.accounts, creatorID); err != nil {
		return nil, err
	}
	threshold, err := s.GetThreshold(ctx)
	if err != nil {
		return nil, err
	}
	if amount.LessThan(threshold.Minimum) {
		return nil, BelowMinimumError(amount, threshold.Minimum)
	}
	if threshold.Maximum.Valid && amount.GreaterThan(threshold.Maximum.Decimal) {
		return nil, AboveMaximumError(amount, threshold.Maximum.Decimal)
	}

	requestedAt := s.now().UTC()
	payout := &models.Payout{
		ID:          uuid.New(),
		CreatorID:   creatorID,
		WalletID:    wallet.ID,
		Amount:      amount,
		Currency:    wallet.Currency,
		Method:      enums.PayoutMethodStripe,
		Status:      enums.PayoutStatusRequested,
		RequestedAt: requestedAt,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		payoutID := payout.ID
		if _, err := s.wallets.DebitTx(ctx, tx, wallet.ID, wallets.Movement{
			Amount:   amount,
			Source:   enums.SourcePayoutRequest,
			PayoutID: &payoutID,
		}); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Create(ctx, payout); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout")
		}
		return s.emit(ctx, tx, enums.EventPayoutRequested, payout.ID, payloads.PayoutRequestedEvent{
			PayoutID:    payout.ID,
			CreatorID:   creatorID,
			WalletID:    wallet.ID,
			Amount:      amount,
			Currency:    wallet.Currency,
			RequestedAt: requestedAt,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.payoutCtx(ctx, payout), "payout requested")
	return payout, nil
}

// ApprovePayout hands a requested payout to settlement through the outbox.
func (s *service) ApprovePayout(ctx context.Context, payoutID, adminID uuid.UUID) (*models.Payout, error) {
	var payout *models.Payout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		payout, err = s.lock(ctx, tx, payoutID)
		if err != nil {
			return err
		}
		if payout.Status != enums.PayoutStatusRequested {
			return AlreadyHandledError(payout)
		}
		if err := s.requireAccountReady(ctx, s.accounts.WithTx(tx), payout.CreatorID); err != nil {
			return err
		}

		approvedAt := s.now().UTC()
		if err := s.transition(ctx, tx, payout, enums.PayoutStatusApproved, map[string]any{
			"approved_by": adminID,
			"approved_at": approvedAt,
		}); err != nil {
			return err
		}
		payout.ApprovedBy = &adminID
		payout.ApprovedAt = &approvedAt
		return s.emit(ctx, tx, enums.EventPayoutApproved, payout.ID, approvedEvent(payout))
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(s.payoutCtx(ctx, payout), "admin_id", adminID.String()), "payout approved")
	return payout, nil
}

// RejectPayout returns a requested payout's reserved funds to the wallet.
func (s *service) RejectPayout(ctx context.Context, payoutID, adminID uuid.UUID, reason string) (*models.Payout, error) {
	reason = strings.TrimSpace(reason)
	var payout *models.Payout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		payout, err = s.lock(ctx, tx, payoutID)
		if err != nil {
			return err
		}
		if payout.Status != enums.PayoutStatusRequested {
			return AlreadyHandledError(payout)
		}
		metadata := map[string]any{"reason": "admin_rejected", "admin_id": adminID.String()}
		if reason != "" {
			metadata["note"] = reason
		}
		return s.refund(ctx, tx, payout, enums.PayoutStatusRejected, enums.SourceAdjustment, reason, metadata)
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(s.payoutCtx(ctx, payout), "admin_id", adminID.String()), "payout rejected")
	return payout, nil
}

// MarkFailed refunds an in-flight or paid payout once. Repeated calls are no-ops.
func (s *service) MarkFailed(ctx context.Context, payoutID uuid.UUID, reason string) (*models.Payout, error) {
	return s.settleRefund(ctx, payoutID, enums.PayoutStatusFailed, enums.SourcePayoutFailed, reason)
}

// MarkCanceled refunds a payout the provider cancelled. Repeated calls are no-ops.
func (s *service) MarkCanceled(ctx context.Context, payoutID uuid.UUID, reason string) (*models.Payout, error) {
	return s.settleRefund(ctx, payoutID, enums.PayoutStatusCancelled, enums.SourcePayoutCanceled, reason)
}

func (s *service) settleRefund(ctx context.Context, payoutID uuid.UUID, target enums.PayoutStatus, source enums.WalletTransactionSource, reason string) (*models.Payout, error) {
	reason = strings.TrimSpace(reason)
	var (
		payout   *models.Payout
		applied  bool
		reversed bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		payout, err = s.lock(ctx, tx, payoutID)
		if err != nil {
			return err
		}
		switch {
		case payout.Status.IsRefunded():
			return nil
		case payout.Status == enums.PayoutStatusPaid:
			// the provider can still return a payout it reported as paid
			reversed = true
		case !payout.Status.CanFail():
			return stateConflictError(payout, "fail")
		}
		applied = true
		return s.refund(ctx, tx, payout, target, source, reason, map[string]any{"reason": reason})
	})
	if err != nil {
		return nil, err
	}
	if applied {
		s.logg.Warn(s.logg.WithFields(s.payoutCtx(ctx, payout), map[string]any{
			"status":        target,
			"reason":        reason,
			"reversed_paid": reversed,
		}), "payout refunded to wallet")
	}
	return payout, nil
}

// refund credits the reserved amount back and moves the payout to target, in
// the caller's transaction with the payout row locked.
func (s *service) refund(ctx context.Context, tx *gorm.DB, payout *models.Payout, target enums.PayoutStatus, source enums.WalletTransactionSource, reason string, metadata map[string]any) error {
	payoutID := payout.ID
	if _, err := s.wallets.CreditTx(ctx, tx, payout.WalletID, wallets.Movement{
		Amount:   payout.Amount,
		Source:   source,
		PayoutID: &payoutID,
		Metadata: metadata,
	}); err != nil {
		return err
	}

	failedAt := s.now().UTC()
	updates := map[string]any{}
	if reason != "" {
		updates["failure_reason"] = reason
		payout.FailureReason = &reason
	}
	if target != enums.PayoutStatusRejected {
		updates["failed_at"] = failedAt
		payout.FailedAt = &failedAt
	}
	if err := s.transition(ctx, tx, payout, target, updates); err != nil {
		return err
	}
	return s.emit(ctx, tx, enums.EventPayoutFailed, payout.ID, payloads.PayoutFailedEvent{
		PayoutID:  payout.ID,
		CreatorID: payout.CreatorID,
		Amount:    payout.Amount,
		Status:    target,
		Reason:    reason,
		FailedAt:  failedAt,
	})
}

// MarkPaid completes a payout once the provider confirms it. A paid payout is
// a no-op and a refunded one stays refunded.
func (s *service) MarkPaid(ctx context.Context, payoutID uuid.UUID, paidAt time.Time) (*models.Payout, error) {
	if paidAt.IsZero() {
		paidAt = s.now()
	}
	paidAt = paidAt.UTC()

	var (
		payout  *models.Payout
		applied bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		payout, err = s.lock(ctx, tx, payoutID)
		if err != nil {
			return err
		}
		switch {
		case payout.Status == enums.PayoutStatusPaid:
			return nil
		case payout.Status.IsRefunded():
			return pkgerrors.New(pkgerrors.CodeReconciliationConflict, "paid confirmation for a refunded payout").
				WithDetails(map[string]any{"payout_id": payout.ID.String(), "status": payout.Status})
		case !payout.Status.CanFail():
			return stateConflictError(payout, "be paid")
		}
		if err := s.transition(ctx, tx, payout, enums.PayoutStatusPaid, map[string]any{"paid_at": paidAt}); err != nil {
			return err
		}
		payout.PaidAt = &paidAt
		applied = true

		providerID := ""
		if payout.ProviderPayoutID != nil {
			providerID = *payout.ProviderPayoutID
		}
		return s.emit(ctx, tx, enums.EventPayoutPaid, payout.ID, payloads.PayoutPaidEvent{
			PayoutID:         payout.ID,
			CreatorID:        payout.CreatorID,
			Amount:           payout.Amount,
			ProviderPayoutID: providerID,
			PaidAt:           paidAt,
		})
	})
	if err != nil {
		return nil, err
	}
	if applied {
		s.logg.Info(s.payoutCtx(ctx, payout), "payout paid")
	}
	return payout, nil
}

// RetrySettlement queues another settlement attempt for an approved or funded
// payout unless one is already waiting in the outbox.
func (s *service) RetrySettlement(ctx context.Context, payoutID uuid.UUID) (bool, error) {
	var emitted bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		payout, err := s.lock(ctx, tx, payoutID)
		if err != nil {
			return err
		}
		if payout.Status != enums.PayoutStatusApproved && payout.Status != enums.PayoutStatusFunded {
			return nil
		}
		emitted, err = s.outbox.EmitIfNotPending(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutApproved,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payout.ID,
			Data:          approvedEvent(payout),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit settlement retry")
		}
		return nil
	})
	return emitted, err
}

// RecordTransfer stores the platform-to-account transfer and moves an approved
// payout to funded.
func (s *service) RecordTransfer(ctx context.Context, payoutID uuid.UUID, transferID string) (*models.Payout, error) {
	return s.advance(ctx, payoutID, enums.PayoutStatusApproved, enums.PayoutStatusFunded, "transfer_id", transferID)
}

// RecordProviderPayout stores the bank payout reference and moves a funded
// payout to processing.
func (s *service) RecordProviderPayout(ctx context.Context, payoutID uuid.UUID, providerPayoutID string) (*models.Payout, error) {
	return s.advance(ctx, payoutID, enums.PayoutStatusFunded, enums.PayoutStatusProcessing, "provider_payout_id", providerPayoutID)
}

func (s *service) advance(ctx context.Context, payoutID uuid.UUID, from, to enums.PayoutStatus, column, reference string) (*models.Payout, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, column+" is required")
	}
	var payout *models.Payout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		payout, err = s.lock(ctx, tx, payoutID)
		if err != nil {
			return err
		}
		if payout.Status != from {
			return stateConflictError(payout, "move to "+string(to))
		}
		if err := s.transition(ctx, tx, payout, to, map[string]any{column: reference}); err != nil {
			return err
		}
		if column == "transfer_id" {
			payout.TransferID = &reference
		} else {
			payout.ProviderPayoutID = &reference
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(s.payoutCtx(ctx, payout), column, reference), "payout advanced")
	return payout, nil
}

func (s *service) GetPayout(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error) {
	payout, err := s.repo.FindByID(ctx, payoutID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, payoutNotFoundError(payoutID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
	}
	return payout, nil
}

// FindByProviderPayoutID returns nil when the provider reference is unknown.
func (s *service) FindByProviderPayoutID(ctx context.Context, providerPayoutID string) (*models.Payout, error) {
	payout, err := s.repo.FindByProviderPayoutID(ctx, providerPayoutID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout by provider reference")
	}
	return payout, nil
}

func (s *service) ListStuck(ctx context.Context, olderThan time.Duration, limit int) ([]models.Payout, error) {
	if limit <= 0 {
		limit = 100
	}
	cutoff := s.now().UTC().Add(-olderThan)
	rows, err := s.repo.ListStuck(ctx, []enums.PayoutStatus{enums.PayoutStatusApproved, enums.PayoutStatusFunded}, cutoff, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stuck payouts")
	}
	return rows, nil
}

func (s *service) lock(ctx context.Context, tx *gorm.DB, payoutID uuid.UUID) (*models.Payout, error) {
	payout, err := s.repo.WithTx(tx).LockByID(ctx, payoutID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, payoutNotFoundError(payoutID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock payout")
	}
	return payout, nil
}

func (s *service) transition(ctx context.Context, tx *gorm.DB, payout *models.Payout, to enums.PayoutStatus, updates map[string]any) error {
	updates["status"] = to
	ok, err := s.repo.WithTx(tx).Transition(ctx, payout.ID, payout.Status, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payout status")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "payout status changed concurrently").
			WithDetails(map[string]any{"payout_id": payout.ID.String(), "expected": payout.Status})
	}
	payout.Status = to
	return nil
}

func (s *service) requireAccountReady(ctx context.Context, repo accounts.Repository, creatorID uuid.UUID) error {
	account, err := repo.FindByCreator(ctx, creatorID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout account")
	}
	if account == nil || !account.ReadyForPayouts() {
		return PayoutAccountNotReadyError(creatorID)
	}
	return nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, payoutID uuid.UUID, data any) error {
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePayout,
		AggregateID:   payoutID,
		Data:          data,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit "+string(eventType))
	}
	return nil
}

func (s *service) payoutCtx(ctx context.Context, payout *models.Payout) context.Context {
	ctx = s.logg.WithPayoutID(ctx, payout.ID.String())
	return s.logg.WithFields(ctx, map[string]any{
		"creator_id": payout.CreatorID.String(),
		"amount":     payout.Amount.StringFixed(2),
		"status":     payout.Status,
	})
}

func approvedEvent(payout *models.Payout) payloads.PayoutApprovedEvent {
	event := payloads.PayoutApprovedEvent{
		PayoutID:   payout.ID,
		CreatorID:  payout.CreatorID,
		Amount:     payout.Amount,
		Currency:   payout.Currency,
		ApprovedBy: payout.ApprovedBy,
	}
	if payout.ApprovedAt != nil {
		event.ApprovedAt = *payout.ApprovedAt
	}
	return event
}
