package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tripcreators/creator-wallet/internal/accounts"
	"github.com/tripcreators/creator-wallet/pkg/db/models"
	"github.com/tripcreators/creator-wallet/pkg/enums"
	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
	"github.com/tripcreators/creator-wallet/pkg/logger"
	"github.com/tripcreators/creator-wallet/pkg/metrics"
	pkgstripe "github.com/tripcreators/creator-wallet/pkg/stripe"
)

// Outcome is the result of one settlement step.
type Outcome string

const (
	OutcomeNoop       Outcome = "noop"
	OutcomeFunded     Outcome = "funded"
	OutcomeProcessing Outcome = "processing"
	OutcomeFailed     Outcome = "failed"
)

// ErrNotApproved is returned for payouts an admin has not approved yet.
var ErrNotApproved = errors.New("payout is not approved")

const missingAccountReason = "payout account missing"

type payoutStore interface {
	GetPayout(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error)
	MarkFailed(ctx context.Context, payoutID uuid.UUID, reason string) (*models.Payout, error)
	RecordTransfer(ctx context.Context, payoutID uuid.UUID, transferID string) (*models.Payout, error)
	RecordProviderPayout(ctx context.Context, payoutID uuid.UUID, providerPayoutID string) (*models.Payout, error)
}

type moneyMover interface {
	CreateTransfer(ctx context.Context, req pkgstripe.TransferRequest) (string, error)
	CreatePayout(ctx context.Context, req pkgstripe.PayoutRequest) (string, error)
}

// Settler moves approved payouts through the provider. Every state write is
// conditional on the previous status, so concurrent workers cannot regress a
// payout and a repeated step resumes where the last one stopped.
type Settler struct {
	payouts  payoutStore
	accounts accounts.Repository
	provider moneyMover
	metrics  *metrics.SettlementMetrics
	logg     *logger.Logger
}

// NewSettler wires the settlement state machine.
func NewSettler(payouts payoutStore, accountRepo accounts.Repository, provider moneyMover, m *metrics.SettlementMetrics, logg *logger.Logger) (*Settler, error) {
	switch {
	case payouts == nil:
		return nil, fmt.Errorf("payout service required")
	case accountRepo == nil:
		return nil, fmt.Errorf("account repository required")
	case provider == nil:
		return nil, fmt.Errorf("payout provider required")
	case logg == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &Settler{payouts: payouts, accounts: accountRepo, provider: provider, metrics: m, logg: logg}, nil
}

// Advance runs the next settlement phase for the payout. Permanent provider
// rejections fail and refund the payout and return a nil error; transient
// ones return a ProviderTransient error so the caller retries.
func (s *Settler) Advance(ctx context.Context, payoutID uuid.UUID) (Outcome, error) {
	payout, err := s.payouts.GetPayout(ctx, payoutID)
	if err != nil {
		return OutcomeNoop, err
	}
	ctx = s.logg.WithPayoutID(ctx, payout.ID.String())

	outcome, err := s.step(ctx, payout)
	if !errors.Is(err, ErrNotApproved) {
		s.metrics.IncOutcome(string(outcome))
	}
	return outcome, err
}

func (s *Settler) step(ctx context.Context, payout *models.Payout) (Outcome, error) {
	switch {
	case payout.Status == enums.PayoutStatusRequested:
		return OutcomeNoop, ErrNotApproved
	case payout.Status.IsTerminal(), payout.Status == enums.PayoutStatusProcessing:
		return OutcomeNoop, nil
	}

	account, err := s.accounts.FindByCreator(ctx, payout.CreatorID)
	if err != nil {
		return OutcomeNoop, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout account")
	}
	if account == nil || account.StripeAccountID == nil || *account.StripeAccountID == "" {
		return s.fail(ctx, payout, missingAccountReason)
	}
	destination := *account.StripeAccountID

	if payout.Status == enums.PayoutStatusApproved && !payout.HasTransfer() {
		funded, outcome, err := s.transfer(ctx, payout, destination)
		if funded == nil {
			return outcome, err
		}
		payout = funded
	}
	if payout.Status == enums.PayoutStatusFunded && !payout.HasProviderPayout() {
		return s.payOut(ctx, payout, destination)
	}
	return OutcomeNoop, nil
}

func (s *Settler) transfer(ctx context.Context, payout *models.Payout, destination string) (*models.Payout, Outcome, error) {
	started := time.Now()
	transferID, err := s.provider.CreateTransfer(ctx, pkgstripe.TransferRequest{
		PayoutID:    payout.ID.String(),
		CreatorID:   payout.CreatorID.String(),
		Destination: destination,
		Amount:      payout.Amount,
		Currency:    payout.Currency,
	})
	s.metrics.ObserveProviderCall("transfer", err, time.Since(started))
	if err != nil {
		outcome, err := s.providerFailure(ctx, payout, "create transfer", err)
		return nil, outcome, err
	}

	funded, err := s.payouts.RecordTransfer(ctx, payout.ID, transferID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			s.logg.Info(ctx, "payout advanced by another worker")
			return nil, OutcomeNoop, nil
		}
		return nil, OutcomeNoop, err
	}
	s.logg.Info(s.logg.WithField(ctx, "transfer_id", transferID), "payout funded")
	return funded, OutcomeFunded, nil
}

func (s *Settler) payOut(ctx context.Context, payout *models.Payout, accountID string) (Outcome, error) {
	started := time.Now()
	providerPayoutID, err := s.provider.CreatePayout(ctx, pkgstripe.PayoutRequest{
		PayoutID:  payout.ID.String(),
		CreatorID: payout.CreatorID.String(),
		AccountID: accountID,
		Amount:    payout.Amount,
		Currency:  payout.Currency,
	})
	s.metrics.ObserveProviderCall("payout", err, time.Since(started))
	if err != nil {
		outcome, err := s.providerFailure(ctx, payout, "create payout", err)
		if err != nil {
			// the transfer is recorded, the next attempt resumes at the bank payout
			return OutcomeFunded, err
		}
		return outcome, nil
	}

	if _, err := s.payouts.RecordProviderPayout(ctx, payout.ID, providerPayoutID); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			s.logg.Info(ctx, "payout advanced by another worker")
			return OutcomeNoop, nil
		}
		return OutcomeFunded, err
	}
	s.logg.Info(s.logg.WithField(ctx, "provider_payout_id", providerPayoutID), "payout processing")
	return OutcomeProcessing, nil
}

func (s *Settler) providerFailure(ctx context.Context, payout *models.Payout, action string, err error) (Outcome, error) {
	classified := pkgstripe.Classify(err, action)
	if pkgerrors.IsCode(classified, pkgerrors.CodeProviderPermanent) {
		return s.fail(ctx, payout, pkgstripe.ErrorMessage(err))
	}
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "transient provider error")
	return OutcomeNoop, classified
}

func (s *Settler) fail(ctx context.Context, payout *models.Payout, reason string) (Outcome, error) {
	if _, err := s.payouts.MarkFailed(ctx, payout.ID, reason); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeAlreadyHandled) {
			return OutcomeNoop, nil
		}
		return OutcomeNoop, err
	}
	s.logg.Warn(s.logg.WithField(ctx, "reason", reason), "payout failed permanently")
	return OutcomeFailed, nil
}
