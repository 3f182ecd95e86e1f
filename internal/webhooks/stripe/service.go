package stripewebhook

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/tripcreators/creator-wallet/pkg/db/models"
	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
	"github.com/tripcreators/creator-wallet/pkg/logger"
	"github.com/tripcreators/creator-wallet/pkg/metrics"
)

type payoutCallbacks interface {
	FindByProviderPayoutID(ctx context.Context, providerPayoutID string) (*models.Payout, error)
	MarkPaid(ctx context.Context, payoutID uuid.UUID, paidAt time.Time) (*models.Payout, error)
	MarkFailed(ctx context.Context, payoutID uuid.UUID, reason string) (*models.Payout, error)
	MarkCanceled(ctx context.Context, payoutID uuid.UUID, reason string) (*models.Payout, error)
}

type accountCallbacks interface {
	SetPayoutsEnabled(ctx context.Context, stripeAccountID string, payoutsEnabled, detailsSubmitted bool) (*models.CreatorAccount, error)
}

type ServiceParams struct {
	Payouts  payoutCallbacks
	Accounts accountCallbacks
	Metrics  *metrics.WebhookMetrics
	Logger   *logger.Logger
}

// Service applies provider callbacks to payouts and payout accounts. Terminal
// payout states make every callback safe to replay.
type Service struct {
	payouts  payoutCallbacks
	accounts accountCallbacks
	metrics  *metrics.WebhookMetrics
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payouts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payout service required")
	}
	if params.Accounts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "account service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		payouts:  params.Payouts,
		accounts: params.Accounts,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// HandleEvent returns an error only when the provider should redeliver.
// Callbacks that contradict stored state are logged and acknowledged.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"stripe_event_id": event.ID,
		"stripe_event":    string(event.Type),
	})

	err := s.dispatch(ctx, event)
	switch {
	case err == nil:
		s.metrics.IncEvent(string(event.Type), "ok")
		return nil
	case pkgerrors.IsCode(err, pkgerrors.CodeReconciliationConflict), pkgerrors.IsCode(err, pkgerrors.CodeAlreadyHandled):
		s.metrics.IncEvent(string(event.Type), "conflict")
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "callback conflicts with stored state")
		return nil
	default:
		s.metrics.IncEvent(string(event.Type), "error")
		return err
	}
}

func (s *Service) dispatch(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case stripe.EventTypeAccountUpdated:
		var account stripe.Account
		if err := json.Unmarshal(event.Data.Raw, &account); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode account event")
		}
		_, err := s.accounts.SetPayoutsEnabled(ctx, account.ID, account.PayoutsEnabled, account.DetailsSubmitted)
		return err
	case stripe.EventTypePayoutPaid, stripe.EventTypePayoutFailed, stripe.EventTypePayoutCanceled:
		var providerPayout stripe.Payout
		if err := json.Unmarshal(event.Data.Raw, &providerPayout); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payout event")
		}
		return s.handlePayout(ctx, event, &providerPayout)
	default:
		return nil
	}
}

func (s *Service) handlePayout(ctx context.Context, event *stripe.Event, providerPayout *stripe.Payout) error {
	payout, err := s.payouts.FindByProviderPayoutID(ctx, providerPayout.ID)
	if err != nil {
		return err
	}
	if payout == nil {
		return pkgerrors.New(pkgerrors.CodeReconciliationConflict, "callback for unknown payout").
			WithDetails(map[string]any{"provider_payout_id": providerPayout.ID})
	}

	switch event.Type {
	case stripe.EventTypePayoutPaid:
		_, err = s.payouts.MarkPaid(ctx, payout.ID, eventTime(event, providerPayout))
	case stripe.EventTypePayoutFailed:
		_, err = s.payouts.MarkFailed(ctx, payout.ID, failureReason(providerPayout))
	default:
		_, err = s.payouts.MarkCanceled(ctx, payout.ID, "canceled by provider")
	}
	return err
}

func eventTime(event *stripe.Event, providerPayout *stripe.Payout) time.Time {
	if providerPayout.ArrivalDate > 0 {
		return time.Unix(providerPayout.ArrivalDate, 0).UTC()
	}
	if event.Created > 0 {
		return time.Unix(event.Created, 0).UTC()
	}
	return time.Now().UTC()
}

func failureReason(providerPayout *stripe.Payout) string {
	code := strings.TrimSpace(string(providerPayout.FailureCode))
	message := strings.TrimSpace(providerPayout.FailureMessage)
	switch {
	case code != "" && message != "":
		return code + ": " + message
	case code != "":
		return code
	case message != "":
		return message
	default:
		return "payout failed at provider"
	}
}
