package accounts

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tripcreators/creator-wallet/pkg/db/models"
	"github.com/tripcreators/creator-wallet/pkg/enums"
	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
	"github.com/tripcreators/creator-wallet/pkg/logger"
	pkgstripe "github.com/tripcreators/creator-wallet/pkg/stripe"
)

type accountProvider interface {
	CreateExpressAccount(ctx context.Context, req pkgstripe.AccountRequest) (string, error)
	CreateAccountLink(ctx context.Context, accountID string) (string, error)
}

type walletEnsurer interface {
	EnsureWallet(ctx context.Context, creatorID uuid.UUID, currency enums.Currency) (*models.Wallet, error)
}

// OnboardingInput identifies the creator starting payout onboarding.
type OnboardingInput struct {
	CreatorID uuid.UUID
	Email     string
	Country   string
}

// Onboarding is the hosted onboarding link for a connected account.
type Onboarding struct {
	Account *models.CreatorAccount
	URL     string
}

// Service manages creators' connected payout accounts.
type Service interface {
	Get(ctx context.Context, creatorID uuid.UUID) (*models.CreatorAccount, error)
	StartOnboarding(ctx context.Context, input OnboardingInput) (*Onboarding, error)
	SetPayoutsEnabled(ctx context.Context, stripeAccountID string, payoutsEnabled, detailsSubmitted bool) (*models.CreatorAccount, error)
}

type service struct {
	repo     Repository
	provider accountProvider
	wallets  walletEnsurer
	currency enums.Currency
	logg     *logger.Logger
}

// NewService wires creator account onboarding.
func NewService(repo Repository, provider accountProvider, wallets walletEnsurer, currency enums.Currency, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("account repository required")
	}
	if provider == nil {
		return nil, fmt.Errorf("account provider required")
	}
	if wallets == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if !currency.IsValid() {
		currency = enums.CurrencyUSD
	}
	return &service{repo: repo, provider: provider, wallets: wallets, currency: currency, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, creatorID uuid.UUID) (*models.CreatorAccount, error) {
	account, err := s.repo.FindByCreator(ctx, creatorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load creator account")
	}
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout account not found").
			WithDetails(map[string]any{"creator_id": creatorID.String()})
	}
	return account, nil
}

// StartOnboarding creates the connected account on first use, makes sure the
// creator has a wallet and returns a fresh onboarding link.
func (s *service) StartOnboarding(ctx context.Context, input OnboardingInput) (*Onboarding, error) {
	if input.CreatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "creator id is required")
	}
	ctx = s.logg.WithField(ctx, "creator_id", input.CreatorID.String())

	account, err := s.repo.FindByCreator(ctx, input.CreatorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load creator account")
	}
	if account == nil || account.StripeAccountID == nil || *account.StripeAccountID == "" {
		accountID, err := s.provider.CreateExpressAccount(ctx, pkgstripe.AccountRequest{
			CreatorID: input.CreatorID.String(),
			Email:     input.Email,
			Country:   input.Country,
		})
		if err != nil {
			return nil, pkgstripe.Classify(err, "create connected account")
		}
		account = &models.CreatorAccount{
			CreatorID:       input.CreatorID,
			StripeAccountID: &accountID,
			Email:           strings.TrimSpace(input.Email),
			Country:         strings.ToUpper(strings.TrimSpace(input.Country)),
		}
		if err := s.repo.Upsert(ctx, account); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store creator account")
		}
		s.logg.Info(s.logg.WithField(ctx, "stripe_account_id", accountID), "connected account created")
	}

	if _, err := s.wallets.EnsureWallet(ctx, input.CreatorID, s.currency); err != nil {
		return nil, err
	}

	url, err := s.provider.CreateAccountLink(ctx, *account.StripeAccountID)
	if err != nil {
		return nil, pkgstripe.Classify(err, "create onboarding link")
	}
	return &Onboarding{Account: account, URL: url}, nil
}

// SetPayoutsEnabled mirrors the provider's capability flags onto the account.
func (s *service) SetPayoutsEnabled(ctx context.Context, stripeAccountID string, payoutsEnabled, detailsSubmitted bool) (*models.CreatorAccount, error) {
	stripeAccountID = strings.TrimSpace(stripeAccountID)
	if stripeAccountID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stripe account id is required")
	}
	updated, err := s.repo.UpdateCapabilities(ctx, stripeAccountID, payoutsEnabled, detailsSubmitted)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update creator account")
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeReconciliationConflict, "unknown connected account").
			WithDetails(map[string]any{"stripe_account_id": stripeAccountID})
	}
	account, err := s.repo.FindByStripeAccount(ctx, stripeAccountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load creator account")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"stripe_account_id": stripeAccountID,
		"payouts_enabled":   payoutsEnabled,
	}), "connected account capabilities synced")
	return account, nil
}
