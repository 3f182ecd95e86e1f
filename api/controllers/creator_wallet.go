package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/tripcreators/creator-wallet/api/validators"
	"github.com/tripcreators/creator-wallet/internal/accounts"
	"github.com/tripcreators/creator-wallet/internal/ledger"
	"github.com/tripcreators/creator-wallet/pkg/db/models"
	"github.com/tripcreators/creator-wallet/pkg/logger"
	"github.com/tripcreators/creator-wallet/pkg/pagination"
)

type walletReader interface {
	GetByCreator(ctx context.Context, creatorID uuid.UUID) (*models.Wallet, error)
	ListTransactions(ctx context.Context, walletID uuid.UUID, params pagination.Params) (*ledger.Page, error)
}

type onboardingService interface {
	StartOnboarding(ctx context.Context, input accounts.OnboardingInput) (*accounts.Onboarding, error)
}

// CreatorWalletTransactions pages through the caller's ledger, newest first.
func CreatorWalletTransactions(svc walletReader, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, svc != nil, "wallet", func(r *http.Request) (int, any, error) {
		creatorID, err := actorID(r)
		if err != nil {
			return fail(err)
		}
		page, err := pageParams(r)
		if err != nil {
			return fail(err)
		}
		wallet, err := svc.GetByCreator(r.Context(), creatorID)
		if err != nil {
			return fail(err)
		}
		entries, err := svc.ListTransactions(r.Context(), wallet.ID, page)
		if err != nil {
			return fail(err)
		}

		out := TransactionListDTO{
			Transactions: make([]TransactionDTO, len(entries.Entries)),
			NextCursor:   entries.NextCursor,
		}
		for i, entry := range entries.Entries {
			out.Transactions[i] = toTransactionDTO(entry)
		}
		return ok(out)
	})
}

type onboardingBody struct {
	Email   string `json:"email" validate:"omitempty,email"`
	Country string `json:"country" validate:"omitempty,len=2"`
}

// CreatorPayoutOnboarding starts or resumes connected account onboarding.
// The body is optional.
func CreatorPayoutOnboarding(svc onboardingService, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, svc != nil, "account", func(r *http.Request) (int, any, error) {
		creatorID, err := actorID(r)
		if err != nil {
			return fail(err)
		}
		var body onboardingBody
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				return fail(err)
			}
		}
		onboarding, err := svc.StartOnboarding(r.Context(), accounts.OnboardingInput{
			CreatorID: creatorID,
			Email:     body.Email,
			Country:   body.Country,
		})
		if err != nil {
			return fail(err)
		}
		return ok(toOnboardingDTO(onboarding))
	})
}
