package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tripcreators/creator-wallet/api/validators"
	"github.com/tripcreators/creator-wallet/internal/payouts"
	"github.com/tripcreators/creator-wallet/pkg/db/models"
	"github.com/tripcreators/creator-wallet/pkg/logger"
	"github.com/tripcreators/creator-wallet/pkg/pagination"
)

type creatorPayoutService interface {
	RequestPayout(ctx context.Context, creatorID uuid.UUID, amount decimal.Decimal) (*models.Payout, error)
	ListPayouts(ctx context.Context, creatorID uuid.UUID, filter payouts.ListFilter) (*payouts.ListResult, error)
	GetWalletSummary(ctx context.Context, creatorID uuid.UUID) (*payouts.WalletSummary, error)
}

type requestPayoutBody struct {
	Amount string `json:"amount" validate:"required,money"`
}

// CreatorRequestPayout reserves the requested amount from the caller's wallet.
func CreatorRequestPayout(svc creatorPayoutService, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, svc != nil, "payout", func(r *http.Request) (int, any, error) {
		creatorID, err := actorID(r)
		if err != nil {
			return fail(err)
		}
		var body requestPayoutBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return fail(err)
		}
		amount, err := parseDecimal(body.Amount, "amount")
		if err != nil {
			return fail(err)
		}
		payout, err := svc.RequestPayout(r.Context(), creatorID, amount)
		if err != nil {
			return fail(err)
		}
		return created(toPayoutDTO(payout))
	})
}

// CreatorListPayouts pages through the caller's payout history. range, or
// start_date and end_date, narrow the window; status filters by state.
func CreatorListPayouts(svc creatorPayoutService, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, svc != nil, "payout", func(r *http.Request) (int, any, error) {
		creatorID, err := actorID(r)
		if err != nil {
			return fail(err)
		}
		filter, err := payoutListFilter(r)
		if err != nil {
			return fail(err)
		}
		list, err := svc.ListPayouts(r.Context(), creatorID, filter)
		if err != nil {
			return fail(err)
		}
		return ok(toPayoutListDTO(list))
	})
}

func payoutListFilter(r *http.Request) (payouts.ListFilter, error) {
	page, err := pageParams(r)
	if err != nil {
		return payouts.ListFilter{}, err
	}
	filter := payouts.ListFilter{
		Range:      strings.TrimSpace(r.URL.Query().Get("range")),
		Status:     strings.TrimSpace(r.URL.Query().Get("status")),
		Pagination: page,
	}
	if filter.StartDate, err = validators.ParseQueryDate(r, "start_date"); err != nil {
		return filter, err
	}
	if filter.EndDate, err = validators.ParseQueryDate(r, "end_date"); err != nil {
		return filter, err
	}
	return filter, nil
}

// pageParams reads the limit and cursor query parameters shared by list endpoints.
func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

// CreatorWalletSummary returns the caller's earnings and payout totals.
func CreatorWalletSummary(svc creatorPayoutService, logg *logger.Logger) http.HandlerFunc {
	return handle(logg, svc != nil, "payout", func(r *http.Request) (int, any, error) {
		creatorID, err := actorID(r)
		if err != nil {
			return fail(err)
		}
		summary, err := svc.GetWalletSummary(r.Context(), creatorID)
		if err != nil {
			return fail(err)
		}
		return ok(toWalletSummaryDTO(summary))
	})
}
