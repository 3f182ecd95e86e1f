package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripcreators/creator-wallet/api/middleware"
	"github.com/tripcreators/creator-wallet/internal/accounts"
	"github.com/tripcreators/creator-wallet/internal/ledger"
	"github.com/tripcreators/creator-wallet/internal/payouts"
	"github.com/tripcreators/creator-wallet/pkg/db/models"
	"github.com/tripcreators/creator-wallet/pkg/enums"
	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
	"github.com/tripcreators/creator-wallet/pkg/pagination"
	"github.com/tripcreators/creator-wallet/pkg/types"
)

type stubCreatorPayouts struct {
	requested  decimal.Decimal
	creatorID  uuid.UUID
	filter     payouts.ListFilter
	requestErr error
	list       *payouts.ListResult
	summary    *payouts.WalletSummary
}

func (s *stubCreatorPayouts) RequestPayout(_ context.Context, creatorID uuid.UUID, amount decimal.Decimal) (*models.Payout, error) {
	s.creatorID = creatorID
	s.requested = amount
	if s.requestErr != nil {
		return nil, s.requestErr
	}
	return &models.Payout{
		ID:          uuid.New(),
		CreatorID:   creatorID,
		Amount:      amount,
		Currency:    enums.CurrencyUSD,
		Method:      enums.PayoutMethodStripe,
		Status:      enums.PayoutStatusRequested,
		RequestedAt: time.Now().UTC(),
	}, nil
}

func (s *stubCreatorPayouts) ListPayouts(_ context.Context, creatorID uuid.UUID, filter payouts.ListFilter) (*payouts.ListResult, error) {
	s.creatorID = creatorID
	s.filter = filter
	if s.list == nil {
		return &payouts.ListResult{}, nil
	}
	return s.list, nil
}

func (s *stubCreatorPayouts) GetWalletSummary(_ context.Context, creatorID uuid.UUID) (*payouts.WalletSummary, error) {
	s.creatorID = creatorID
	return s.summary, nil
}

func asCreator(req *http.Request, id uuid.UUID) *http.Request {
	ctx := middleware.WithUserID(req.Context(), id.String())
	ctx = middleware.WithRole(ctx, string(enums.UserRoleCreator))
	return req.WithContext(ctx)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var envelope types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	return envelope.Error
}

func TestCreatorRequestPayoutCreated(t *testing.T) {
	svc := &stubCreatorPayouts{}
	creatorID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/creator/payouts", strings.NewReader(`{"amount":"20.00"}`))
	rec := httptest.NewRecorder()
	CreatorRequestPayout(svc, nil).ServeHTTP(rec, asCreator(req, creatorID))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, creatorID, svc.creatorID)
	assert.True(t, svc.requested.Equal(decimal.RequireFromString("20")))

	var envelope struct {
		Data PayoutDTO `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.Equal(t, "20.00", envelope.Data.Amount)
	assert.Equal(t, "requested", envelope.Data.Status)
}

func TestCreatorRequestPayoutErrors(t *testing.T) {
	creatorID := uuid.New()
	tests := []struct {
		name   string
		body   string
		err    error
		anon   bool
		status int
		code   string
	}{
		{name: "anonymous", body: `{"amount":"10"}`, anon: true, status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "fractional cents", body: `{"amount":"10.001"}`, status: http.StatusBadRequest, code: "VALIDATION_ERROR"},
		{name: "zero", body: `{"amount":"0"}`, status: http.StatusBadRequest, code: "VALIDATION_ERROR"},
		{
			name:   "insufficient balance",
			body:   `{"amount":"500.00"}`,
			err:    ledger.InsufficientBalanceError(uuid.New(), decimal.RequireFromString("20"), decimal.RequireFromString("500")),
			status: http.StatusUnprocessableEntity,
			code:   string(pkgerrors.CodeInsufficientBalance),
		},
		{
			name:   "account not ready",
			body:   `{"amount":"50.00"}`,
			err:    payouts.PayoutAccountNotReadyError(creatorID),
			status: http.StatusUnprocessableEntity,
			code:   string(pkgerrors.CodePayoutAccountNotReady),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubCreatorPayouts{requestErr: tt.err}
			req := httptest.NewRequest(http.MethodPost, "/api/v1/creator/payouts", strings.NewReader(tt.body))
			if !tt.anon {
				req = asCreator(req, creatorID)
			}
			rec := httptest.NewRecorder()
			CreatorRequestPayout(svc, nil).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestCreatorListPayoutsPassesFilter(t *testing.T) {
	creatorID := uuid.New()
	svc := &stubCreatorPayouts{list: &payouts.ListResult{
		Payouts:    []models.Payout{{ID: uuid.New(), CreatorID: creatorID, Amount: decimal.RequireFromString("12.5"), Status: enums.PayoutStatusPaid}},
		NextCursor: "next",
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/creator/payouts?start_date=2026-01-01&end_date=2026-01-31&status=paid&limit=10&cursor=abc", nil)
	rec := httptest.NewRecorder()
	CreatorListPayouts(svc, nil).ServeHTTP(rec, asCreator(req, creatorID))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paid", svc.filter.Status)
	assert.Equal(t, pagination.Params{Limit: 10, Cursor: "abc"}, svc.filter.Pagination)
	require.NotNil(t, svc.filter.StartDate)
	require.NotNil(t, svc.filter.EndDate)
	assert.Equal(t, 31, svc.filter.EndDate.Day())

	var envelope struct {
		Data PayoutListDTO `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.Len(t, envelope.Data.Payouts, 1)
	assert.Equal(t, "12.50", envelope.Data.Payouts[0].Amount)
	assert.Equal(t, "next", envelope.Data.NextCursor)
}

func TestCreatorListPayoutsRejectsBadDates(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/creator/payouts?start_date=yesterday", nil)
	rec := httptest.NewRecorder()
	CreatorListPayouts(&stubCreatorPayouts{}, nil).ServeHTTP(rec, asCreator(req, uuid.New()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatorWalletSummary(t *testing.T) {
	svc := &stubCreatorPayouts{summary: &payouts.WalletSummary{
		Currency:         enums.CurrencyUSD,
		AvailableBalance: decimal.RequireFromString("15"),
		PendingPayouts:   decimal.RequireFromString("5"),
		TotalEarned:      decimal.RequireFromString("20"),
		Reconciled:       true,
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/creator/wallet/summary", nil)
	rec := httptest.NewRecorder()
	CreatorWalletSummary(svc, nil).ServeHTTP(rec, asCreator(req, uuid.New()))

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data WalletSummaryDTO `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.Equal(t, "15.00", envelope.Data.AvailableBalance)
	assert.Equal(t, "5.00", envelope.Data.PendingPayouts)
	assert.True(t, envelope.Data.Reconciled)
}

type stubWalletReader struct {
	wallet *models.Wallet
	page   *ledger.Page
	params pagination.Params
}

func (s *stubWalletReader) GetByCreator(_ context.Context, creatorID uuid.UUID) (*models.Wallet, error) {
	if s.wallet == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
	}
	return s.wallet, nil
}

func (s *stubWalletReader) ListTransactions(_ context.Context, _ uuid.UUID, params pagination.Params) (*ledger.Page, error) {
	s.params = params
	return s.page, nil
}

func TestCreatorWalletTransactions(t *testing.T) {
	walletID := uuid.New()
	svc := &stubWalletReader{
		wallet: &models.Wallet{ID: walletID},
		page: &ledger.Page{Entries: []models.WalletTransaction{{
			ID:            uuid.New(),
			WalletID:      walletID,
			Type:          enums.WalletTransactionCredit,
			Source:        enums.SourceSaleCommission,
			Amount:        decimal.RequireFromString("20"),
			BalanceBefore: decimal.Zero,
			BalanceAfter:  decimal.RequireFromString("20"),
			Status:        enums.WalletTransactionCompleted,
		}}},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/creator/wallet/transactions?limit=5", nil)
	rec := httptest.NewRecorder()
	CreatorWalletTransactions(svc, nil).ServeHTTP(rec, asCreator(req, uuid.New()))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, svc.params.Limit)
	var envelope struct {
		Data TransactionListDTO `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.Len(t, envelope.Data.Transactions, 1)
	assert.Equal(t, "sale_commission", envelope.Data.Transactions[0].Source)
	assert.Equal(t, "20.00", envelope.Data.Transactions[0].BalanceAfter)
}

func TestCreatorWalletTransactionsWithoutWallet(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/creator/wallet/transactions", nil)
	rec := httptest.NewRecorder()
	CreatorWalletTransactions(&stubWalletReader{}, nil).ServeHTTP(rec, asCreator(req, uuid.New()))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type stubOnboarding struct {
	input accounts.OnboardingInput
}

func (s *stubOnboarding) StartOnboarding(_ context.Context, input accounts.OnboardingInput) (*accounts.Onboarding, error) {
	s.input = input
	accountID := "acct_123"
	return &accounts.Onboarding{
		Account: &models.CreatorAccount{CreatorID: input.CreatorID, StripeAccountID: &accountID},
		URL:     "https://connect.stripe.test/setup",
	}, nil
}

func TestCreatorPayoutOnboarding(t *testing.T) {
	creatorID := uuid.New()
	svc := &stubOnboarding{}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/creator/payout-account/onboarding", strings.NewReader(`{"email":"c@example.com","country":"US"}`))
	rec := httptest.NewRecorder()
	CreatorPayoutOnboarding(svc, nil).ServeHTTP(rec, asCreator(req, creatorID))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, creatorID, svc.input.CreatorID)
	assert.Equal(t, "US", svc.input.Country)

	var envelope struct {
		Data OnboardingDTO `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.Equal(t, "acct_123", envelope.Data.StripeAccountID)
	assert.Equal(t, "https://connect.stripe.test/setup", envelope.Data.URL)
}

func TestCreatorPayoutOnboardingWithoutBody(t *testing.T) {
	svc := &stubOnboarding{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/creator/payout-account/onboarding", nil)
	rec := httptest.NewRecorder()
	CreatorPayoutOnboarding(svc, nil).ServeHTTP(rec, asCreator(req, uuid.New()))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, svc.input.Email)
}
