package stripe

import (
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"github.com/stretchr/testify/assert"

	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code pkgerrors.Code
	}{
		{name: "insufficient platform balance", err: &stripe.Error{Type: stripe.ErrorTypeInvalidRequest, Code: "balance_insufficient", HTTPStatusCode: 400}, code: pkgerrors.CodeProviderPermanent},
		{name: "payouts disabled", err: &stripe.Error{Type: stripe.ErrorTypeInvalidRequest, Code: "payouts_not_allowed", HTTPStatusCode: 400}, code: pkgerrors.CodeProviderPermanent},
		{name: "unusable bank account", err: &stripe.Error{Type: stripe.ErrorTypeInvalidRequest, Code: "bank_account_unusable", HTTPStatusCode: 400}, code: pkgerrors.CodeProviderPermanent},
		{name: "invalid request without code", err: &stripe.Error{Type: stripe.ErrorTypeInvalidRequest, HTTPStatusCode: 400}, code: pkgerrors.CodeProviderPermanent},
		{name: "rate limited", err: &stripe.Error{Type: stripe.ErrorTypeInvalidRequest, Code: "rate_limit", HTTPStatusCode: http.StatusTooManyRequests}, code: pkgerrors.CodeProviderTransient},
		{name: "api error", err: &stripe.Error{Type: stripe.ErrorTypeAPI, HTTPStatusCode: http.StatusInternalServerError}, code: pkgerrors.CodeProviderTransient},
		{name: "network error", err: errors.New("connection reset by peer"), code: pkgerrors.CodeProviderTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			classified := Classify(tc.err, "create transfer")
			assert.True(t, pkgerrors.IsCode(classified, tc.code))
			assert.ErrorIs(t, classified, tc.err)
		})
	}
	assert.NoError(t, Classify(nil, "noop"))
}

func TestToCentsRoundsHalfUp(t *testing.T) {
	assert.Equal(t, int64(2000), ToCents(decimal.RequireFromString("20.00")))
	assert.Equal(t, int64(1001), ToCents(decimal.RequireFromString("10.005")))
	assert.Equal(t, int64(1), ToCents(decimal.RequireFromString("0.005")))
	assert.Equal(t, "transfer_abc_2000", TransferIdempotencyKey("abc", 2000))
	assert.Equal(t, "creator_payout_abc", PayoutIdempotencyKey("abc"))
}

func TestErrorMessage(t *testing.T) {
	err := &stripe.Error{Code: "account_invalid", Msg: "No such destination"}
	assert.Equal(t, "account_invalid: No such destination", ErrorMessage(err))
	assert.Equal(t, "account_invalid", ErrorCode(err))
	assert.Equal(t, "boom", ErrorMessage(errors.New("boom")))
}
