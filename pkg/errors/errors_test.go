package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	tests := []struct {
		code   Code
		status int
		public string
		retry  bool
		expose bool
	}{
		{CodeValidation, http.StatusBadRequest, "validation failed", false, true},
		{CodeUnauthorized, http.StatusUnauthorized, "authentication required", false, true},
		{CodeStateConflict, http.StatusUnprocessableEntity, "state transition disallowed", false, true},
		{CodeInternal, http.StatusInternalServerError, "internal server error", true, false},
		{CodeDependency, http.StatusServiceUnavailable, "dependency unavailable", true, false},
		{CodeInsufficientBalance, http.StatusUnprocessableEntity, "insufficient wallet balance", false, true},
		{CodeWalletNotActive, http.StatusConflict, "wallet is not active", false, true},
		{CodeProviderTransient, http.StatusServiceUnavailable, "payment provider unavailable", true, false},
		{CodeProviderPermanent, http.StatusBadGateway, "payment provider rejected the request", false, false},
		{CodeReconciliationConflict, http.StatusConflict, "reconciliation conflict", false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			meta := MetadataFor(tt.code)
			assert.Equal(t, tt.status, meta.HTTPStatus)
			assert.Equal(t, tt.public, meta.PublicMessage)
			assert.Equal(t, tt.retry, meta.Retryable)
			assert.Equal(t, tt.expose, meta.ExposeMessage)
		})
	}

	assert.Equal(t, MetadataFor(CodeInternal), MetadataFor("SOMETHING_UNKNOWN"))
}

func TestErrorRendersCodeMessageAndCause(t *testing.T) {
	cause := stdErrors.New("connection reset")
	err := Wrap(CodeDependency, cause, "load wallet")

	assert.Equal(t, "DEPENDENCY_ERROR: load wallet: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "NOT_FOUND: wallet", New(CodeNotFound, "wallet").Error())
	assert.Nil(t, Wrap(CodeConflict, nil, "x").Unwrap())
}

func TestWithDetails(t *testing.T) {
	err := New(CodeValidation, "missing amount")
	assert.Nil(t, err.Details())

	err.WithDetails(map[string]any{"field": "amount"})
	assert.Equal(t, map[string]any{"field": "amount"}, err.Details())

	var nilErr *Error
	assert.Nil(t, nilErr.WithDetails("ignored"))
	assert.Equal(t, CodeInternal, nilErr.Code())
}

func TestCodeSentinelsWorkWithErrorsIs(t *testing.T) {
	err := fmt.Errorf("requesting payout: %w", New(CodeInsufficientBalance, "balance too low"))

	assert.ErrorIs(t, err, New(CodeInsufficientBalance, ""))
	assert.NotErrorIs(t, err, New(CodeNotFound, ""))
	assert.NotErrorIs(t, err, New(CodeInsufficientBalance, "other message"))
}

func TestAsAndIsCode(t *testing.T) {
	outer := fmt.Errorf("requesting payout: %w", New(CodeInsufficientBalance, "balance too low"))

	typed := As(outer)
	require.NotNil(t, typed)
	assert.Equal(t, CodeInsufficientBalance, typed.Code())
	assert.True(t, IsCode(outer, CodeInsufficientBalance))
	assert.False(t, IsCode(outer, CodeNotFound))
	assert.False(t, IsCode(nil, CodeInternal))
	assert.Nil(t, As(nil))
	assert.Nil(t, As(stdErrors.New("plain")))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(New(CodeProviderTransient, "timeout")))
	assert.False(t, Retryable(New(CodeProviderPermanent, "account closed")))
	assert.True(t, Retryable(stdErrors.New("uncoded")))
	assert.False(t, Retryable(nil))
}

func TestDumpCollectsPostgresDiagnostics(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_payouts_provider_payout_id", TableName: "payouts"}
	err := Wrap(CodeConflict, fmt.Errorf("insert payout: %w", pgErr), "duplicate payout")

	dump := Dump(err)
	assert.Equal(t, CodeConflict, dump.Code)
	assert.Len(t, dump.Chain, 3)
	assert.Equal(t, "23505", dump.Postgres.Code)

	fields := dump.Fields()
	assert.Equal(t, "ux_payouts_provider_payout_id", fields["pg_constraint"])
	assert.Equal(t, string(CodeConflict), fields["error_code"])
	assert.NotContains(t, fields, "pg_column")

	assert.Equal(t, ErrorDump{}, Dump(nil))
}
