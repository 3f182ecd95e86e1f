package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripcreators/creator-wallet/internal/commission"
	"github.com/tripcreators/creator-wallet/internal/sales"
	"github.com/tripcreators/creator-wallet/pkg/config"
	"github.com/tripcreators/creator-wallet/pkg/db/models"
	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
)

type stubIngester struct {
	input   sales.UpsertSaleInput
	failure pkgerrors.Code
}

func (s *stubIngester) IngestSale(_ context.Context, input sales.UpsertSaleInput) (*commission.SaleCommission, error) {
	s.input = input
	return &commission.SaleCommission{
		Sale:              &models.Sale{ID: uuid.New(), TransactionRef: input.TransactionRef},
		CommissionFailure: s.failure,
	}, nil
}

func TestIngestSaleMapsPayload(t *testing.T) {
	svc := &stubIngester{}
	creatorID := uuid.New()
	body := `{"transaction_ref":"TX-100","booking_ref":"BK-1","event_type":"CONFIRMATION","product_code":"TOUR-9",` +
		`"creator_id":"` + creatorID.String() + `","travel_date":"2026-07-14","price":"480.00","platform_commission":"100.00","currency":"USD"}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/sales", strings.NewReader(body))
	rec := httptest.NewRecorder()
	IngestSale(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "TX-100", svc.input.TransactionRef)
	require.NotNil(t, svc.input.CreatorID)
	assert.Equal(t, creatorID, *svc.input.CreatorID)
	require.NotNil(t, svc.input.TravelDate)
	assert.Equal(t, 14, svc.input.TravelDate.Day())
	assert.True(t, svc.input.PlatformCommission.Valid)
	assert.Equal(t, "100", svc.input.PlatformCommission.Decimal.String())
	assert.JSONEq(t, body, string(svc.input.RawPayload))
}

func TestIngestSaleReportsPendingCommission(t *testing.T) {
	svc := &stubIngester{failure: pkgerrors.CodeNotFound}
	body := `{"transaction_ref":"TX-7","booking_ref":"BK-7","event_type":"CONFIRMATION","platform_commission":"10.00"}`

	rec := httptest.NewRecorder()
	IngestSale(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/ingest/sales", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var payload struct {
		Data SaleCommissionDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "TX-7", payload.Data.TransactionRef)
	assert.True(t, payload.Data.CommissionPending)
	assert.Equal(t, string(pkgerrors.CodeNotFound), payload.Data.CommissionError)
	assert.False(t, payload.Data.Credited)
}

func TestIngestSaleValidation(t *testing.T) {
	for name, body := range map[string]string{
		"missing ref":  `{"booking_ref":"BK","event_type":"CONFIRMATION"}`,
		"bad creator":  `{"transaction_ref":"TX","booking_ref":"BK","event_type":"CONFIRMATION","creator_id":"nope"}`,
		"bad date":     `{"transaction_ref":"TX","booking_ref":"BK","event_type":"CONFIRMATION","travel_date":"14/07/2026"}`,
		"bad amount":   `{"transaction_ref":"TX","booking_ref":"BK","event_type":"CONFIRMATION","price":"lots"}`,
		"unknown keys": `{"transaction_ref":"TX","booking_ref":"BK","event_type":"CONFIRMATION","extra":1}`,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/sales", strings.NewReader(body))
			rec := httptest.NewRecorder()
			IngestSale(&stubIngester{}, nil).ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Env = "test"

	ok := map[string]Pinger{"database": pingFunc(func(context.Context) error { return nil })}
	rec := httptest.NewRecorder()
	HealthReady(cfg, ok, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get("X-Creator-Wallet-Env"))

	down := map[string]Pinger{"redis": pingFunc(func(context.Context) error { return errors.New("connection refused") })}
	rec = httptest.NewRecorder()
	HealthReady(cfg, down, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
