package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripcreators/creator-wallet/internal/accounts"
	"github.com/tripcreators/creator-wallet/internal/commission"
	"github.com/tripcreators/creator-wallet/internal/ledger"
	"github.com/tripcreators/creator-wallet/internal/payouts"
	"github.com/tripcreators/creator-wallet/internal/sales"
	"github.com/tripcreators/creator-wallet/internal/wallets"
	pkgAuth "github.com/tripcreators/creator-wallet/pkg/auth"
	"github.com/tripcreators/creator-wallet/pkg/config"
	"github.com/tripcreators/creator-wallet/pkg/db"
	"github.com/tripcreators/creator-wallet/pkg/db/dbtest"
	"github.com/tripcreators/creator-wallet/pkg/db/models"
	"github.com/tripcreators/creator-wallet/pkg/enums"
	"github.com/tripcreators/creator-wallet/pkg/logger"
	"github.com/tripcreators/creator-wallet/pkg/outbox"
	"github.com/tripcreators/creator-wallet/pkg/security"
)

const testIngestKey = "cwk_router-test-key"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
		Ingest: config.IngestConfig{
			ArgonMemoryKB:    1024,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		},
	}
	hash, err := security.HashAPIKey(testIngestKey, cfg.Ingest)
	require.NoError(t, err)
	cfg.Ingest.KeyHash = hash
	return cfg
}

type testApp struct {
	client *db.Client
	router http.Handler
	cfg    *config.Config
	wallet wallets.Service
}

func newTestApp(t *testing.T) testApp {
	t.Helper()
	cfg := testConfig(t)
	client := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})

	ledgerRepo := ledger.NewRepository(client.DB())
	store, err := ledger.NewStore(ledgerRepo)
	require.NoError(t, err)
	salesRepo := sales.NewRepository(client.DB())
	salesSvc, err := sales.NewService(salesRepo, client, enums.CurrencyUSD)
	require.NoError(t, err)
	outboxSvc := outbox.NewService(outbox.NewRepository(client.DB()), logg)
	walletSvc, err := wallets.NewService(ledgerRepo, store, salesRepo, client, outboxSvc, logg)
	require.NoError(t, err)
	commissionSvc, err := commission.NewService(commission.NewPolicyRepository(client.DB()), salesRepo, salesSvc, walletSvc, client, logg)
	require.NoError(t, err)
	payoutSvc, err := payouts.NewService(payouts.ServiceParams{
		Repo:           payouts.NewRepository(client.DB()),
		Wallets:        walletSvc,
		Ledger:         ledgerRepo,
		Accounts:       accounts.NewRepository(client.DB()),
		Tx:             client,
		Outbox:         outboxSvc,
		DefaultMinimum: decimal.RequireFromString("5.00"),
		Logger:         logg,
	})
	require.NoError(t, err)

	router := NewRouter(cfg, logg, Dependencies{
		DB:         client,
		Payouts:    payoutSvc,
		Wallets:    walletSvc,
		Commission: commissionSvc,
	})
	return testApp{client: client, router: router, cfg: cfg, wallet: walletSvc}
}

func (a testApp) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	a.router.ServeHTTP(resp, req)
	return resp
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole, userID uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.Mint(cfg.JWT, time.Now(), pkgAuth.Identity{UserID: userID, Role: role})
	require.NoError(t, err)
	return token
}

func TestHealthRoutes(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/health/live", "", "").Code)
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/health/ready", "", "").Code)
}

func TestCreatorRoutesRequireCreatorRole(t *testing.T) {
	app := newTestApp(t)

	resp := app.do(t, http.MethodGet, "/api/v1/creator/payouts", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	admin := buildToken(t, app.cfg, enums.UserRoleAdmin, uuid.New())
	resp = app.do(t, http.MethodGet, "/api/v1/creator/payouts", admin, "")
	assert.Equal(t, http.StatusForbidden, resp.Code)

	creator := buildToken(t, app.cfg, enums.UserRoleCreator, uuid.New())
	resp = app.do(t, http.MethodGet, "/api/v1/creator/payouts", creator, "")
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	app := newTestApp(t)

	creator := buildToken(t, app.cfg, enums.UserRoleCreator, uuid.New())
	resp := app.do(t, http.MethodPut, "/api/v1/admin/commission/global", creator, `{"percent":"20"}`)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestIngestRequiresKey(t *testing.T) {
	app := newTestApp(t)
	body := `{"transaction_ref":"TX-1","booking_ref":"BK-1","event_type":"CONFIRMATION"}`

	resp := app.do(t, http.MethodPost, "/api/v1/ingest/sales", "", body)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/sales", strings.NewReader(body))
	req.Header.Set("X-Ingest-Key", "cwk_wrong")
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSaleToPayoutApprovalOverHTTP(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	creatorID := uuid.New()
	adminID := uuid.New()
	creator := buildToken(t, app.cfg, enums.UserRoleCreator, creatorID)
	admin := buildToken(t, app.cfg, enums.UserRoleAdmin, adminID)

	_, err := app.wallet.EnsureWallet(ctx, creatorID, enums.CurrencyUSD)
	require.NoError(t, err)
	accountID := "acct_router"
	require.NoError(t, app.client.DB().Create(&models.CreatorAccount{
		CreatorID:       creatorID,
		StripeAccountID: &accountID,
		PayoutsEnabled:  true,
	}).Error)

	resp := app.do(t, http.MethodPut, "/api/v1/admin/commission/global", admin, `{"percent":"20"}`)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	sale := `{"transaction_ref":"TX-9","booking_ref":"BK-9","event_type":"CONFIRMATION","creator_id":"` +
		creatorID.String() + `","platform_commission":"100.00"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/sales", strings.NewReader(sale))
	req.Header.Set("X-Ingest-Key", testIngestKey)
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp = app.do(t, http.MethodPost, "/api/v1/creator/payouts", creator, `{"amount":"20.00"}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var created struct {
		Data struct {
			ID     uuid.UUID `json:"id"`
			Status string    `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "requested", created.Data.Status)

	resp = app.do(t, http.MethodPost, "/api/v1/creator/payouts", creator, `{"amount":"1.00"}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = app.do(t, http.MethodPost, "/api/v1/admin/payouts/"+created.Data.ID.String()+"/approve", admin, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = app.do(t, http.MethodPost, "/api/v1/admin/payouts/"+created.Data.ID.String()+"/approve", admin, "")
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = app.do(t, http.MethodGet, "/api/v1/creator/wallet/summary", creator, "")
	require.Equal(t, http.StatusOK, resp.Code)
	var summary struct {
		Data struct {
			AvailableBalance string `json:"available_balance"`
			PendingPayouts   string `json:"pending_payouts"`
			TotalEarned      string `json:"total_earned"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, "0.00", summary.Data.AvailableBalance)
	assert.Equal(t, "20.00", summary.Data.PendingPayouts)
	assert.Equal(t, "20.00", summary.Data.TotalEarned)

	resp = app.do(t, http.MethodGet, "/api/v1/creator/wallet/transactions", creator, "")
	require.Equal(t, http.StatusOK, resp.Code)
	var history struct {
		Data struct {
			Transactions []struct {
				Source string `json:"source"`
			} `json:"transactions"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	assert.Len(t, history.Data.Transactions, 2)
}
