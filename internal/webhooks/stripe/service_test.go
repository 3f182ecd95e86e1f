package stripewebhook

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripcreators/creator-wallet/internal/accounts"
	"github.com/tripcreators/creator-wallet/internal/ledger"
	"github.com/tripcreators/creator-wallet/internal/payouts"
	"github.com/tripcreators/creator-wallet/internal/sales"
	"github.com/tripcreators/creator-wallet/internal/wallets"
	"github.com/tripcreators/creator-wallet/pkg/db"
	"github.com/tripcreators/creator-wallet/pkg/db/dbtest"
	"github.com/tripcreators/creator-wallet/pkg/db/models"
	"github.com/tripcreators/creator-wallet/pkg/enums"
	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
	"github.com/tripcreators/creator-wallet/pkg/logger"
	"github.com/tripcreators/creator-wallet/pkg/metrics"
	"github.com/tripcreators/creator-wallet/pkg/outbox"
)

type stubAccounts struct {
	calls   []string
	enabled bool
	err     error
}

func (s *stubAccounts) SetPayoutsEnabled(_ context.Context, stripeAccountID string, payoutsEnabled, _ bool) (*models.CreatorAccount, error) {
	s.calls = append(s.calls, stripeAccountID)
	s.enabled = payoutsEnabled
	if s.err != nil {
		return nil, s.err
	}
	return &models.CreatorAccount{StripeAccountID: &stripeAccountID, PayoutsEnabled: payoutsEnabled}, nil
}

type fixture struct {
	client   *db.Client
	payouts  payouts.Service
	wallets  wallets.Service
	accounts *stubAccounts
	svc      *Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "webhook-test", Output: io.Discard})

	ledgerRepo := ledger.NewRepository(client.DB())
	store, err := ledger.NewStore(ledgerRepo)
	require.NoError(t, err)
	outboxSvc := outbox.NewService(outbox.NewRepository(client.DB()), logg)
	walletSvc, err := wallets.NewService(ledgerRepo, store, sales.NewRepository(client.DB()), client, outboxSvc, logg)
	require.NoError(t, err)
	payoutSvc, err := payouts.NewService(payouts.ServiceParams{
		Repo:           payouts.NewRepository(client.DB()),
		Wallets:        walletSvc,
		Ledger:         ledgerRepo,
		Accounts:       accounts.NewRepository(client.DB()),
		Tx:             client,
		Outbox:         outboxSvc,
		DefaultMinimum: decimal.RequireFromString("1.00"),
		Logger:         logg,
	})
	require.NoError(t, err)

	stub := &stubAccounts{}
	svc, err := NewService(ServiceParams{
		Payouts:  payoutSvc,
		Accounts: stub,
		Metrics:  metrics.NewWebhookMetrics(prometheus.NewRegistry()),
		Logger:   logg,
	})
	require.NoError(t, err)
	return fixture{client: client, payouts: payoutSvc, wallets: walletSvc, accounts: stub, svc: svc}
}

// processing returns a payout that reached the provider with reference po_<n>.
func (f fixture) processing(t *testing.T, providerPayoutID string) (*models.Payout, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	creatorID := uuid.New()
	wallet, err := f.wallets.EnsureWallet(ctx, creatorID, enums.CurrencyUSD)
	require.NoError(t, err)
	_, err = f.wallets.Credit(ctx, wallet.ID, wallets.Movement{Amount: decimal.RequireFromString("20.00"), Source: enums.SourceAdjustment})
	require.NoError(t, err)
	accountID := "acct_" + creatorID.String()[:8]
	require.NoError(t, f.client.DB().Create(&models.CreatorAccount{CreatorID: creatorID, StripeAccountID: &accountID, PayoutsEnabled: true}).Error)

	payout, err := f.payouts.RequestPayout(ctx, creatorID, decimal.RequireFromString("20.00"))
	require.NoError(t, err)
	_, err = f.payouts.ApprovePayout(ctx, payout.ID, uuid.New())
	require.NoError(t, err)
	_, err = f.payouts.RecordTransfer(ctx, payout.ID, "tr_"+providerPayoutID)
	require.NoError(t, err)
	payout, err = f.payouts.RecordProviderPayout(ctx, payout.ID, providerPayoutID)
	require.NoError(t, err)
	return payout, wallet.ID
}

func (f fixture) balance(t *testing.T, walletID uuid.UUID) string {
	t.Helper()
	wallet, err := f.wallets.GetWallet(context.Background(), walletID)
	require.NoError(t, err)
	return wallet.Balance.StringFixed(2)
}

func payoutEvent(t *testing.T, eventType stripe.EventType, payout *stripe.Payout) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(payout)
	require.NoError(t, err)
	return &stripe.Event{
		ID:      "evt_" + uuid.NewString(),
		Type:    eventType,
		Created: time.Now().Unix(),
		Data:    &stripe.EventData{Raw: raw},
	}
}

func TestPayoutPaidCallbackCompletesPayout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payout, walletID := f.processing(t, "po_paid")

	event := payoutEvent(t, stripe.EventTypePayoutPaid, &stripe.Payout{ID: "po_paid"})
	require.NoError(t, f.svc.HandleEvent(ctx, event))
	require.NoError(t, f.svc.HandleEvent(ctx, event))

	stored, err := f.payouts.GetPayout(ctx, payout.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusPaid, stored.Status)
	require.NotNil(t, stored.PaidAt)
	assert.Equal(t, "0.00", f.balance(t, walletID))

	// a late failure for a paid payout still returns the money
	failed := payoutEvent(t, stripe.EventTypePayoutFailed, &stripe.Payout{ID: "po_paid", FailureMessage: "late"})
	require.NoError(t, f.svc.HandleEvent(ctx, failed))
	require.NoError(t, f.svc.HandleEvent(ctx, failed))
	assert.Equal(t, "20.00", f.balance(t, walletID))

	stored, err = f.payouts.GetPayout(ctx, payout.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusFailed, stored.Status)
}

func TestPaidAndFailedCallbacksAgreeInEitherOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, firstWallet := f.processing(t, "po_order_a")
	require.NoError(t, f.svc.HandleEvent(ctx, payoutEvent(t, stripe.EventTypePayoutFailed, &stripe.Payout{ID: "po_order_a"})))
	require.NoError(t, f.svc.HandleEvent(ctx, payoutEvent(t, stripe.EventTypePayoutPaid, &stripe.Payout{ID: "po_order_a"})))

	second, secondWallet := f.processing(t, "po_order_b")
	require.NoError(t, f.svc.HandleEvent(ctx, payoutEvent(t, stripe.EventTypePayoutPaid, &stripe.Payout{ID: "po_order_b"})))
	require.NoError(t, f.svc.HandleEvent(ctx, payoutEvent(t, stripe.EventTypePayoutFailed, &stripe.Payout{ID: "po_order_b"})))

	assert.Equal(t, f.balance(t, firstWallet), f.balance(t, secondWallet))
	assert.Equal(t, "20.00", f.balance(t, secondWallet))
	for _, id := range []uuid.UUID{first.ID, second.ID} {
		stored, err := f.payouts.GetPayout(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, enums.PayoutStatusFailed, stored.Status)
	}
}

func TestDuplicateFailedCallbackRefundsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payout, walletID := f.processing(t, "po_failed")

	event := payoutEvent(t, stripe.EventTypePayoutFailed, &stripe.Payout{
		ID:             "po_failed",
		FailureCode:    "account_closed",
		FailureMessage: "The bank account has been closed",
	})
	require.NoError(t, f.svc.HandleEvent(ctx, event))
	require.NoError(t, f.svc.HandleEvent(ctx, event))

	stored, err := f.payouts.GetPayout(ctx, payout.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusFailed, stored.Status)
	require.NotNil(t, stored.FailureReason)
	assert.Equal(t, "account_closed: The bank account has been closed", *stored.FailureReason)
	assert.Equal(t, "20.00", f.balance(t, walletID))

	var refunds int64
	require.NoError(t, f.client.DB().Model(&models.WalletTransaction{}).
		Where("payout_id = ? AND source = ?", payout.ID, enums.SourcePayoutFailed).Count(&refunds).Error)
	assert.Equal(t, int64(1), refunds)

	// paid after failure never resurrects the payout
	require.NoError(t, f.svc.HandleEvent(ctx, payoutEvent(t, stripe.EventTypePayoutPaid, &stripe.Payout{ID: "po_failed"})))
	stored, err = f.payouts.GetPayout(ctx, payout.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusFailed, stored.Status)
}

func TestCanceledCallbackRefunds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payout, walletID := f.processing(t, "po_canceled")

	require.NoError(t, f.svc.HandleEvent(ctx, payoutEvent(t, stripe.EventTypePayoutCanceled, &stripe.Payout{ID: "po_canceled"})))

	stored, err := f.payouts.GetPayout(ctx, payout.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusCancelled, stored.Status)
	assert.Equal(t, "20.00", f.balance(t, walletID))
}

func TestUnknownPayoutIsAcknowledged(t *testing.T) {
	f := newFixture(t)
	err := f.svc.HandleEvent(context.Background(), payoutEvent(t, stripe.EventTypePayoutPaid, &stripe.Payout{ID: "po_missing"}))
	assert.NoError(t, err)

	var count int64
	require.NoError(t, f.client.DB().Model(&models.WalletTransaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAccountUpdatedSyncsCapabilities(t *testing.T) {
	f := newFixture(t)
	raw, err := json.Marshal(&stripe.Account{ID: "acct_123", PayoutsEnabled: true, DetailsSubmitted: true})
	require.NoError(t, err)
	event := &stripe.Event{ID: "evt_acct", Type: stripe.EventTypeAccountUpdated, Data: &stripe.EventData{Raw: raw}}

	require.NoError(t, f.svc.HandleEvent(context.Background(), event))
	assert.Equal(t, []string{"acct_123"}, f.accounts.calls)
	assert.True(t, f.accounts.enabled)

	f.accounts.err = pkgerrors.New(pkgerrors.CodeDependency, "db down")
	assert.Error(t, f.svc.HandleEvent(context.Background(), event))
}

func TestHandleEventIgnoresOtherTypes(t *testing.T) {
	f := newFixture(t)
	event := &stripe.Event{ID: "evt_other", Type: stripe.EventTypeChargeSucceeded, Data: &stripe.EventData{Raw: []byte(`{}`)}}
	assert.NoError(t, f.svc.HandleEvent(context.Background(), event))
	assert.Error(t, f.svc.HandleEvent(context.Background(), &stripe.Event{}))
}
