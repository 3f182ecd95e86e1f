package wallets

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripcreators/creator-wallet/internal/ledger"
	"github.com/tripcreators/creator-wallet/internal/sales"
	"github.com/tripcreators/creator-wallet/pkg/db"
	"github.com/tripcreators/creator-wallet/pkg/db/dbtest"
	"github.com/tripcreators/creator-wallet/pkg/db/models"
	"github.com/tripcreators/creator-wallet/pkg/enums"
	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
	"github.com/tripcreators/creator-wallet/pkg/logger"
	"github.com/tripcreators/creator-wallet/pkg/outbox"
	"github.com/tripcreators/creator-wallet/pkg/pagination"
)

func newTestService(t *testing.T) (*db.Client, Service) {
	t.Helper()
	client := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "wallets-test", Output: io.Discard})

	repo := ledger.NewRepository(client.DB())
	store, err := ledger.NewStore(repo)
	require.NoError(t, err)
	svc, err := NewService(repo, store, sales.NewRepository(client.DB()), client, outbox.NewService(outbox.NewRepository(client.DB()), logg), logg)
	require.NoError(t, err)
	return client, svc
}

func money(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil, nil, nil, nil, nil)
	require.Error(t, err)
}

func TestEnsureWalletIsIdempotent(t *testing.T) {
	_, svc := newTestService(t)
	ctx := context.Background()
	creatorID := uuid.New()

	first, err := svc.EnsureWallet(ctx, creatorID, enums.CurrencyUSD)
	require.NoError(t, err)
	second, err := svc.EnsureWallet(ctx, creatorID, enums.CurrencyUSD)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Balance.IsZero())
	assert.Equal(t, enums.WalletStatusActive, second.Status)

	_, err = svc.EnsureWallet(ctx, uuid.Nil, enums.CurrencyUSD)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreditAndDebit(t *testing.T) {
	_, svc := newTestService(t)
	ctx := context.Background()
	wallet, err := svc.EnsureWallet(ctx, uuid.New(), enums.CurrencyUSD)
	require.NoError(t, err)

	credit, err := svc.Credit(ctx, wallet.ID, Movement{Amount: money("75.50"), Source: enums.SourceAdjustment})
	require.NoError(t, err)
	assert.Equal(t, "0.00", credit.BalanceBefore.StringFixed(2))
	assert.Equal(t, "75.50", credit.BalanceAfter.StringFixed(2))

	debit, err := svc.Debit(ctx, wallet.ID, Movement{Amount: money("25.25"), Source: enums.SourcePayoutRequest})
	require.NoError(t, err)
	assert.Equal(t, "50.25", debit.BalanceAfter.StringFixed(2))
	assert.Equal(t, int64(2), debit.Sequence)

	_, err = svc.Debit(ctx, wallet.ID, Movement{Amount: money("50.26"), Source: enums.SourcePayoutRequest})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientBalance))

	_, err = svc.Credit(ctx, wallet.ID, Movement{Amount: money("0"), Source: enums.SourceAdjustment})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	stored, err := svc.GetWallet(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, "50.25", stored.Balance.StringFixed(2))
	assert.Equal(t, int64(2), stored.Version)
}

func TestMutationsRequireActiveWallet(t *testing.T) {
	_, svc := newTestService(t)
	ctx := context.Background()
	wallet, err := svc.EnsureWallet(ctx, uuid.New(), enums.CurrencyUSD)
	require.NoError(t, err)
	_, err = svc.Credit(ctx, wallet.ID, Movement{Amount: money("10.00"), Source: enums.SourceAdjustment})
	require.NoError(t, err)

	require.NoError(t, svc.SetStatus(ctx, wallet.ID, enums.WalletStatusSuspended))

	_, err = svc.Credit(ctx, wallet.ID, Movement{Amount: money("1.00"), Source: enums.SourceAdjustment})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeWalletNotActive))
	_, err = svc.Debit(ctx, wallet.ID, Movement{Amount: money("1.00"), Source: enums.SourcePayoutRequest})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeWalletNotActive))

	payoutID := uuid.New()
	row, err := svc.Credit(ctx, wallet.ID, Movement{Amount: money("5.00"), Source: enums.SourcePayoutFailed, PayoutID: &payoutID})
	require.NoError(t, err, "releasing reserved payout funds ignores wallet status")
	assert.Equal(t, "15.00", row.BalanceAfter.StringFixed(2))

	_, err = svc.Credit(ctx, uuid.New(), Movement{Amount: money("1.00"), Source: enums.SourceAdjustment})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestConcurrentMutationsConserveBalance(t *testing.T) {
	_, svc := newTestService(t)
	ctx := context.Background()
	wallet, err := svc.EnsureWallet(ctx, uuid.New(), enums.CurrencyUSD)
	require.NoError(t, err)
	_, err = svc.Credit(ctx, wallet.ID, Movement{Amount: money("100.00"), Source: enums.SourceAdjustment})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.Credit(ctx, wallet.ID, Movement{Amount: money("1.10"), Source: enums.SourceAdjustment})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := svc.Debit(ctx, wallet.ID, Movement{Amount: money("0.60"), Source: enums.SourcePayoutRequest})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := svc.GetWallet(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, "105.00", stored.Balance.StringFixed(2))
	assert.Equal(t, int64(21), stored.Version)

	rec, err := svc.ReconstructBalance(ctx, wallet.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent())
}

func TestApplySaleCommissionCreditsOnce(t *testing.T) {
	client, svc := newTestService(t)
	ctx := context.Background()
	creatorID := uuid.New()
	wallet, err := svc.EnsureWallet(ctx, creatorID, enums.CurrencyUSD)
	require.NoError(t, err)

	sale := &models.Sale{
		TransactionRef:    "TX-1",
		BookingRef:        "BR-1",
		EventType:         enums.SaleEventConfirmation,
		Status:            enums.SaleStatusConfirmed,
		ProductCode:       "TOUR-9",
		CreatorID:         &creatorID,
		Currency:          enums.CurrencyUSD,
		CreatorCommission: decimal.NewNullDecimal(money("12.34")),
	}
	require.NoError(t, client.DB().Create(sale).Error)

	first, err := svc.ApplySaleCommission(ctx, sale.ID)
	require.NoError(t, err)
	assert.True(t, first.Applied)
	require.NotNil(t, first.TransactionID)

	second, err := svc.ApplySaleCommission(ctx, sale.ID)
	require.NoError(t, err)
	assert.False(t, second.Applied)

	page, err := svc.ListTransactions(ctx, wallet.ID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	entry := page.Entries[0]
	assert.Equal(t, enums.SourceSaleCommission, entry.Source)
	require.NotNil(t, entry.SaleID)
	assert.Equal(t, sale.ID, *entry.SaleID)
	require.NotNil(t, entry.Reference)
	assert.Equal(t, "TX-1", *entry.Reference)
	assert.Contains(t, string(entry.Metadata), "TOUR-9")

	var events []models.OutboxEvent
	require.NoError(t, client.DB().Where("event_type = ?", enums.EventSaleCommissionApplied).Find(&events).Error)
	assert.Len(t, events, 1)
}

func TestApplySaleCommissionWithoutWalletLeavesSaleOpen(t *testing.T) {
	client, svc := newTestService(t)
	ctx := context.Background()
	creatorID := uuid.New()

	sale := &models.Sale{
		TransactionRef:    "TX-2",
		BookingRef:        "BR-2",
		EventType:         enums.SaleEventAmendment,
		Status:            enums.SaleStatusAmended,
		CreatorID:         &creatorID,
		Currency:          enums.CurrencyUSD,
		CreatorCommission: decimal.NewNullDecimal(money("3.00")),
	}
	require.NoError(t, client.DB().Create(sale).Error)

	_, err := svc.ApplySaleCommission(ctx, sale.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	var stored models.Sale
	require.NoError(t, client.DB().First(&stored, "id = ?", sale.ID).Error)
	assert.False(t, stored.IsCommissioned)
	assert.Nil(t, stored.WalletCreditedAt)
}

func TestApplySaleCommissionRejectsUncommissionableSale(t *testing.T) {
	client, svc := newTestService(t)
	ctx := context.Background()
	creatorID := uuid.New()
	_, err := svc.EnsureWallet(ctx, creatorID, enums.CurrencyUSD)
	require.NoError(t, err)

	cancelled := &models.Sale{
		TransactionRef:    "TX-3",
		BookingRef:        "BR-3",
		EventType:         enums.SaleEventCancellation,
		Status:            enums.SaleStatusConfirmed,
		CreatorID:         &creatorID,
		Currency:          enums.CurrencyUSD,
		CreatorCommission: decimal.NewNullDecimal(money("3.00")),
	}
	require.NoError(t, client.DB().Create(cancelled).Error)
	_, err = svc.ApplySaleCommission(ctx, cancelled.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	uncomputed := &models.Sale{
		TransactionRef: "TX-4",
		BookingRef:     "BR-4",
		EventType:      enums.SaleEventConfirmation,
		Status:         enums.SaleStatusConfirmed,
		CreatorID:      &creatorID,
		Currency:       enums.CurrencyUSD,
	}
	require.NoError(t, client.DB().Create(uncomputed).Error)
	_, err = svc.ApplySaleCommission(ctx, uncomputed.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.ApplySaleCommission(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListTransactionsPaginates(t *testing.T) {
	_, svc := newTestService(t)
	ctx := context.Background()
	wallet, err := svc.EnsureWallet(ctx, uuid.New(), enums.CurrencyUSD)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := svc.Credit(ctx, wallet.ID, Movement{Amount: money("1.00"), Source: enums.SourceAdjustment})
		require.NoError(t, err)
	}

	first, err := svc.ListTransactions(ctx, wallet.ID, pagination.Params{Limit: 3})
	require.NoError(t, err)
	require.Len(t, first.Entries, 3)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.ListTransactions(ctx, wallet.ID, pagination.Params{Limit: 3, Cursor: first.NextCursor})
	require.NoError(t, err)
	assert.Len(t, second.Entries, 2)
	assert.Empty(t, second.NextCursor)

	_, err = svc.ListTransactions(ctx, wallet.ID, pagination.Params{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
