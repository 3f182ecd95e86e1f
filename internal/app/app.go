// Package app assembles the wallet domain services shared by the binaries.
package app

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tripcreators/creator-wallet/internal/accounts"
	"github.com/tripcreators/creator-wallet/internal/commission"
	"github.com/tripcreators/creator-wallet/internal/ledger"
	"github.com/tripcreators/creator-wallet/internal/payouts"
	"github.com/tripcreators/creator-wallet/internal/sales"
	"github.com/tripcreators/creator-wallet/internal/wallets"
	"github.com/tripcreators/creator-wallet/pkg/config"
	"github.com/tripcreators/creator-wallet/pkg/db"
	"github.com/tripcreators/creator-wallet/pkg/enums"
	"github.com/tripcreators/creator-wallet/pkg/logger"
	"github.com/tripcreators/creator-wallet/pkg/outbox"
	pkgstripe "github.com/tripcreators/creator-wallet/pkg/stripe"
)

// Services holds the wired domain layer.
type Services struct {
	LedgerRepo   ledger.Repository
	AccountsRepo accounts.Repository
	Outbox       *outbox.Service

	Sales      sales.Service
	Wallets    wallets.Service
	Commission commission.Service
	Payouts    payouts.Service
	// Accounts is nil when no account provider was supplied.
	Accounts accounts.Service
}

// Options tune the service graph for a binary.
type Options struct {
	Currency       enums.Currency
	DefaultMinimum decimal.Decimal
	// Provider backs payout-account onboarding. Workers that never onboard
	// creators may leave it nil.
	Provider *pkgstripe.Client
}

// OptionsFromConfig derives Options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	currency, err := enums.ParseCurrency(cfg.Payouts.Currency)
	if err != nil {
		return Options{}, fmt.Errorf("payout currency: %w", err)
	}
	minimum, err := cfg.Payouts.Minimum()
	if err != nil {
		return Options{}, err
	}
	return Options{Currency: currency, DefaultMinimum: minimum}, nil
}

// NewServices wires repositories and services over one database client.
func NewServices(client *db.Client, opts Options, logg *logger.Logger) (*Services, error) {
	if client == nil {
		return nil, fmt.Errorf("database client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if !opts.Currency.IsValid() {
		opts.Currency = enums.CurrencyUSD
	}

	conn := client.DB()
	ledgerRepo := ledger.NewRepository(conn)
	store, err := ledger.NewStore(ledgerRepo)
	if err != nil {
		return nil, fmt.Errorf("ledger store: %w", err)
	}
	salesRepo := sales.NewRepository(conn)
	salesSvc, err := sales.NewService(salesRepo, client, opts.Currency)
	if err != nil {
		return nil, fmt.Errorf("sales service: %w", err)
	}
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)

	walletSvc, err := wallets.NewService(ledgerRepo, store, salesRepo, client, outboxSvc, logg)
	if err != nil {
		return nil, fmt.Errorf("wallet service: %w", err)
	}
	commissionSvc, err := commission.NewService(commission.NewPolicyRepository(conn), salesRepo, salesSvc, walletSvc, client, logg)
	if err != nil {
		return nil, fmt.Errorf("commission service: %w", err)
	}

	accountsRepo := accounts.NewRepository(conn)
	payoutSvc, err := payouts.NewService(payouts.ServiceParams{
		Repo:           payouts.NewRepository(conn),
		Wallets:        walletSvc,
		Ledger:         ledgerRepo,
		Accounts:       accountsRepo,
		Tx:             client,
		Outbox:         outboxSvc,
		DefaultMinimum: opts.DefaultMinimum,
		Logger:         logg,
	})
	if err != nil {
		return nil, fmt.Errorf("payout service: %w", err)
	}

	services := &Services{
		LedgerRepo:   ledgerRepo,
		AccountsRepo: accountsRepo,
		Outbox:       outboxSvc,
		Sales:        salesSvc,
		Wallets:      walletSvc,
		Commission:   commissionSvc,
		Payouts:      payoutSvc,
	}
	if opts.Provider != nil {
		accountSvc, err := accounts.NewService(accountsRepo, opts.Provider, walletSvc, opts.Currency, logg)
		if err != nil {
			return nil, fmt.Errorf("account service: %w", err)
		}
		services.Accounts = accountSvc
	}
	return services, nil
}
