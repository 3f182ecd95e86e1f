package stripe

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/account"
	"github.com/stripe/stripe-go/v84/accountlink"
	"github.com/stripe/stripe-go/v84/payout"
	"github.com/stripe/stripe-go/v84/transfer"

	"github.com/tripcreators/creator-wallet/pkg/enums"
)

var hundred = decimal.NewFromInt(100)

// TransferRequest moves platform funds to a connected account.
type TransferRequest struct {
	PayoutID    string
	CreatorID   string
	Destination string
	Amount      decimal.Decimal
	Currency    enums.Currency
}

// PayoutRequest pays a connected account's balance out to its bank.
type PayoutRequest struct {
	PayoutID  string
	CreatorID string
	AccountID string
	Amount    decimal.Decimal
	Currency  enums.Currency
}

// AccountRequest creates an Express connected account for a creator.
type AccountRequest struct {
	CreatorID string
	Email     string
	Country   string
}

// Provider is the subset of Stripe Connect the payout engine drives.
type Provider interface {
	CreateTransfer(ctx context.Context, req TransferRequest) (string, error)
	CreatePayout(ctx context.Context, req PayoutRequest) (string, error)
	CreateExpressAccount(ctx context.Context, req AccountRequest) (string, error)
	CreateAccountLink(ctx context.Context, accountID string) (string, error)
}

// ToCents converts a decimal amount to the smallest currency unit, rounding half-up.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// TransferIdempotencyKey is stable per payout and amount so retries reuse the transfer.
func TransferIdempotencyKey(payoutID string, cents int64) string {
	return fmt.Sprintf("transfer_%s_%d", payoutID, cents)
}

// PayoutIdempotencyKey is stable per payout so retries reuse the provider payout.
func PayoutIdempotencyKey(payoutID string) string {
	return "creator_payout_" + payoutID
}

// CreateTransfer funds the creator's connected account.
func (c *Client) CreateTransfer(ctx context.Context, req TransferRequest) (string, error) {
	cents := ToCents(req.Amount)
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(cents),
		Currency:    stripe.String(req.Currency.Lower()),
		Destination: stripe.String(req.Destination),
	}
	params.Context = ctx
	params.SetIdempotencyKey(TransferIdempotencyKey(req.PayoutID, cents))
	params.AddMetadata("payout_id", req.PayoutID)
	params.AddMetadata("creator_id", req.CreatorID)

	tr, err := transfer.New(params)
	if err != nil {
		return "", err
	}
	return tr.ID, nil
}

// CreatePayout pays out from the connected account's balance.
func (c *Client) CreatePayout(ctx context.Context, req PayoutRequest) (string, error) {
	params := &stripe.PayoutParams{
		Amount:   stripe.Int64(ToCents(req.Amount)),
		Currency: stripe.String(req.Currency.Lower()),
	}
	params.Context = ctx
	params.SetStripeAccount(req.AccountID)
	params.SetIdempotencyKey(PayoutIdempotencyKey(req.PayoutID))
	params.AddMetadata("payout_id", req.PayoutID)
	params.AddMetadata("creator_id", req.CreatorID)

	po, err := payout.New(params)
	if err != nil {
		return "", err
	}
	return po.ID, nil
}

// CreateExpressAccount opens an Express account with the transfers capability.
func (c *Client) CreateExpressAccount(ctx context.Context, req AccountRequest) (string, error) {
	params := &stripe.AccountParams{
		Type: stripe.String(string(stripe.AccountTypeExpress)),
		Capabilities: &stripe.AccountCapabilitiesParams{
			Transfers: &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		params.Email = stripe.String(email)
	}
	if country := strings.TrimSpace(req.Country); country != "" {
		params.Country = stripe.String(strings.ToUpper(country))
	}
	params.Context = ctx
	params.SetIdempotencyKey("creator_account_" + req.CreatorID)
	params.AddMetadata("creator_id", req.CreatorID)

	acct, err := account.New(params)
	if err != nil {
		return "", err
	}
	return acct.ID, nil
}

// CreateAccountLink returns a hosted onboarding URL for the connected account.
func (c *Client) CreateAccountLink(ctx context.Context, accountID string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(c.refreshURL),
		ReturnURL:  stripe.String(c.returnURL),
		Type:       stripe.String("account_onboarding"),
	}
	params.Context = ctx

	link, err := accountlink.New(params)
	if err != nil {
		return "", err
	}
	return link.URL, nil
}
