package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/tripcreators/creator-wallet/api/responses"
	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
	"github.com/tripcreators/creator-wallet/pkg/logger"
)

// Stripe caps event payloads well below this.
const maxWebhookBody = 1 << 16

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type StripeWebhookGuard interface {
	Once(ctx context.Context, eventID string, fn func(context.Context) error) (bool, error)
}

type StripeSigner interface {
	SigningSecret() string
}

// StripeWebhook verifies and applies Stripe Connect payout and account
// callbacks. A redelivered event id answers 200 without being applied again.
func StripeWebhook(svc StripeWebhookService, signer StripeSigner, guard StripeWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	var unavailable error
	switch {
	case svc == nil:
		unavailable = pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable")
	case signer == nil:
		unavailable = pkgerrors.New(pkgerrors.CodeInternal, "stripe client unavailable")
	case guard == nil:
		unavailable = pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if unavailable != nil {
			responses.WriteError(ctx, logg, w, unavailable)
			return
		}

		event, err := verifyStripeEvent(w, r, signer.SigningSecret())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{"stripe_event_id": event.ID, "stripe_event_type": string(event.Type)})
		}

		applied, err := guard.Once(ctx, event.ID, func(ctx context.Context) error {
			return svc.HandleEvent(ctx, &event)
		})
		switch {
		case err != nil && !applied && pkgerrors.As(err) == nil:
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		case err != nil:
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithField(ctx, "applied", applied), "stripe event handled")
		}
		responses.WriteSuccess(w, nil)
	}
}

func verifyStripeEvent(w http.ResponseWriter, r *http.Request, secret string) (stripe.Event, error) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body")
	}
	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		return stripe.Event{}, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing")
	}
	// the account's API version may trail the SDK's pinned version
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "verify signature")
	}
	return event, nil
}
