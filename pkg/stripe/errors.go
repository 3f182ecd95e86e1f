package stripe

import (
	"errors"
	"net/http"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
)

// permanentCodes never succeed on retry without operator action.
var permanentCodes = map[string]struct{}{
	"balance_insufficient":    {},
	"payouts_not_allowed":     {},
	"account_invalid":         {},
	"bank_account_unverified": {},
	"bank_account_unusable":   {},
	"insufficient_funds":      {},
	"payouts_not_enabled":     {},
}

// IsPermanent reports whether a provider error must not be retried.
func IsPermanent(err error) bool {
	var serr *stripe.Error
	if !errors.As(err, &serr) {
		return false
	}
	if _, ok := permanentCodes[string(serr.Code)]; ok {
		return true
	}
	if serr.HTTPStatusCode == http.StatusTooManyRequests || serr.HTTPStatusCode >= http.StatusInternalServerError {
		return false
	}
	return serr.Type == stripe.ErrorTypeInvalidRequest && serr.Code == ""
}

// ErrorCode returns the provider's error code, or empty for non-provider errors.
func ErrorCode(err error) string {
	var serr *stripe.Error
	if errors.As(err, &serr) {
		return string(serr.Code)
	}
	return ""
}

// ErrorMessage returns a short failure reason suitable for storing on a payout.
func ErrorMessage(err error) string {
	var serr *stripe.Error
	if errors.As(err, &serr) {
		if serr.Code != "" {
			return string(serr.Code) + ": " + serr.Msg
		}
		return serr.Msg
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// Classify wraps a provider error as PROVIDER_PERMANENT or PROVIDER_TRANSIENT.
func Classify(err error, action string) error {
	if err == nil {
		return nil
	}
	if IsPermanent(err) {
		return pkgerrors.Wrap(pkgerrors.CodeProviderPermanent, err, action).
			WithDetails(map[string]any{"provider_code": ErrorCode(err)})
	}
	return pkgerrors.Wrap(pkgerrors.CodeProviderTransient, err, action)
}
