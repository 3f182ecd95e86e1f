package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tripcreators/creator-wallet/api/middleware"
	"github.com/tripcreators/creator-wallet/api/responses"
	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
	"github.com/tripcreators/creator-wallet/pkg/logger"
)

// endpoint is a handler body that returns its outcome for handle to write.
type endpoint func(r *http.Request) (status int, body any, err error)

func ok(body any) (int, any, error)      { return http.StatusOK, body, nil }
func created(body any) (int, any, error) { return http.StatusCreated, body, nil }
func fail(err error) (int, any, error)   { return 0, nil, err }

// handle adapts fn to net/http. A missing service answers 500 on every call
// so a wiring mistake shows up on the first request instead of as a panic.
func handle(logg *logger.Logger, wired bool, service string, fn endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !wired {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, service+" service unavailable"))
			return
		}
		status, body, err := fn(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, status, body)
	}
}

// actorID returns the authenticated user id placed on the context by the auth middleware.
func actorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}
