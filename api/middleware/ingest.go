package middleware

import (
	"net/http"
	"strings"

	"github.com/tripcreators/creator-wallet/api/responses"
	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
	"github.com/tripcreators/creator-wallet/pkg/logger"
	"github.com/tripcreators/creator-wallet/pkg/security"
)

const ingestKeyHeader = "X-Ingest-Key"

// IngestKey admits the booking system by its API key. An empty hash disables
// the surface entirely.
func IngestKey(keyHash string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.TrimSpace(keyHash) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "sale ingestion disabled"))
				return
			}
			key := strings.TrimSpace(r.Header.Get(ingestKeyHeader))
			if key == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing ingest key"))
				return
			}
			ok, err := security.VerifyAPIKey(key, keyHash)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify ingest key"))
				return
			}
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid ingest key"))
				return
			}
			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithField(ctx, "actor_role", "ingest")
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
