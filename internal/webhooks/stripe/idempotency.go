package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tripcreators/creator-wallet/pkg/outbox/idempotency"
	"github.com/tripcreators/creator-wallet/pkg/redis"
)

// IdempotencyGuard applies each Stripe event id at most once per TTL. Terminal
// payout states still protect the ledger; the guard spares the database work.
type IdempotencyGuard struct {
	claims *idempotency.Manager
	scope  string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return nil, errors.New("webhook guard: scope is required")
	}
	claims, err := idempotency.NewManager(store, ttl)
	if err != nil {
		return nil, fmt.Errorf("webhook guard: %w", err)
	}
	return &IdempotencyGuard{claims: claims, scope: scope}, nil
}

// Once runs fn for the first delivery of eventID and reports whether it ran.
// When fn fails the claim is dropped so Stripe's retry gets another go.
func (g *IdempotencyGuard) Once(ctx context.Context, eventID string, fn func(context.Context) error) (bool, error) {
	first, err := g.claims.Claim(ctx, g.scope, eventID)
	if err != nil || !first {
		return false, err
	}
	runErr := fn(ctx)
	if runErr == nil {
		return true, nil
	}
	if err := g.claims.Release(context.WithoutCancel(ctx), g.scope, eventID); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("release %s: %w", eventID, err))
	}
	return true, runErr
}
