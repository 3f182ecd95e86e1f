package middleware

import "context"

type actorKey struct{}

// actor is the authenticated caller as resolved by Auth.
type actor struct {
	userID string
	role   string
}

func actorFrom(ctx context.Context) actor {
	if ctx == nil {
		return actor{}
	}
	a, _ := ctx.Value(actorKey{}).(actor)
	return a
}

func withActor(ctx context.Context, update func(*actor)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	a := actorFrom(ctx)
	update(&a)
	return context.WithValue(ctx, actorKey{}, a)
}

// UserIDFromContext returns the caller's user id, or "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string { return actorFrom(ctx).userID }

// RoleFromContext returns the caller's role, or "".
func RoleFromContext(ctx context.Context) string { return actorFrom(ctx).role }

func WithUserID(ctx context.Context, userID string) context.Context {
	return withActor(ctx, func(a *actor) { a.userID = userID })
}

func WithRole(ctx context.Context, role string) context.Context {
	return withActor(ctx, func(a *actor) { a.role = role })
}
