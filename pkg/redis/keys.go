package redis

import "strings"

const defaultNamespace = "cw"

// Keyspace prefixes every key the wallet writes so several environments can
// share one Redis.
type Keyspace struct {
	prefix string
}

// NewKeyspace trims the namespace and falls back to "cw".
func NewKeyspace(namespace string) Keyspace {
	namespace = strings.Trim(strings.TrimSpace(namespace), ":")
	if namespace == "" {
		namespace = defaultNamespace
	}
	return Keyspace{prefix: namespace}
}

// Key joins the non-empty parts under the namespace.
func (k Keyspace) Key(parts ...string) string {
	var b strings.Builder
	b.WriteString(k.namespace())
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

func (k Keyspace) namespace() string {
	if k.prefix == "" {
		return defaultNamespace
	}
	return k.prefix
}

// IdempotencyKey scopes a webhook event, consumer message or request key.
func (k Keyspace) IdempotencyKey(scope, id string) string {
	return k.Key("idempotency", scope, id)
}

// RateLimitKey scopes a fixed-window counter.
func (k Keyspace) RateLimitKey(policy, caller string) string {
	return k.Key("rate_limit", policy, caller)
}

// LockKey scopes a distributed job lease.
func (k Keyspace) LockKey(name string) string {
	return k.Key("lock", name)
}
