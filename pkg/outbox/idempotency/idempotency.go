// Package idempotency records which outbox events a consumer has handled so
// Pub/Sub redelivery does not repeat side effects.
package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tripcreators/creator-wallet/pkg/instance"
	"github.com/tripcreators/creator-wallet/pkg/redis"
)

var (
	ErrConsumerRequired = errors.New("consumer name is required")
	ErrEventIDRequired  = errors.New("event id is required")
)

// Manager claims event ids per consumer with SETNX. A claim outlives the
// handler by ttl; Release drops it when the handler must run again.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	owner string
}

func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("idempotency ttl must be positive")
	}
	return &Manager{store: store, ttl: ttl, owner: instance.GetID()}, nil
}

// Claim reports true when this call recorded the event first. False means
// another delivery already claimed it.
func (m *Manager) Claim(ctx context.Context, consumer, eventID string) (bool, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	return m.store.SetNX(ctx, key, m.owner+"@"+time.Now().UTC().Format(time.RFC3339), m.ttl)
}

// Release forgets a claim so the next delivery is processed.
func (m *Manager) Release(ctx context.Context, consumer, eventID string) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

// ClaimedBy returns the "<instance>@<time>" marker of a claim, or "" when
// the event is unclaimed.
func (m *Manager) ClaimedBy(ctx context.Context, consumer, eventID string) (string, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return "", err
	}
	value, err := m.store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return value, err
}

func (m *Manager) key(consumer, eventID string) (string, error) {
	consumer = strings.TrimSpace(consumer)
	eventID = strings.TrimSpace(eventID)
	if consumer == "" {
		return "", ErrConsumerRequired
	}
	if eventID == "" || eventID == uuid.Nil.String() {
		return "", ErrEventIDRequired
	}
	return m.store.IdempotencyKey("consumer:"+consumer, eventID), nil
}
