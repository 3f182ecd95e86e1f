package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tripcreators/creator-wallet/pkg/instance"
)

const defaultLockTTL = 4 * time.Minute

// Lock serializes cron passes across workers so reconciliation and export
// never run twice against the same ledger.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type holderLock interface {
	Holder(ctx context.Context) (string, error)
}

type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// lease is the value stored under the lock key.
type lease struct {
	instance string
	token    string
}

func (l lease) String() string { return l.instance + "/" + l.token }

func parseLease(raw string) lease {
	inst, token, _ := strings.Cut(raw, "/")
	return lease{instance: inst, token: token}
}

// RedisLock is a TTL lease taken with SETNX. Only the lease that was
// written by Acquire can be released by it.
type RedisLock struct {
	store redisStore
	key   string
	ttl   time.Duration
	self  string
	held  *lease
}

func NewRedisLock(store redisStore, key string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, errors.New("cron lock: redis store is required")
	case key == "":
		return nil, errors.New("cron lock: key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl, self: instance.GetID()}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	candidate := lease{instance: l.self, token: uuid.NewString()}
	won, err := l.store.SetNX(ctx, l.key, candidate.String(), l.ttl)
	if err != nil {
		return false, fmt.Errorf("cron lock %s: %w", l.key, err)
	}
	if won {
		l.held = &candidate
	}
	return won, nil
}

// Release is a no-op unless the stored lease is still ours.
func (l *RedisLock) Release(ctx context.Context) error {
	mine := l.held
	l.held = nil
	if mine == nil {
		return nil
	}
	current, ok, err := l.current(ctx)
	if err != nil || !ok || current != *mine {
		return err
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("cron lock %s: release: %w", l.key, err)
	}
	return nil
}

// Holder names the instance holding the lease, "" when nobody does.
func (l *RedisLock) Holder(ctx context.Context) (string, error) {
	current, _, err := l.current(ctx)
	return current.instance, err
}

func (l *RedisLock) current(ctx context.Context) (lease, bool, error) {
	raw, err := l.store.Get(ctx, l.key)
	switch {
	case errors.Is(err, redis.Nil):
		return lease{}, false, nil
	case err != nil:
		return lease{}, false, fmt.Errorf("cron lock %s: read: %w", l.key, err)
	}
	return parseLease(raw), true, nil
}
