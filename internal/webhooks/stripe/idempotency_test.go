package stripewebhook

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]any
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, _ := m.data[key].(string)
	return v, nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string { return scope + ":" + id }

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func TestGuardOnceRunsFirstDeliveryOnly(t *testing.T) {
	guard, err := NewIdempotencyGuard(&memoryStore{data: map[string]any{}}, time.Hour, "stripe-webhook")
	require.NoError(t, err)

	calls := 0
	fn := func(context.Context) error { calls++; return nil }

	ran, err := guard.Once(context.Background(), "evt_1", fn)
	require.NoError(t, err)
	assert.True(t, ran)

	ran, err = guard.Once(context.Background(), "evt_1", fn)
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Equal(t, 1, calls)
}

func TestGuardOnceReleasesClaimOnFailure(t *testing.T) {
	store := &memoryStore{data: map[string]any{}}
	guard, err := NewIdempotencyGuard(store, time.Hour, "stripe-webhook")
	require.NoError(t, err)

	boom := errors.New("db down")
	ran, err := guard.Once(context.Background(), "evt_2", func(context.Context) error { return boom })
	assert.True(t, ran)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, store.data)

	ran, err = guard.Once(context.Background(), "evt_2", func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestGuardRejectsBlankInput(t *testing.T) {
	_, err := NewIdempotencyGuard(&memoryStore{data: map[string]any{}}, time.Hour, "  ")
	assert.Error(t, err)

	guard, err := NewIdempotencyGuard(&memoryStore{data: map[string]any{}}, time.Hour, "stripe-webhook")
	require.NoError(t, err)
	_, err = guard.Once(context.Background(), " ", func(context.Context) error { return nil })
	assert.Error(t, err)
}
