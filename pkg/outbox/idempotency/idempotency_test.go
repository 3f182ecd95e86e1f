package idempotency

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripcreators/creator-wallet/pkg/redis"
)

type memoryStore struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *memoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := s.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (s *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value.(string)
	s.ttls[key] = ttl
	return true, nil
}

func (s *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

func (s *memoryStore) IdempotencyKey(scope, id string) string {
	return "cw:idempotency:" + scope + ":" + id
}

func TestClaimOncePerConsumer(t *testing.T) {
	store := newMemoryStore()
	m, err := NewManager(store, 24*time.Hour)
	require.NoError(t, err)
	ctx := context.Background()
	eventID := uuid.NewString()

	first, err := m.Claim(ctx, "settlement-worker", eventID)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := m.Claim(ctx, "settlement-worker", eventID)
	require.NoError(t, err)
	assert.False(t, again)

	other, err := m.Claim(ctx, "ledger-notifier", eventID)
	require.NoError(t, err)
	assert.True(t, other)

	key := "cw:idempotency:consumer:settlement-worker:" + eventID
	assert.Equal(t, 24*time.Hour, store.ttls[key])
}

func TestReleaseAllowsReprocessing(t *testing.T) {
	m, err := NewManager(newMemoryStore(), time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = m.Claim(ctx, "settlement-worker", "evt-1")
	require.NoError(t, err)

	marker, err := m.ClaimedBy(ctx, "settlement-worker", "evt-1")
	require.NoError(t, err)
	assert.True(t, strings.Contains(marker, "@"), marker)

	require.NoError(t, m.Release(ctx, "settlement-worker", "evt-1"))
	marker, err = m.ClaimedBy(ctx, "settlement-worker", "evt-1")
	require.NoError(t, err)
	assert.Empty(t, marker)

	claimed, err := m.Claim(ctx, "settlement-worker", "evt-1")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestClaimValidatesInput(t *testing.T) {
	m, err := NewManager(newMemoryStore(), time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = m.Claim(ctx, " ", "evt-1")
	assert.ErrorIs(t, err, ErrConsumerRequired)
	_, err = m.Claim(ctx, "settlement-worker", "")
	assert.ErrorIs(t, err, ErrEventIDRequired)
	_, err = m.Claim(ctx, "settlement-worker", uuid.Nil.String())
	assert.ErrorIs(t, err, ErrEventIDRequired)
}

func TestClaimSurfacesStoreErrors(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("redis down")
	m, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	_, err = m.Claim(context.Background(), "settlement-worker", "evt-1")
	assert.Error(t, err)
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(nil, time.Hour)
	assert.Error(t, err)
	_, err = NewManager(newMemoryStore(), 0)
	assert.Error(t, err)
}
