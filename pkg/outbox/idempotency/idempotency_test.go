package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type claimStore struct {
	claims map[string]time.Duration
	err    error
}

func newClaimStore() *claimStore {
	return &claimStore{claims: map[string]time.Duration{}}
}

func (s *claimStore) Get(context.Context, string) (string, error) { return "", nil }

func (s *claimStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if _, taken := s.claims[key]; taken {
		return false, nil
	}
	s.claims[key] = ttl
	return true, nil
}

func (s *claimStore) IdempotencyKey(scope, id string) string {
	return "pp:idempotency:" + scope + ":" + id
}

func (s *claimStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.claims, key)
	}
	return nil
}

const materializer = "notification-materializer"

func TestClaimOncePerConsumer(t *testing.T) {
	store := newClaimStore()
	deduper, err := NewDeduper(store, 72*time.Hour)
	require.NoError(t, err)
	ctx := context.Background()
	eventID := uuid.New()

	first, err := deduper.Claim(ctx, materializer, eventID)
	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, 72*time.Hour, store.claims["pp:idempotency:evt:"+materializer+":"+eventID.String()])

	again, err := deduper.Claim(ctx, materializer, eventID)
	require.NoError(t, err)
	assert.False(t, again)

	other, err := deduper.Claim(ctx, "email-digest", eventID)
	require.NoError(t, err)
	assert.True(t, other, "claims are scoped per consumer")
}

func TestReleaseAllowsRetry(t *testing.T) {
	deduper, err := NewDeduper(newClaimStore(), time.Hour)
	require.NoError(t, err)
	ctx := context.Background()
	eventID := uuid.New()

	_, err = deduper.Claim(ctx, materializer, eventID)
	require.NoError(t, err)
	require.NoError(t, deduper.Release(ctx, materializer, eventID))

	first, err := deduper.Claim(ctx, materializer, eventID)
	require.NoError(t, err)
	assert.True(t, first)
}

func TestClaimErrors(t *testing.T) {
	store := newClaimStore()
	deduper, err := NewDeduper(store, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = deduper.Claim(ctx, "", uuid.New())
	assert.Error(t, err)
	_, err = deduper.Claim(ctx, materializer, uuid.Nil)
	assert.Error(t, err)
	assert.Error(t, deduper.Release(ctx, "", uuid.New()))

	store.err = errors.New("redis down")
	_, err = deduper.Claim(ctx, materializer, uuid.New())
	assert.ErrorIs(t, err, store.err)
}

func TestNewDeduperValidates(t *testing.T) {
	_, err := NewDeduper(nil, time.Hour)
	assert.Error(t, err)
	_, err = NewDeduper(newClaimStore(), -time.Second)
	assert.Error(t, err)
}
