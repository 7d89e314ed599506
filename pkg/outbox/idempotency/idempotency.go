// Package idempotency dedupes at-least-once event deliveries per consumer.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/petpair-backend/pkg/redis"
)

// Deduper records claimed event IDs in redis as
// pp:idempotency:evt:<consumer>:<event_id>.
type Deduper struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewDeduper keeps claims for ttl; zero keeps them until evicted.
func NewDeduper(store redis.IdempotencyStore, ttl time.Duration) (*Deduper, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Deduper{store: store, ttl: ttl}, nil
}

// Claim reports whether this delivery is the first for (consumer, eventID).
// A false result means another delivery already claimed it.
func (d *Deduper) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := d.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	return d.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), d.ttl)
}

// Release drops a claim so a redelivery can retry after a failed handler.
func (d *Deduper) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := d.key(consumer, eventID)
	if err != nil {
		return err
	}
	return d.store.Del(ctx, key)
}

func (d *Deduper) key(consumer string, eventID uuid.UUID) (string, error) {
	switch {
	case consumer == "":
		return "", errors.New("consumer name is required")
	case eventID == uuid.Nil:
		return "", errors.New("event id is required")
	}
	return d.store.IdempotencyKey("evt:"+consumer, eventID.String()), nil
}
