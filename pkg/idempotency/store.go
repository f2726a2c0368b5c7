// Package idempotency deduplicates order creation requests by their
// Idempotency-Key header, backed by redis.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func key(k string) string { return fmt.Sprintf("idem:order:%s", k) }

// Claim atomically takes ownership of an idempotency key. It returns false
// when another request already claimed the key.
func (s *Store) Claim(ctx context.Context, idemKey string) (bool, error) {
	return s.rdb.SetNX(ctx, key(idemKey), "in_progress", s.ttl).Result()
}

// Bind records the order id created under a claimed key so replays of the
// same key can point at the original order.
func (s *Store) Bind(ctx context.Context, idemKey, orderID string) error {
	return s.rdb.Set(ctx, key(idemKey), orderID, s.ttl).Err()
}

// OrderID returns the order id a key was bound to, or "" when the key is
// unknown.
func (s *Store) OrderID(ctx context.Context, idemKey string) (string, error) {
	v, err := s.rdb.Get(ctx, key(idemKey)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// Release frees a key after a failed creation so the client can retry.
func (s *Store) Release(ctx context.Context, idemKey string) error {
	return s.rdb.Del(ctx, key(idemKey)).Err()
}
