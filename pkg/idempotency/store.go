package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is a redis-backed at-most-once guard. Acquire is a SetNX with TTL:
// the first caller for a key wins, later callers back off until expiry.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) SweepKey(orderID string) string {
	return fmt.Sprintf("sweep:%s", orderID)
}

// Acquire reports whether the caller owns the key for the TTL window.
func (s *Store) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Release drops the key early, letting another caller retry before expiry.
func (s *Store) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
