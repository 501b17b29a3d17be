package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyPrefix = "idempotency:checkout:"
	pendingMarker     = "pending"
)

// keyValueStore is the subset of redis.Cmdable the idempotency store needs
type keyValueStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// IdempotencyStore records checkout idempotency keys in Redis. A key holds
// "pending" while its checkout runs and the order id once it completed.
type IdempotencyStore struct {
	rdb keyValueStore
	ttl time.Duration
}

// NewIdempotencyStore creates a store whose keys expire after ttl
func NewIdempotencyStore(rdb redis.Cmdable, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

// Reserve claims key for a new checkout
func (s *IdempotencyStore) Reserve(ctx context.Context, key string) (uint, bool, error) {
	redisKey := idempotencyPrefix + key

	// The key can expire between SETNX and GET, so try twice.
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.rdb.SetNX(ctx, redisKey, pendingMarker, s.ttl).Result()
		if err != nil {
			return 0, false, fmt.Errorf("failed to reserve idempotency key: %w", err)
		}
		if ok {
			return 0, true, nil
		}

		val, err := s.rdb.Get(ctx, redisKey).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return 0, false, fmt.Errorf("failed to read idempotency key: %w", err)
		}
		if val == pendingMarker {
			return 0, false, nil
		}

		id, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("corrupt idempotency value %q: %w", val, err)
		}
		return uint(id), false, nil
	}
	return 0, false, nil
}

// Complete stores the order id the checkout produced
func (s *IdempotencyStore) Complete(ctx context.Context, key string, orderID uint) error {
	return s.rdb.Set(ctx, idempotencyPrefix+key, strconv.FormatUint(uint64(orderID), 10), s.ttl).Err()
}

// Release forgets key so the checkout can be retried
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, idempotencyPrefix+key).Err()
}
