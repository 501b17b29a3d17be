package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryKV implements keyValueStore over a map
type memoryKV struct {
	data    map[string]string
	ttls    map[string]time.Duration
	failSet error
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryKV) SetNX(_ context.Context, key string, value interface{}, exp time.Duration) *redis.BoolCmd {
	if m.failSet != nil {
		return redis.NewBoolResult(false, m.failSet)
	}
	if _, ok := m.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = value.(string)
	m.ttls[key] = exp
	return redis.NewBoolResult(true, nil)
}

func (m *memoryKV) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryKV) Set(_ context.Context, key string, value interface{}, exp time.Duration) *redis.StatusCmd {
	m.data[key] = value.(string)
	m.ttls[key] = exp
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryKV) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestIdempotencyLifecycle(t *testing.T) {
	ctx := context.Background()
	kv := newMemoryKV()
	store := &IdempotencyStore{rdb: kv, ttl: time.Hour}

	id, reserved, err := store.Reserve(ctx, "7:abc")
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.Zero(t, id)
	assert.Equal(t, "pending", kv.data["idempotency:checkout:7:abc"])
	assert.Equal(t, time.Hour, kv.ttls["idempotency:checkout:7:abc"])

	// in flight
	id, reserved, err = store.Reserve(ctx, "7:abc")
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Zero(t, id)

	require.NoError(t, store.Complete(ctx, "7:abc", 42))

	id, reserved, err = store.Reserve(ctx, "7:abc")
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Equal(t, uint(42), id)
}

func TestIdempotencyRelease(t *testing.T) {
	ctx := context.Background()
	store := &IdempotencyStore{rdb: newMemoryKV(), ttl: time.Minute}

	_, reserved, err := store.Reserve(ctx, "k")
	require.NoError(t, err)
	require.True(t, reserved)

	require.NoError(t, store.Release(ctx, "k"))

	_, reserved, err = store.Reserve(ctx, "k")
	require.NoError(t, err)
	assert.True(t, reserved)
}

func TestIdempotencyErrors(t *testing.T) {
	ctx := context.Background()

	kv := newMemoryKV()
	kv.failSet = errors.New("connection refused")
	store := &IdempotencyStore{rdb: kv, ttl: time.Minute}
	_, _, err := store.Reserve(ctx, "k")
	assert.ErrorContains(t, err, "connection refused")

	kv = newMemoryKV()
	kv.data["idempotency:checkout:k"] = "garbage"
	store = &IdempotencyStore{rdb: kv, ttl: time.Minute}
	_, _, err = store.Reserve(ctx, "k")
	assert.ErrorContains(t, err, "corrupt idempotency value")
}
