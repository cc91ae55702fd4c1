package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) (*miniredis.Miniredis, *redisRateLimiter) {
	t.Helper()
	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { client.Close() })
	return mini, &redisRateLimiter{client: client}
}

func TestAllowWithinLimit(t *testing.T) {
	_, limiter := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "login:1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "request %d should be allowed", i+1)
	}

	ok, err := limiter.Allow(ctx, "login:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "fourth request exceeds the limit")
}

func TestWindowReset(t *testing.T) {
	mini, limiter := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := limiter.Allow(ctx, "chat:alice", 2, time.Minute)
		require.NoError(t, err)
	}
	ok, err := limiter.Allow(ctx, "chat:alice", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	mini.FastForward(61 * time.Second)

	ok, err = limiter.Allow(ctx, "chat:alice", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "a new window starts after expiry")
}

func TestKeysAreIndependent(t *testing.T) {
	_, limiter := newTestLimiter(t)
	ctx := context.Background()

	ok, err := limiter.Allow(ctx, "chat:alice", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = limiter.Allow(ctx, "chat:alice", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = limiter.Allow(ctx, "chat:bob", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "each key gets its own counter")
}

func TestAllowAll(t *testing.T) {
	limiter := NewAllowAll()
	for i := 0; i < 100; i++ {
		ok, err := limiter.Allow(context.Background(), "any", 1, time.Second)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}
