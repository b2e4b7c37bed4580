package ratelimiter_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mfakit/pkg/ratelimiter"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newBucket(t *testing.T, cfg ratelimiter.Config) (*ratelimiter.Bucket, *clock) {
	t.Helper()
	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0))
	t.Cleanup(store.Close)

	c := newClock()
	b, err := ratelimiter.NewBucket(store, cfg, ratelimiter.WithClock(c.Now))
	require.NoError(t, err)
	return b, c
}

func TestNewBucketValidation(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0))
	t.Cleanup(store.Close)

	tests := []struct {
		name   string
		config ratelimiter.Config
	}{
		{"zero capacity", ratelimiter.Config{Capacity: 0, RefillRate: 1, RefillInterval: time.Second}},
		{"negative refill rate", ratelimiter.Config{Capacity: 1, RefillRate: -1, RefillInterval: time.Second}},
		{"zero interval", ratelimiter.Config{Capacity: 1, RefillRate: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ratelimiter.NewBucket(store, tt.config)
			assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
		})
	}
}

func TestBucketAllow(t *testing.T) {
	t.Parallel()

	b, c := newBucket(t, ratelimiter.Config{Capacity: 3, RefillRate: 1, RefillInterval: time.Minute})
	ctx := context.Background()

	for i := range 3 {
		res, err := b.Allow(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, res.Allowed())
		assert.Equal(t, 2-i, res.Remaining)
		assert.Equal(t, 3, res.Limit)
		assert.Zero(t, res.RetryAfter())
	}

	res, err := b.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, res.Allowed())
	assert.Equal(t, time.Minute, res.RetryAfter())

	// other keys are independent
	res, err = b.Allow(ctx, "user-2")
	require.NoError(t, err)
	assert.True(t, res.Allowed())

	c.Advance(20 * time.Second)
	res, err = b.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, res.Allowed())
	assert.Equal(t, 40*time.Second, res.RetryAfter())

	c.Advance(40 * time.Second)
	res, err = b.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, res.Allowed())
	assert.Equal(t, 0, res.Remaining)
}

func TestBucketDeniedRequestsTakeNothing(t *testing.T) {
	t.Parallel()

	b, c := newBucket(t, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Minute})
	ctx := context.Background()

	_, err := b.Allow(ctx, "k")
	require.NoError(t, err)
	for range 10 {
		res, err := b.Allow(ctx, "k")
		require.NoError(t, err)
		assert.False(t, res.Allowed())
	}

	c.Advance(time.Minute)
	res, err := b.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, res.Allowed())
}

func TestBucketRefillIsCapped(t *testing.T) {
	t.Parallel()

	b, c := newBucket(t, ratelimiter.Config{Capacity: 5, RefillRate: 2, RefillInterval: time.Second})
	ctx := context.Background()

	res, err := b.AllowN(ctx, "k", 5)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Remaining)

	c.Advance(24 * time.Hour)
	res, err = b.Status(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 5, res.Remaining)
}

func TestBucketAllowN(t *testing.T) {
	t.Parallel()

	b, _ := newBucket(t, ratelimiter.Config{Capacity: 5, RefillRate: 1, RefillInterval: time.Minute})
	ctx := context.Background()

	_, err := b.AllowN(ctx, "k", 0)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)

	res, err := b.AllowN(ctx, "k", 6)
	require.NoError(t, err)
	assert.False(t, res.Allowed())

	res, err = b.AllowN(ctx, "k", 5)
	require.NoError(t, err)
	assert.True(t, res.Allowed())
}

func TestBucketReset(t *testing.T) {
	t.Parallel()

	b, _ := newBucket(t, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Hour})
	ctx := context.Background()

	_, err := b.Allow(ctx, "k")
	require.NoError(t, err)
	res, err := b.Allow(ctx, "k")
	require.NoError(t, err)
	require.False(t, res.Allowed())

	require.NoError(t, b.Reset(ctx, "k"))
	res, err = b.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, res.Allowed())
}

func TestBucketStatusDoesNotConsume(t *testing.T) {
	t.Parallel()

	b, _ := newBucket(t, ratelimiter.Config{Capacity: 2, RefillRate: 1, RefillInterval: time.Minute})
	ctx := context.Background()

	for range 3 {
		res, err := b.Status(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, 2, res.Remaining)
	}
}

func TestBucketConcurrentAllow(t *testing.T) {
	t.Parallel()

	b, _ := newBucket(t, ratelimiter.Config{Capacity: 10, RefillRate: 1, RefillInterval: time.Hour})
	ctx := context.Background()

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := b.Allow(ctx, "shared")
			if err == nil && res.Allowed() {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), allowed.Load())
}

func TestMemoryStoreCanceledContext(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0))
	t.Cleanup(store.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := store.ConsumeTokens(ctx, "k", 1, ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Second}, time.Now())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStoreCloseTwice(t *testing.T) {
	t.Parallel()

	store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(time.Millisecond))
	assert.NotPanics(t, func() {
		store.Close()
		store.Close()
	})
}
