package ratelimiter

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter is satisfied by Bucket.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
	AllowN(ctx context.Context, key string, n int) (*Result, error)
	Reset(ctx context.Context, key string) error
}

// Bucket implements a token bucket rate limiter on top of a Store.
type Bucket struct {
	store  Store
	config Config
	now    func() time.Time
}

// BucketOption configures a Bucket.
type BucketOption func(*Bucket)

// WithClock overrides the time source.
func WithClock(now func() time.Time) BucketOption {
	return func(b *Bucket) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBucket creates a token bucket rate limiter.
func NewBucket(store Store, config Config, opts ...BucketOption) (*Bucket, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	b := &Bucket{store: store, config: config, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (tb *Bucket) Allow(ctx context.Context, key string) (*Result, error) {
	return tb.AllowN(ctx, key, 1)
}

func (tb *Bucket) AllowN(ctx context.Context, key string, n int) (*Result, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: must be positive, got %d", ErrInvalidTokenCount, n)
	}
	return tb.consume(ctx, key, n)
}

// Status returns the current state without consuming tokens.
func (tb *Bucket) Status(ctx context.Context, key string) (*Result, error) {
	return tb.consume(ctx, key, 0)
}

// Reset refills the bucket for key, e.g. after a successful login.
func (tb *Bucket) Reset(ctx context.Context, key string) error {
	return tb.store.Reset(ctx, key)
}

func (tb *Bucket) consume(ctx context.Context, key string, n int) (*Result, error) {
	now := tb.now()
	remaining, resetAt, err := tb.store.ConsumeTokens(ctx, key, n, tb.config, now)
	if err != nil {
		return nil, err
	}
	return &Result{Limit: tb.config.Capacity, Remaining: remaining, ResetAt: resetAt, now: now}, nil
}

func (c Config) validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfig, c.Capacity)
	}
	if c.RefillRate <= 0 {
		return fmt.Errorf("%w: refill rate must be positive, got %d", ErrInvalidConfig, c.RefillRate)
	}
	if c.RefillInterval <= 0 {
		return fmt.Errorf("%w: refill interval must be positive, got %v", ErrInvalidConfig, c.RefillInterval)
	}
	return nil
}
