package ratelimiter

import (
	"context"
	"time"
)

// Store keeps bucket state. ConsumeTokens must be atomic per key.
type Store interface {
	// ConsumeTokens refills the bucket for the time elapsed until now and takes
	// tokens from it when enough are available. A negative remaining means the
	// request was denied and nothing was taken.
	ConsumeTokens(ctx context.Context, key string, tokens int, config Config, now time.Time) (remaining int, resetAt time.Time, err error)

	// Reset clears the state for key.
	Reset(ctx context.Context, key string) error
}

// refill applies the token bucket arithmetic shared by every store.
func refill(tokens int, lastRefill, now time.Time, config Config) (int, time.Time) {
	elapsed := now.Sub(lastRefill)
	if elapsed < config.RefillInterval {
		return tokens, lastRefill
	}
	// capped so high-capacity/low-rate buckets cannot overflow
	maxIntervals := int64(config.Capacity/config.RefillRate + 1)
	intervals := min(int64(elapsed/config.RefillInterval), maxIntervals)
	return min(tokens+int(intervals)*config.RefillRate, config.Capacity), now
}
