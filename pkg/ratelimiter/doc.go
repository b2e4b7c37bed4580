// Package ratelimiter implements a token bucket used to throttle MFA code
// submissions per account.
//
// Buckets live in a Store: MemoryStore for a single instance, RedisStore
// (an atomic Lua script) when several instances share limits.
//
//	limiter, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.Config{
//		Capacity:       5,
//		RefillRate:     1,
//		RefillInterval: time.Minute,
//	})
//
//	result, err := limiter.Allow(ctx, "verify:"+userID)
//	if !result.Allowed() {
//		// wait result.RetryAfter()
//	}
//
// Denied requests do not take tokens, so a caller who keeps hammering is
// limited to the refill rate rather than locked out indefinitely.
//
// Middleware wraps an http.Handler, sets X-RateLimit-Limit,
// X-RateLimit-Remaining, X-RateLimit-Reset and Retry-After, and delegates the
// 429 body to WithDeniedHandler when given.
package ratelimiter
