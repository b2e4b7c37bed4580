package ratelimiter

import "time"

// Result contains the result of a rate limit check.
type Result struct {
	Limit     int       // Bucket capacity
	Remaining int       // Tokens left; negative when the request was denied
	ResetAt   time.Time // Next refill
	now       time.Time
}

// Allowed reports whether the request fit into the bucket.
func (r *Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter returns how long to wait before retrying, 0 if allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	now := r.now
	if now.IsZero() {
		now = time.Now()
	}
	return max(r.ResetAt.Sub(now), 0)
}

// Config defines the token bucket.
type Config struct {
	Capacity       int           // Burst size
	RefillRate     int           // Tokens added per interval
	RefillInterval time.Duration // Refill period
}
