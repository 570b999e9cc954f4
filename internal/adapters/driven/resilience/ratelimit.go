package resilience

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// defaultRateLimitBackoff is the pause after a 429 when the caller supplies none.
const defaultRateLimitBackoff = 5 * time.Second

// RateLimiter is a token bucket shared by every call through one decorator.
// A 429 response pauses all callers until its backoff elapses.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerSecond sustained calls.
// A non-positive rate disables the token bucket; 429 pauses still apply.
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	r := &RateLimiter{}
	if requestsPerSecond > 0 {
		burst := int(math.Ceil(requestsPerSecond))
		r.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
	return r
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any pause set by RecordRateLimit.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	if r.limiter == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}

// RecordRateLimit pauses the limiter for backoff. A later pause never
// shortens an earlier one.
func (r *RateLimiter) RecordRateLimit(backoff time.Duration) {
	if backoff <= 0 {
		backoff = defaultRateLimitBackoff
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if until := time.Now().Add(backoff); until.After(r.retryAt) {
		r.retryAt = until
	}
}
