package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/logger"
)

// Policy defaults applied to zero fields.
const (
	DefaultMaxAttempts    = 3
	DefaultInitialBackoff = 500 * time.Millisecond
	DefaultMaxBackoff     = 8 * time.Second
)

// Policy configures retries for one decorated service.
type Policy struct {
	// MaxAttempts is the total number of attempts. 1 disables retry.
	MaxAttempts int

	// InitialBackoff is the delay before the second attempt. It doubles
	// after each failure up to MaxBackoff.
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration

	// Timeout bounds each attempt. Zero leaves attempts unbounded.
	Timeout time.Duration

	// RequestsPerSecond limits the call rate. Zero disables limiting.
	RequestsPerSecond float64
}

// PolicyFromSettings converts the configured retry settings.
func PolicyFromSettings(s domain.RetrySettings) Policy {
	return Policy{
		MaxAttempts:       s.MaxAttempts,
		InitialBackoff:    s.InitialBackoff,
		MaxBackoff:        s.MaxBackoff,
		Timeout:           s.Timeout,
		RequestsPerSecond: s.RequestsPerSecond,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = DefaultInitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = DefaultMaxBackoff
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	return p
}

// IsTransient reports whether err is worth another attempt.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrRateLimited) {
		return true
	}
	var pe *domain.ProviderError
	if errors.As(err, &pe) {
		return pe.Temporary()
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// retrier runs operations under a Policy.
type retrier struct {
	name    string
	policy  Policy
	limiter *RateLimiter
	sleep   func(ctx context.Context, d time.Duration) error
}

func newRetrier(name string, p Policy) *retrier {
	p = p.withDefaults()
	return &retrier{
		name:    name,
		policy:  p,
		limiter: NewRateLimiter(p.RequestsPerSecond),
		sleep:   sleepContext,
	}
}

// do runs fn until it succeeds, fails permanently, or attempts run out.
// The caller's context always wins over retrying.
func (r *retrier) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	backoff := r.policy.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}

		lastErr = r.attempt(ctx, fn)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
		if attempt == r.policy.MaxAttempts {
			break
		}

		if errors.Is(lastErr, domain.ErrRateLimited) {
			r.limiter.RecordRateLimit(backoff)
		}
		logger.Debug("%s %s: attempt %d failed, retrying in %v: %v", r.name, op, attempt, backoff, lastErr)
		if err := r.sleep(ctx, backoff); err != nil {
			return err
		}
		backoff *= 2
		if backoff > r.policy.MaxBackoff {
			backoff = r.policy.MaxBackoff
		}
	}

	return fmt.Errorf("%w: %s %s after %d attempts: %w",
		domain.ErrRetriesExhausted, r.name, op, r.policy.MaxAttempts, lastErr)
}

func (r *retrier) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.policy.Timeout <= 0 {
		return fn(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, r.policy.Timeout)
	defer cancel()
	return fn(actx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
