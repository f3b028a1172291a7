package providers

import (
	"context"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
)

// RetryPolicy configures Guard.
type RetryPolicy struct {
	Attempts uint
	Delay    time.Duration
	MaxDelay time.Duration
}

// DefaultRetryPolicy retries three times with exponential backoff from 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Delay: 2 * time.Second, MaxDelay: 60 * time.Second}
}

// Guard wraps provider calls with rate limiting and retries.
type Guard struct {
	limiter *RateLimiter
	policy  RetryPolicy
	logger  *slog.Logger
}

// NewGuard creates a guard. A nil limiter disables throttling.
func NewGuard(limiter *RateLimiter, policy RetryPolicy, logger *slog.Logger) *Guard {
	if limiter == nil {
		limiter = NewRateLimiter(0, 1)
	}
	if policy.Attempts == 0 {
		policy.Attempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{limiter: limiter, policy: policy, logger: logger}
}

// Limiter returns the guard's rate limiter.
func (g *Guard) Limiter() *RateLimiter {
	return g.limiter
}

// Do runs fn until it succeeds, the attempts run out, or ctx ends.
// It returns the number of attempts made.
func Do[T any](ctx context.Context, g *Guard, op string, fn func(ctx context.Context) (T, error)) (T, int, error) {
	attempts := 0
	result, err := retry.DoWithData(
		func() (T, error) {
			attempts++
			if err := g.limiter.Wait(ctx); err != nil {
				var zero T
				return zero, retry.Unrecoverable(err)
			}
			v, err := fn(ctx)
			if rle, ok := IsRateLimitError(err); ok && rle.RetryAfter > 0 {
				g.limiter.Record429(rle.RetryAfter)
			}
			return v, err
		},
		retry.Context(ctx),
		retry.Attempts(g.policy.Attempts),
		retry.Delay(g.policy.Delay),
		retry.MaxDelay(g.policy.MaxDelay),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			if rle, ok := IsRateLimitError(err); ok && rle.RetryAfter > 0 {
				return rle.RetryAfter
			}
			return retry.BackOffDelay(n, err, config)
		}),
		retry.RetryIf(retryableStatus),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			g.logger.Warn("provider call failed, retrying", "op", op, "attempt", n+1, "error", err)
		}),
	)
	return result, attempts, err
}
