package llmgateway

import (
	"context"
	"time"

	"github.com/arunmenon/AgentWorld-sub001/core"
)

// RetryPolicy governs the gateway's backoff behavior (§4.A point 2).
type RetryPolicy struct {
	MaxRetries        int
	BaseDelay         time.Duration
	Multiplier        float64
	RateLimitMultiple float64 // extra factor applied to rate-limit backoffs
}

// DefaultRetryPolicy mirrors the original provider's defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        3,
		BaseDelay:         time.Second,
		Multiplier:        2.0,
		RateLimitMultiple: 2.0,
	}
}

// executeWithRetry retries op up to policy.MaxRetries times. Timeout,
// rate-limit, network and provider errors (core.Retryable) are retried with
// backoff; every other ErrorKind aborts immediately since it's assumed
// non-transient. Rate-limit backoffs use a longer delay than generic ones.
func (p RetryPolicy) executeWithRetry(ctx context.Context, op func(attempt int) error) error {
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := p.delayFor(attempt, lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = op(attempt)
		if lastErr == nil {
			return nil
		}
		if !p.isRetryable(lastErr) || attempt == p.MaxRetries {
			return lastErr
		}
	}
	return lastErr
}

func (p RetryPolicy) isRetryable(err error) bool {
	return core.Retryable(core.KindOf(err))
}

func (p RetryPolicy) delayFor(attempt int, lastErr error) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	mult := p.Multiplier
	if mult <= 0 {
		mult = 2.0
	}
	delay := time.Duration(float64(base) * pow(mult, attempt-1))
	if core.KindOf(lastErr) == core.ErrRateLimit && p.RateLimitMultiple > 0 {
		delay = time.Duration(float64(delay) * p.RateLimitMultiple)
	}
	return delay
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
