package llmgateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arunmenon/AgentWorld-sub001/core"
)

func TestExecuteWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, Multiplier: 1}
	calls := 0
	err := policy.executeWithRetry(context.Background(), func(attempt int) error {
		calls++
		if calls < 3 {
			return core.NewError(core.ErrNetwork, "flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetryStopsOnNonRetryableError(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond}
	calls := 0
	err := policy.executeWithRetry(context.Background(), func(attempt int) error {
		calls++
		return core.NewError(core.ErrValidation, "bad")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecuteWithRetryGivesUpAfterCeiling(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond}
	calls := 0
	err := policy.executeWithRetry(context.Background(), func(attempt int) error {
		calls++
		return core.NewError(core.ErrTimeout, "slow")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls) // initial + 2 retries
}

func TestExecuteWithRetryRespectsContextCancellation(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 5, BaseDelay: 50 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	err := policy.executeWithRetry(ctx, func(attempt int) error {
		calls++
		return core.NewError(core.ErrTimeout, "slow")
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDelayForAppliesRateLimitMultiplier(t *testing.T) {
	policy := RetryPolicy{BaseDelay: 10 * time.Millisecond, Multiplier: 2, RateLimitMultiple: 3}
	generic := policy.delayFor(1, core.NewError(core.ErrNetwork, "x"))
	rateLimited := policy.delayFor(1, core.NewError(core.ErrRateLimit, "x"))
	assert.Equal(t, rateLimited, generic*3)
}
