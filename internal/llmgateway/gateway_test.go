package llmgateway

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arunmenon/AgentWorld-sub001/core"
)

type scriptedProvider struct {
	calls     atomic.Int32
	failTimes int32
	err       error
	response  core.LLMResponse
}

func (p *scriptedProvider) Complete(ctx context.Context, req core.LLMRequest) (core.LLMResponse, error) {
	n := p.calls.Add(1)
	if n <= p.failTimes {
		return core.LLMResponse{}, p.err
	}
	resp := p.response
	if resp.Content == "" {
		resp.Content = "hello world"
	}
	return resp, nil
}

func TestCompleteCachesOnSecondIdenticalCall(t *testing.T) {
	provider := &scriptedProvider{}
	gw := New(Config{DefaultModel: "gpt-4o-mini"}, provider, nil)

	req := core.LLMRequest{Prompt: "hi", UseCache: true}
	resp1, err := gw.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp1.Cached)

	resp2, err := gw.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp2.Cached)
	assert.Equal(t, resp1.Content, resp2.Content)
	assert.EqualValues(t, 1, provider.calls.Load(), "second call should have been served from cache")
}

func TestCompleteDifferentSeedsMissCache(t *testing.T) {
	provider := &scriptedProvider{}
	gw := New(Config{DefaultModel: "gpt-4o-mini"}, provider, nil)

	seedA, seedB := int64(1), int64(2)
	_, err := gw.Complete(context.Background(), core.LLMRequest{Prompt: "hi", UseCache: true, Seed: &seedA})
	require.NoError(t, err)
	_, err = gw.Complete(context.Background(), core.LLMRequest{Prompt: "hi", UseCache: true, Seed: &seedB})
	require.NoError(t, err)
	assert.EqualValues(t, 2, provider.calls.Load())
}

func TestCompleteDerivesSeedFromMasterSeed(t *testing.T) {
	provider := &scriptedProvider{}
	masterSeed := int64(99)
	gw := New(Config{DefaultModel: "gpt-4o-mini", MasterSeed: &masterSeed}, provider, nil)

	req := core.LLMRequest{Prompt: "hi", AgentID: "agent-1", Step: 3}
	_, err := gw.Complete(context.Background(), req)
	require.NoError(t, err)

	history := gw.CallHistory()
	require.Len(t, history, 1)
	require.NotNil(t, history[0].Seed)
	assert.Equal(t, DeriveSeed(masterSeed, 3, "agent-1"), *history[0].Seed)
}

func TestCompleteRetriesOnRetryableError(t *testing.T) {
	provider := &scriptedProvider{failTimes: 2, err: core.NewError(core.ErrTimeout, "slow")}
	gw := New(Config{DefaultModel: "m", Retry: RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, Multiplier: 1}}, provider, nil)

	resp, err := gw.Complete(context.Background(), core.LLMRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", resp.Content)
	assert.EqualValues(t, 3, provider.calls.Load())
}

func TestCompleteAbortsImmediatelyOnNonTransientError(t *testing.T) {
	provider := &scriptedProvider{failTimes: 99, err: core.NewError(core.ErrValidation, "bad request")}
	gw := New(Config{DefaultModel: "m", Retry: RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond}}, provider, nil)

	_, err := gw.Complete(context.Background(), core.LLMRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.EqualValues(t, 1, provider.calls.Load())
}

func TestCompleteUpdatesTotalsOnlyOnNonCachedSuccess(t *testing.T) {
	provider := &scriptedProvider{response: core.LLMResponse{Content: "x", PromptTokens: 10, CompletionTokens: 5, Cost: 1.5}}
	gw := New(Config{DefaultModel: "m"}, provider, nil)

	req := core.LLMRequest{Prompt: "hi", UseCache: true}
	_, err := gw.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 15, gw.TotalTokens())
	assert.InDelta(t, 1.5, gw.TotalCost(), 1e-9)

	_, err = gw.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 15, gw.TotalTokens(), "cached hit must not add to totals")
}

func TestCompleteRecordsFailedAttempt(t *testing.T) {
	provider := &scriptedProvider{failTimes: 99, err: core.NewError(core.ErrValidation, "bad input")}
	gw := New(Config{DefaultModel: "m"}, provider, nil)

	_, err := gw.Complete(context.Background(), core.LLMRequest{Prompt: "hi"})
	require.Error(t, err)

	history := gw.CallHistory()
	require.Len(t, history, 1)
	assert.NotEmpty(t, history[0].Error)
}

func TestCallsForAgentAndStepFilter(t *testing.T) {
	provider := &scriptedProvider{}
	gw := New(Config{DefaultModel: "m"}, provider, nil)

	_, _ = gw.Complete(context.Background(), core.LLMRequest{Prompt: "a", AgentID: "agent-1", Step: 1})
	_, _ = gw.Complete(context.Background(), core.LLMRequest{Prompt: "b", AgentID: "agent-2", Step: 1})
	_, _ = gw.Complete(context.Background(), core.LLMRequest{Prompt: "c", AgentID: "agent-1", Step: 2})

	assert.Len(t, gw.CallsForAgent("agent-1"), 2)
	assert.Len(t, gw.CallsForStep(1), 2)
}
