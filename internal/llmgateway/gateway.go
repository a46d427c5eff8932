// Package llmgateway implements the LLM Gateway (§4.A): the single entry
// point for every model call, layering a two-tier cache, retry with
// backoff, deterministic per-call seeding, and a call audit log on top of
// a pluggable core.LLMProvider.
package llmgateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arunmenon/AgentWorld-sub001/core"
)

// Config configures one Gateway instance.
type Config struct {
	DefaultModel string
	MasterSeed   *int64
	Retry        RetryPolicy
	CacheSize    int
	CacheTTL     time.Duration
}

// Gateway is the engine's sole path to a language model. It is safe for
// concurrent use. It does not limit how many provider calls run at once, and
// neither does any caller: the engine config's max_concurrent_llm_calls
// (Scheduler.MaxConcurrentLLM) is loaded but not applied anywhere.
type Gateway struct {
	cfg      Config
	provider core.LLMProvider
	cache    *Cache

	mu           sync.Mutex
	totalTokens  int
	totalCost    float64
	callHistory  []CallRecord
}

// New builds a Gateway around provider, caching responses in cache (which
// may chain to a DurableStore; pass llmgateway.NewCache(size, ttl, nil)
// for an in-process-only cache).
func New(cfg Config, provider core.LLMProvider, cache *Cache) *Gateway {
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.BaseDelay == 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cache == nil {
		cache = NewCache(cfg.CacheSize, cfg.CacheTTL, nil)
	}
	return &Gateway{cfg: cfg, provider: provider, cache: cache}
}

// Complete executes one completion request against the configured
// provider, applying caching, retry, and deterministic seeding (§4.A).
func (g *Gateway) Complete(ctx context.Context, req core.LLMRequest) (core.LLMResponse, error) {
	model := req.Model
	if model == "" {
		model = g.cfg.DefaultModel
	}
	req.Model = model

	if req.Seed == nil && g.cfg.MasterSeed != nil {
		seed := DeriveSeed(*g.cfg.MasterSeed, req.Step, req.AgentID)
		req.Seed = &seed
	}

	key := cacheKey(req)
	useCache := req.UseCache

	if useCache {
		if cached, found := g.cache.Get(ctx, key); found {
			g.recordCall(req, cached, true, 0, 0, nil)
			return core.LLMResponse{
				Content:          cached.Content,
				PromptTokens:     cached.PromptTokens,
				CompletionTokens: cached.CompletionTokens,
				Cost:             cached.Cost,
				Model:            cached.Model,
				Cached:           true,
			}, nil
		}
	}

	start := time.Now()
	var resp core.LLMResponse
	var attempts int
	err := g.cfg.Retry.executeWithRetry(ctx, func(attempt int) error {
		attempts = attempt + 1
		var callErr error
		resp, callErr = g.provider.Complete(ctx, req)
		return callErr
	})
	latency := time.Since(start)

	if err != nil {
		g.recordCallError(req, err, attempts-1, latency)
		return core.LLMResponse{}, err
	}

	if resp.PromptTokens == 0 {
		resp.PromptTokens = countTokens(model, req.SystemPrompt+req.Prompt)
	}
	if resp.CompletionTokens == 0 {
		resp.CompletionTokens = countTokens(model, resp.Content)
	}
	if resp.Cost == 0 {
		resp.Cost = estimateCost(model, resp.PromptTokens, resp.CompletionTokens)
	}
	resp.Model = model

	g.mu.Lock()
	g.totalTokens += resp.PromptTokens + resp.CompletionTokens
	g.totalCost += resp.Cost
	g.mu.Unlock()

	cachedValue := CachedResponse{
		Content:          resp.Content,
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
		Cost:             resp.Cost,
		Model:            model,
	}
	if useCache {
		g.cache.Set(ctx, key, cachedValue)
	}
	g.recordCall(req, cachedValue, false, attempts-1, latency, nil)

	return resp, nil
}

func (g *Gateway) recordCall(req core.LLMRequest, resp CachedResponse, cached bool, retries int, latency time.Duration, callErr error) {
	rec := CallRecord{
		ID:               uuid.NewString()[:12],
		Timestamp:        time.Now(),
		Model:            resp.Model,
		AgentID:          req.AgentID,
		Step:             req.Step,
		Seed:             req.Seed,
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
		Cost:             resp.Cost,
		LatencyMS:        latency.Milliseconds(),
		Cached:           cached,
		Retries:          retries,
	}
	if callErr != nil {
		rec.Error = callErr.Error()
	}
	g.mu.Lock()
	g.callHistory = append(g.callHistory, rec)
	g.mu.Unlock()
}

func (g *Gateway) recordCallError(req core.LLMRequest, err error, retries int, latency time.Duration) {
	g.recordCall(req, CachedResponse{Model: req.Model}, false, retries, latency, err)
}

// TotalTokens returns cumulative token consumption across non-cached
// successful calls.
func (g *Gateway) TotalTokens() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.totalTokens
}

// TotalCost returns cumulative attributed cost across non-cached
// successful calls.
func (g *Gateway) TotalCost() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.totalCost
}

// CallHistory returns a copy of every call record so far.
func (g *Gateway) CallHistory() []CallRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]CallRecord, len(g.callHistory))
	copy(out, g.callHistory)
	return out
}

// CallsForAgent filters the call history by agent id.
func (g *Gateway) CallsForAgent(agentID string) []CallRecord {
	var out []CallRecord
	for _, rec := range g.CallHistory() {
		if rec.AgentID == agentID {
			out = append(out, rec)
		}
	}
	return out
}

// CallsForStep filters the call history by step.
func (g *Gateway) CallsForStep(step int) []CallRecord {
	var out []CallRecord
	for _, rec := range g.CallHistory() {
		if rec.Step == step {
			out = append(out, rec)
		}
	}
	return out
}

// cacheKey hashes the serialized request, including messages, model,
// temperature, and seed, so retries of the same logical request share one
// cache key (§4.A point 1-2).
func cacheKey(req core.LLMRequest) string {
	payload := struct {
		System      string `json:"system"`
		User        string `json:"user"`
		Model       string `json:"model"`
		Temperature float64 `json:"temperature"`
		Seed        *int64 `json:"seed"`
	}{
		System:      req.SystemPrompt,
		User:        req.Prompt,
		Model:       req.Model,
		Temperature: req.Temperature,
		Seed:        req.Seed,
	}
	data, _ := json.Marshal(payload)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}
