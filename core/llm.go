package core

import (
	"context"
	"sync"
)

var (
	providerRegistryMu sync.RWMutex
	llmProviders       = map[string]func() LLMProvider{}
	embeddingProviders = map[string]func() EmbeddingProvider{}
)

// LLMRequest is one completion request to the LLM Gateway (§4.A).
type LLMRequest struct {
	Prompt       string
	SystemPrompt string
	Model        string
	Temperature  float64
	MaxTokens    int
	UseCache     bool
	Seed         *int64
	AgentID      string
	Step         int
	Extras       map[string]any
}

// LLMResponse carries the gateway's normalized result for a completion.
type LLMResponse struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	Cost             float64
	Model            string
	Cached           bool
}

// LLMProvider is the minimal contract a model backend implements; the
// gateway layers caching, retry, and deterministic seeding on top of it.
type LLMProvider interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

// EmbeddingProvider turns text into a fixed-dimension vector. A nil
// provider (or one that errors) degrades to a zero vector per §4.G.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// RegisterLLMProvider installs the backend used by the gateway when its
// configured provider name matches. Plugin packages call this from init().
func RegisterLLMProvider(name string, factory func() LLMProvider) {
	providerRegistryMu.Lock()
	defer providerRegistryMu.Unlock()
	llmProviders[name] = factory
}

// RegisterEmbeddingProvider installs an embedding backend by name.
func RegisterEmbeddingProvider(name string, factory func() EmbeddingProvider) {
	providerRegistryMu.Lock()
	defer providerRegistryMu.Unlock()
	embeddingProviders[name] = factory
}

// LLMProviderFactory looks up a previously registered LLM provider.
func LLMProviderFactory(name string) (func() LLMProvider, bool) {
	providerRegistryMu.RLock()
	defer providerRegistryMu.RUnlock()
	f, ok := llmProviders[name]
	return f, ok
}

// EmbeddingProviderFactory looks up a previously registered embedding
// provider.
func EmbeddingProviderFactory(name string) (func() EmbeddingProvider, bool) {
	providerRegistryMu.RLock()
	defer providerRegistryMu.RUnlock()
	f, ok := embeddingProviders[name]
	return f, ok
}
