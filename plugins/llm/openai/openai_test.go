package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arunmenon/AgentWorld-sub001/core"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "missing api key", cfg: Config{}, wantErr: true},
		{name: "api key provided", cfg: Config{APIKey: "sk-test"}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "gpt-4o-mini", p.model)
			assert.Equal(t, 1024, p.maxTokens)
			assert.Equal(t, "text-embedding-3-small", p.embeddingModel)
		})
	}
}

func TestProviderComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "system prompt", req.Messages[0].Content)
		assert.Equal(t, "hello", req.Messages[1].Content)

		json.NewEncoder(w).Encode(chatResponse{
			Choices: []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			}{{Message: struct {
				Content string `json:"content"`
			}{Content: "hi there"}}},
			Usage: struct {
				PromptTokens     int `json:"prompt_tokens"`
				CompletionTokens int `json:"completion_tokens"`
			}{PromptTokens: 5, CompletionTokens: 2},
		})
	}))
	defer server.Close()

	p, err := New(Config{APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)

	resp, err := p.Complete(context.Background(), core.LLMRequest{
		SystemPrompt: "system prompt",
		Prompt:       "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Content)
	assert.Equal(t, 5, resp.PromptTokens)
	assert.Equal(t, 2, resp.CompletionTokens)
}

func TestProviderCompleteEmptyPrompt(t *testing.T) {
	p, err := New(Config{APIKey: "sk-test"})
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), core.LLMRequest{})
	assert.Error(t, err)
}

func TestProviderCompleteAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer server.Close()

	p, err := New(Config{APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), core.LLMRequest{Prompt: "hello"})
	assert.ErrorContains(t, err, "429")
}

func TestProviderEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		json.NewEncoder(w).Encode(embeddingResponse{
			Data: []struct {
				Embedding []float64 `json:"embedding"`
			}{{Embedding: []float64{0.1, 0.2, 0.3}}},
		})
	}))
	defer server.Close()

	p, err := New(Config{APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)

	vec, err := p.Embed(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, embeddingDimensions, p.Dimensions())
}

func TestUnconfiguredProviderReportsError(t *testing.T) {
	u := unconfiguredProvider{err: assert.AnError}

	_, err := u.Complete(context.Background(), core.LLMRequest{Prompt: "hi"})
	assert.Equal(t, assert.AnError, err)

	_, err = u.Embed(context.Background(), "hi")
	assert.Equal(t, assert.AnError, err)
}
