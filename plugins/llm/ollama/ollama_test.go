package ollama

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

func TestNewDefaults(t *testing.T) {
	p := New(Config{})
	assert.Equal(t, "llama3.2:latest", p.model)
	assert.Equal(t, "nomic-embed-text:latest", p.embeddingModel)
	assert.Equal(t, 768, p.embeddingDims)
	assert.Equal(t, defaultBaseURL, p.baseURL)
}

func TestNewOverrides(t *testing.T) {
	p := New(Config{BaseURL: "http://example:1234", Model: "mistral", EmbeddingDims: 384})
	assert.Equal(t, "http://example:1234", p.baseURL)
	assert.Equal(t, "mistral", p.model)
	assert.Equal(t, 384, p.embeddingDims)
}

func TestProviderComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		assert.Equal(t, "hello", req.Messages[len(req.Messages)-1].Content)

		json.NewEncoder(w).Encode(chatResponse{
			Message: struct {
				Content string `json:"content"`
			}{Content: "hi there"},
			PromptEvalCount: 3,
			EvalCount:       4,
		})
	}))
	defer server.Close()

	p := New(Config{BaseURL: server.URL})
	resp, err := p.Complete(context.Background(), core.LLMRequest{Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Content)
	assert.Equal(t, 3, resp.PromptTokens)
	assert.Equal(t, 4, resp.CompletionTokens)
}

func TestProviderCompleteEmptyPrompt(t *testing.T) {
	p := New(Config{})
	_, err := p.Complete(context.Background(), core.LLMRequest{})
	assert.Error(t, err)
}

func TestProviderCompleteServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("model not loaded"))
	}))
	defer server.Close()

	p := New(Config{BaseURL: server.URL})
	_, err := p.Complete(context.Background(), core.LLMRequest{Prompt: "hello"})
	assert.ErrorContains(t, err, "model not loaded")
}

func TestProviderEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		json.NewEncoder(w).Encode(embeddingResponse{Embedding: []float64{0.5, 0.25}})
	}))
	defer server.Close()

	p := New(Config{BaseURL: server.URL})
	vec, err := p.Embed(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, vec)
}

func TestProviderEmbedEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embeddingResponse{})
	}))
	defer server.Close()

	p := New(Config{BaseURL: server.URL})
	_, err := p.Embed(context.Background(), "some text")
	assert.Error(t, err)
}
