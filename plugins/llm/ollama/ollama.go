// Package ollama implements core.LLMProvider against a local Ollama
// server's chat API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/arunmenon/AgentWorld-sub001/core"
)

const defaultBaseURL = "http://localhost:11434"

// Config configures a Provider instance.
type Config struct {
	BaseURL        string
	Model          string
	EmbeddingModel string
	EmbeddingDims  int
	Temperature    float64
	HTTPTimeout    time.Duration
}

// Provider adapts Ollama's /api/chat and /api/embeddings endpoints to
// core.LLMProvider and core.EmbeddingProvider respectively.
type Provider struct {
	baseURL        string
	model          string
	embeddingModel string
	embeddingDims  int
	temperature    float64
	httpClient     *http.Client
}

// New builds a Provider from cfg, defaulting BaseURL to localhost:11434 and
// Model to llama3.2 when unset, and honoring OLLAMA_HOST as an override.
func New(cfg Config) *Provider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("OLLAMA_HOST")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "llama3.2:latest"
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.7
	}
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = "nomic-embed-text:latest"
	}
	embeddingDims := cfg.EmbeddingDims
	if embeddingDims == 0 {
		embeddingDims = 768
	}
	return &Provider{
		baseURL:        baseURL,
		model:          model,
		embeddingModel: embeddingModel,
		embeddingDims:  embeddingDims,
		temperature:    temperature,
		httpClient:     &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
	Seed        int64   `json:"seed,omitempty"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

// Complete implements core.LLMProvider.
func (p *Provider) Complete(ctx context.Context, req core.LLMRequest) (core.LLMResponse, error) {
	if req.Prompt == "" {
		return core.LLMResponse{}, errors.New("ollama: prompt cannot be empty")
	}

	model := req.Model
	if model == "" {
		model = p.model
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = p.temperature
	}

	messages := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	opts := chatOptions{Temperature: temperature, NumPredict: req.MaxTokens}
	if req.Seed != nil {
		opts.Seed = *req.Seed
	}

	body, err := json.Marshal(chatRequest{Model: model, Messages: messages, Stream: false, Options: opts})
	if err != nil {
		return core.LLMResponse{}, fmt.Errorf("ollama: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return core.LLMResponse{}, fmt.Errorf("ollama: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return core.LLMResponse{}, fmt.Errorf("ollama: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return core.LLMResponse{}, fmt.Errorf("ollama: API error (%d): %s", resp.StatusCode, string(payload))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return core.LLMResponse{}, fmt.Errorf("ollama: decode response: %w", err)
	}

	return core.LLMResponse{
		Content:          parsed.Message.Content,
		PromptTokens:     parsed.PromptEvalCount,
		CompletionTokens: parsed.EvalCount,
		Model:            model,
	}, nil
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed implements core.EmbeddingProvider against Ollama's /api/embeddings
// endpoint, processing one text at a time as the API expects.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: p.embeddingModel, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal embedding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama: build embedding request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama: embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama: embeddings API error (%d): %s", resp.StatusCode, string(payload))
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("ollama: decode embedding response: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, errors.New("ollama: empty embedding returned")
	}

	out := make([]float32, len(parsed.Embedding))
	for i, v := range parsed.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}

// Dimensions implements core.EmbeddingProvider.
func (p *Provider) Dimensions() int {
	return p.embeddingDims
}

func init() {
	core.RegisterLLMProvider("ollama", func() core.LLMProvider {
		return New(Config{})
	})
	core.RegisterEmbeddingProvider("ollama", func() core.EmbeddingProvider {
		return New(Config{})
	})
}
