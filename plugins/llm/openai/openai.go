// Package openai implements core.LLMProvider against the OpenAI Chat
// Completions API (and any OpenAI-compatible endpoint reachable via a
// custom BaseURL, e.g. vLLM or a local gateway).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/arunmenon/AgentWorld-sub001/core"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Config configures a Provider instance.
type Config struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	BaseURL        string
	Temperature    float64
	MaxTokens      int
	HTTPTimeout    time.Duration
}

// Provider adapts the OpenAI Chat Completions and Embeddings APIs to
// core.LLMProvider and core.EmbeddingProvider respectively.
type Provider struct {
	apiKey         string
	model          string
	embeddingModel string
	baseURL        string
	temperature    float64
	maxTokens      int
	httpClient     *http.Client
}

const embeddingDimensions = 1536 // text-embedding-3-small

// New builds a Provider from cfg, defaulting Model, MaxTokens and
// Temperature the way the gateway's other backends do, and falling back to
// the OPENAI_API_KEY environment variable when cfg.APIKey is empty.
func New(cfg Config) (*Provider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.7
	}
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = "text-embedding-3-small"
	}
	return &Provider{
		apiKey:         apiKey,
		model:          model,
		embeddingModel: embeddingModel,
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		temperature:    temperature,
		maxTokens:      maxTokens,
		httpClient:     &http.Client{Timeout: timeout},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Seed        *int64        `json:"seed,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete implements core.LLMProvider.
func (p *Provider) Complete(ctx context.Context, req core.LLMRequest) (core.LLMResponse, error) {
	if req.Prompt == "" {
		return core.LLMResponse{}, errors.New("openai: prompt cannot be empty")
	}

	model := req.Model
	if model == "" {
		model = p.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.maxTokens
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

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Seed:        req.Seed,
	})
	if err != nil {
		return core.LLMResponse{}, fmt.Errorf("openai: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return core.LLMResponse{}, fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return core.LLMResponse{}, fmt.Errorf("openai: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return core.LLMResponse{}, fmt.Errorf("openai: API error (%d): %s", resp.StatusCode, string(payload))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return core.LLMResponse{}, fmt.Errorf("openai: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return core.LLMResponse{}, errors.New("openai: response contained no choices")
	}

	return core.LLMResponse{
		Content:          parsed.Choices[0].Message.Content,
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
		Model:            model,
	}, nil
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed implements core.EmbeddingProvider against OpenAI's /embeddings
// endpoint.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: p.embeddingModel, Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("openai: marshal embedding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: build embedding request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai: embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openai: embeddings API error (%d): %s", resp.StatusCode, string(payload))
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("openai: decode embedding response: %w", err)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, errors.New("openai: empty embedding returned")
	}

	out := make([]float32, len(parsed.Data[0].Embedding))
	for i, v := range parsed.Data[0].Embedding {
		out[i] = float32(v)
	}
	return out, nil
}

// Dimensions implements core.EmbeddingProvider.
func (p *Provider) Dimensions() int {
	return embeddingDimensions
}

// unconfiguredProvider reports its construction error on every call, so a
// registry lookup never returns a nil core.LLMProvider.
type unconfiguredProvider struct{ err error }

func (u unconfiguredProvider) Complete(context.Context, core.LLMRequest) (core.LLMResponse, error) {
	return core.LLMResponse{}, u.err
}

func (u unconfiguredProvider) Embed(context.Context, string) ([]float32, error) {
	return nil, u.err
}

func (u unconfiguredProvider) Dimensions() int { return embeddingDimensions }

func init() {
	core.RegisterLLMProvider("openai", func() core.LLMProvider {
		p, err := New(Config{})
		if err != nil {
			return unconfiguredProvider{err: fmt.Errorf("openai provider: %w", err)}
		}
		return p
	})
	core.RegisterEmbeddingProvider("openai", func() core.EmbeddingProvider {
		p, err := New(Config{})
		if err != nil {
			return unconfiguredProvider{err: fmt.Errorf("openai provider: %w", err)}
		}
		return p
	})
}
