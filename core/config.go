package core

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// EngineConfig is the process-level configuration for the simulation engine:
// logging, scheduler defaults, and the LLM gateway. Scenario-specific data
// (agents, topology, apps, goals) lives in a separate YAML ScenarioConfig —
// see core/scenario.go — mirroring the teacher's split between a TOML
// engine config and JSON-ish domain definitions consumed from persistence.
type EngineConfig struct {
	Engine struct {
		Name       string `toml:"name"`
		MasterSeed *int64 `toml:"master_seed"`
	} `toml:"engine"`

	Logging struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
		File   string `toml:"file"`
	} `toml:"logging"`

	Scheduler struct {
		MaxConcurrentAgents  int    `toml:"max_concurrent_agents"`
		MaxConcurrentLLM     int    `toml:"max_concurrent_llm_calls"`
		AgentTimeoutSeconds  int    `toml:"agent_timeout_seconds"`
		StepTimeoutSeconds   int    `toml:"step_timeout_seconds"`
		MaxConsecutiveFail   int    `toml:"max_consecutive_failures"`
		OrderingStrategy     string `toml:"ordering_strategy"` // round_robin|random|priority|topology|simultaneous
		ErrorStrategy        string `toml:"error_strategy"`    // fail_fast|log_and_continue|retry|suspend_agent
		AutoCheckpointEveryN int    `toml:"auto_checkpoint_every_n"`
	} `toml:"scheduler"`

	LLM struct {
		Provider       string `toml:"provider"`
		Model          string `toml:"model"`
		Temperature    float64 `toml:"temperature"`
		MaxTokens      int    `toml:"max_tokens"`
		UseCache       bool   `toml:"use_cache"`
		CacheCapacity  int    `toml:"cache_capacity"`
		DurableCache   string `toml:"durable_cache"` // "" | "badger"
		DurableCachePath string `toml:"durable_cache_path"`
		Retry          RetryConfig `toml:"retry"`
	} `toml:"llm"`

	Memory struct {
		Provider            string  `toml:"provider"` // memory|pgvector|weaviate
		Connection          string  `toml:"connection"`
		ReflectionThreshold float64 `toml:"reflection_threshold"`
		ObservationCap      int     `toml:"observation_cap"`
		ReflectionCap       int     `toml:"reflection_cap"`
		RetentionStrategy   string  `toml:"retention_strategy"` // importance_weighted|fifo|recency
		HalfLifeHours       float64 `toml:"half_life_hours"`
		WeightRelevance     float64 `toml:"weight_relevance"`
		WeightRecency       float64 `toml:"weight_recency"`
		WeightImportance    float64 `toml:"weight_importance"`
	} `toml:"memory"`
}

// RetryConfig configures the LLM Gateway's retry/backoff policy (§4.A).
type RetryConfig struct {
	MaxAttempts       int     `toml:"max_attempts"`
	BaseDelayMs       int     `toml:"base_delay_ms"`
	BackoffMultiplier float64 `toml:"backoff_multiplier"`
	RateLimitDelayMs  int     `toml:"rate_limit_delay_ms"`
}

// DefaultEngineConfig returns the engine configuration used when no TOML
// file is supplied, with sizing consistent with §5 Concurrency & Resource
// Model's bounded-parallelism defaults.
func DefaultEngineConfig() *EngineConfig {
	cfg := &EngineConfig{}
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "console"
	cfg.Scheduler.MaxConcurrentAgents = 8
	cfg.Scheduler.MaxConcurrentLLM = 4
	cfg.Scheduler.AgentTimeoutSeconds = 30
	cfg.Scheduler.StepTimeoutSeconds = 120
	cfg.Scheduler.MaxConsecutiveFail = 3
	cfg.Scheduler.OrderingStrategy = "round_robin"
	cfg.Scheduler.ErrorStrategy = "log_and_continue"
	cfg.LLM.Provider = "mock"
	cfg.LLM.Temperature = 0.7
	cfg.LLM.MaxTokens = 512
	cfg.LLM.UseCache = true
	cfg.LLM.CacheCapacity = 1024
	cfg.LLM.Retry = RetryConfig{MaxAttempts: 3, BaseDelayMs: 200, BackoffMultiplier: 2.0, RateLimitDelayMs: 2000}
	cfg.Memory.Provider = "memory"
	cfg.Memory.ReflectionThreshold = 150
	cfg.Memory.ObservationCap = 500
	cfg.Memory.ReflectionCap = 100
	cfg.Memory.RetentionStrategy = "importance_weighted"
	cfg.Memory.HalfLifeHours = 24
	cfg.Memory.WeightRelevance = 0.5
	cfg.Memory.WeightRecency = 0.3
	cfg.Memory.WeightImportance = 0.2
	return cfg
}

// LoadEngineConfig reads an EngineConfig from a TOML file, overlaying
// DefaultEngineConfig for any field left at its zero value by the file.
func LoadEngineConfig(path string) (*EngineConfig, error) {
	cfg := DefaultEngineConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, Wrap(ErrStorage, fmt.Sprintf("engine config %q not found", path), err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, Wrap(ErrStorage, "decoding engine config", err)
	}
	return cfg, nil
}
