// Package memory implements the per-agent dual-store memory subsystem
// (§4.G): episodic observations, synthesized reflections, scored
// retrieval, and retention pruning.
package memory

import "github.com/arunmenon/AgentWorld-sub001/core"

// RetentionStrategy selects how observations are pruned once the cap is
// exceeded.
type RetentionStrategy string

const (
	RetentionImportanceWeighted RetentionStrategy = "importance_weighted"
	RetentionFIFO               RetentionStrategy = "fifo"
	RetentionRecency            RetentionStrategy = "recency"
)

// Config configures one Memory store. Mirrors core.EngineConfig.Memory,
// kept as its own struct so the package can be constructed and tested
// without the engine config wrapper.
type Config struct {
	ReflectionThreshold float64
	ObservationCap      int
	ReflectionCap       int
	RetentionStrategy   RetentionStrategy
	HalfLifeHours       float64
	WeightRelevance     float64
	WeightRecency       float64
	WeightImportance    float64
	QuestionsPerSynthesis int
	MemoriesPerQuestion   int
	ReflectionImportance  float64
	ReflectionsEnabled    bool
}

// DefaultConfig mirrors core.DefaultEngineConfig's Memory section.
func DefaultConfig() Config {
	return Config{
		ReflectionThreshold:   150,
		ObservationCap:        500,
		ReflectionCap:         100,
		RetentionStrategy:     RetentionImportanceWeighted,
		HalfLifeHours:         24,
		WeightRelevance:       0.5,
		WeightRecency:         0.3,
		WeightImportance:      0.2,
		QuestionsPerSynthesis: 3,
		MemoriesPerQuestion:   5,
		ReflectionImportance:  9,
		ReflectionsEnabled:    true,
	}
}

// FromEngineConfig builds a Config from the engine-wide TOML section.
func FromEngineConfig(ec *core.EngineConfig) Config {
	cfg := DefaultConfig()
	if ec == nil {
		return cfg
	}
	m := ec.Memory
	if m.ReflectionThreshold > 0 {
		cfg.ReflectionThreshold = m.ReflectionThreshold
	}
	if m.ObservationCap > 0 {
		cfg.ObservationCap = m.ObservationCap
	}
	if m.ReflectionCap > 0 {
		cfg.ReflectionCap = m.ReflectionCap
	}
	if m.RetentionStrategy != "" {
		cfg.RetentionStrategy = RetentionStrategy(m.RetentionStrategy)
	}
	if m.HalfLifeHours > 0 {
		cfg.HalfLifeHours = m.HalfLifeHours
	}
	if m.WeightRelevance > 0 || m.WeightRecency > 0 || m.WeightImportance > 0 {
		cfg.WeightRelevance = m.WeightRelevance
		cfg.WeightRecency = m.WeightRecency
		cfg.WeightImportance = m.WeightImportance
	}
	return cfg
}
