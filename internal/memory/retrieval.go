package memory

import (
	"math"
	"time"

	"github.com/arunmenon/AgentWorld-sub001/core"
)

// memoryRef is a uniform view over an Observation or a Reflection for
// scoring purposes (§4.G "composite score over observations and
// reflections").
type memoryRef struct {
	id         string
	content    string
	timestamp  time.Time
	importance float64
	embedding  []float32
	isReflection bool
}

// score computes the composite relevance/recency/importance score for one
// memory against a query embedding, per §4.G:
//
//	relevance  = cosine(embedding, query) in [0,1], 0 if embedding missing
//	recency    = exp(-ln2 * hoursSince / halfLifeHours), halving every halfLifeHours
//	importance = (value-1)/9
func score(m memoryRef, queryEmbedding []float32, now time.Time, cfg Config) float64 {
	relevance := cosineSimilarity(m.embedding, queryEmbedding)
	recency := recencyScore(m.timestamp, now, cfg.HalfLifeHours)
	importanceNorm := (m.importance - 1.0) / 9.0
	if importanceNorm < 0 {
		importanceNorm = 0
	}
	return cfg.WeightRelevance*relevance + cfg.WeightRecency*recency + cfg.WeightImportance*importanceNorm
}

func recencyScore(ts, now time.Time, halfLifeHours float64) float64 {
	if halfLifeHours <= 0 {
		halfLifeHours = 24
	}
	hours := now.Sub(ts).Hours()
	if hours < 0 {
		hours = 0
	}
	return math.Exp(-hours * math.Ln2 / halfLifeHours)
}

// cosineSimilarity returns 0 when either vector is empty, matching §4.G's
// "0 if embedding missing" rule rather than erroring on a dimension
// mismatch or absent embedding.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if cos < 0 {
		cos = 0
	}
	if cos > 1 {
		cos = 1
	}
	return cos
}

func obsRef(o core.Observation) memoryRef {
	return memoryRef{id: o.ID, content: o.Content, timestamp: o.Timestamp, importance: o.Importance, embedding: o.Embedding}
}

func reflRef(r core.Reflection) memoryRef {
	return memoryRef{id: r.ID, content: r.Content, timestamp: r.Timestamp, importance: r.Importance, embedding: r.Embedding, isReflection: true}
}
