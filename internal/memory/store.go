package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arunmenon/AgentWorld-sub001/core"
)

const questionGenerationPrompt = `Given the following observations, generate %d high-level questions that could be answered by analyzing these observations. Focus on insights, patterns, and beliefs.

Recent observations:
%s

Generate %d questions, one per line.`

const synthesisPrompt = `Based on the following memories, answer the question with an insightful reflection. Synthesize the information into a general insight or belief.

Question: %s

Relevant memories:
%s

Provide a concise insight (1-2 sentences) that answers this question based on the memories.`

// RetrievedMemory is a uniform, tagged-union retrieval result: exactly one
// of Observation or Reflection is set, matching Kind.
type RetrievedMemory struct {
	Kind        string // "observation" | "reflection"
	Observation *core.Observation
	Reflection  *core.Reflection
	Score       float64
}

// DurableStore persists one agent's memory log to an external vector-capable
// backend, so memories outlive the process independent of checkpointing
// (mirrors llmgateway.DurableStore's cache-tier pattern, §4.A). Writes are
// best-effort: a failing durable store degrades the store to in-memory-only
// rather than blocking the turn loop.
type DurableStore interface {
	SaveObservation(ctx context.Context, agentID string, o core.Observation) error
	SaveReflection(ctx context.Context, agentID string, r core.Reflection) error
	LoadAll(ctx context.Context, agentID string) ([]core.Observation, []core.Reflection, error)
}

// Store is one agent's dual-store memory (§3 Memory Store, §4.G). It is
// single-owner: the scheduler never calls two methods on the same agent's
// store concurrently, so internal locking only guards against incidental
// concurrent reads (e.g. a status endpoint).
type Store struct {
	mu      sync.Mutex
	cfg     Config
	llm     core.LLMProvider
	embed   core.EmbeddingProvider
	nowFn   func() time.Time
	agentID string
	durable DurableStore

	observations []core.Observation
	reflections  []core.Reflection
	accumulator  float64
}

// New constructs a Store. llm and embed may be nil; both degrade per the
// §4.G failure policy.
func New(cfg Config, llm core.LLMProvider, embed core.EmbeddingProvider) *Store {
	return &Store{cfg: cfg, llm: llm, embed: embed, nowFn: time.Now}
}

func (s *Store) now() time.Time {
	if s.nowFn != nil {
		return s.nowFn()
	}
	return time.Now()
}

// AttachDurableStore wires a durable backend for agentID without loading
// from it, used when the store's contents already came from elsewhere (a
// checkpoint restore via Restore).
func (s *Store) AttachDurableStore(agentID string, ds DurableStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agentID = agentID
	s.durable = ds
}

// SetDurableStore attaches a durable backend for agentID, loading any
// previously persisted memories immediately. Call once, right after New.
func (s *Store) SetDurableStore(ctx context.Context, agentID string, ds DurableStore) error {
	s.AttachDurableStore(agentID, ds)
	if ds == nil {
		return nil
	}
	observations, reflections, err := ds.LoadAll(ctx, agentID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.observations = append(s.observations, observations...)
	s.reflections = append(s.reflections, reflections...)
	s.mu.Unlock()
	return nil
}

func (s *Store) persistObservation(ctx context.Context, o core.Observation) {
	s.mu.Lock()
	ds, agentID := s.durable, s.agentID
	s.mu.Unlock()
	if ds == nil {
		return
	}
	if err := ds.SaveObservation(ctx, agentID, o); err != nil {
		core.Logger().Warn().Str("agent", agentID).Err(err).Msg("memory durable store: save observation failed")
	}
}

func (s *Store) persistReflection(ctx context.Context, r core.Reflection) {
	s.mu.Lock()
	ds, agentID := s.durable, s.agentID
	s.mu.Unlock()
	if ds == nil {
		return
	}
	if err := ds.SaveReflection(ctx, agentID, r); err != nil {
		core.Logger().Warn().Str("agent", agentID).Err(err).Msg("memory durable store: save reflection failed")
	}
}

// Observations returns a snapshot of the observation log.
func (s *Store) Observations() []core.Observation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Observation, len(s.observations))
	copy(out, s.observations)
	return out
}

// Reflections returns a snapshot of the reflection log.
func (s *Store) Reflections() []core.Reflection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Reflection, len(s.reflections))
	copy(out, s.reflections)
	return out
}

// Accumulator returns the current importance accumulator (for tests and
// diagnostics).
func (s *Store) Accumulator() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accumulator
}

// AddObservation scores, embeds, and appends one observation, per §4.G's
// "add observation" pipeline: score importance, compute embedding, append,
// accumulate, maybe synthesize, maybe prune.
func (s *Store) AddObservation(ctx context.Context, content, source string, importance *float64) core.Observation {
	imp := 0.0
	if importance != nil {
		imp = *importance
	} else {
		imp = rateImportance(ctx, s.llm, content)
	}

	obs := core.Observation{
		ID:         uuid.NewString(),
		Content:    content,
		Source:     source,
		Timestamp:  s.now(),
		Importance: imp,
		Embedding:  s.embedOrZero(ctx, content),
		EmbedModel: embedModelName(s.embed),
	}

	s.mu.Lock()
	s.observations = append(s.observations, obs)
	s.accumulator += imp
	triggerSynthesis := s.cfg.ReflectionsEnabled && s.accumulator >= s.cfg.ReflectionThreshold
	s.mu.Unlock()

	s.persistObservation(ctx, obs)

	if triggerSynthesis {
		s.GenerateReflections(ctx)
	}
	s.maybePrune()

	return obs
}

// InjectObservation enqueues an observation that bypasses scoring (used by
// the topology-bypassing inject_stimulus operation in §6).
func (s *Store) InjectObservation(obs core.Observation) {
	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}
	if obs.Timestamp.IsZero() {
		obs.Timestamp = s.now()
	}
	s.mu.Lock()
	s.observations = append(s.observations, obs)
	s.accumulator += obs.Importance
	s.mu.Unlock()

	s.persistObservation(context.Background(), obs)
}

func (s *Store) embedOrZero(ctx context.Context, content string) []float32 {
	if s.embed == nil {
		return nil
	}
	v, err := s.embed.Embed(ctx, content)
	if err != nil {
		return nil
	}
	return v
}

func embedModelName(p core.EmbeddingProvider) string {
	type named interface{ Name() string }
	if n, ok := p.(named); ok {
		return n.Name()
	}
	return ""
}

// Retrieve returns the top-k memories for query by composite score (§4.G
// retrieval). Result(k) is always a prefix of Result(k+1) under the same
// memory set, since both slice the same score-sorted order.
func (s *Store) Retrieve(ctx context.Context, query string, k int, includeReflections bool) []RetrievedMemory {
	s.mu.Lock()
	obs := make([]core.Observation, len(s.observations))
	copy(obs, s.observations)
	var refl []core.Reflection
	if includeReflections {
		refl = make([]core.Reflection, len(s.reflections))
		copy(refl, s.reflections)
	}
	s.mu.Unlock()

	if k <= 0 || (len(obs) == 0 && len(refl) == 0) {
		return nil
	}

	queryEmbedding := s.embedOrZero(ctx, query)
	now := s.now()

	items := make([]RetrievedMemory, 0, len(obs)+len(refl))
	for i := range obs {
		o := obs[i]
		items = append(items, RetrievedMemory{Kind: "observation", Observation: &o, Score: score(obsRef(o), queryEmbedding, now, s.cfg)})
	}
	for i := range refl {
		r := refl[i]
		items = append(items, RetrievedMemory{Kind: "reflection", Reflection: &r, Score: score(reflRef(r), queryEmbedding, now, s.cfg)})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	if k > len(items) {
		k = len(items)
	}
	return items[:k]
}

// GenerateReflections runs one synthesis pass: generate questions from
// recent observations, retrieve supporting memories per question, and
// synthesize an insight for each. Any LLM failure along the way is
// swallowed (§4.G failure policy) and simply yields fewer reflections; the
// accumulator always resets.
func (s *Store) GenerateReflections(ctx context.Context) []core.Reflection {
	s.mu.Lock()
	enabled := s.cfg.ReflectionsEnabled
	hasObservations := len(s.observations) > 0
	llm := s.llm
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.accumulator = 0
		s.mu.Unlock()
	}()

	if !enabled || !hasObservations || llm == nil {
		return nil
	}

	recent := s.recentObservations(100)
	questions := s.generateQuestions(ctx, recent)

	var created []core.Reflection
	for i, q := range questions {
		if i >= s.cfg.QuestionsPerSynthesis {
			break
		}
		relevant := s.Retrieve(ctx, q, s.cfg.MemoriesPerQuestion, true)
		if len(relevant) == 0 {
			continue
		}
		insight, ok := s.synthesize(ctx, q, relevant)
		if !ok || insight == "" {
			continue
		}
		refl := core.Reflection{
			ID:                 uuid.NewString(),
			Content:            insight,
			Timestamp:          s.now(),
			Importance:         s.cfg.ReflectionImportance,
			Embedding:          s.embedOrZero(ctx, insight),
			SourceMemoryIDs:    memoryIDs(relevant),
			QuestionsAddressed: []string{q},
		}
		s.mu.Lock()
		s.reflections = append(s.reflections, refl)
		s.mu.Unlock()
		s.persistReflection(ctx, refl)
		created = append(created, refl)
	}

	s.pruneReflections()
	return created
}

func (s *Store) recentObservations(n int) []core.Observation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.observations) <= n {
		out := make([]core.Observation, len(s.observations))
		copy(out, s.observations)
		return out
	}
	return append([]core.Observation(nil), s.observations[len(s.observations)-n:]...)
}

func (s *Store) generateQuestions(ctx context.Context, recent []core.Observation) []string {
	if s.llm == nil || len(recent) == 0 {
		return nil
	}
	window := recent
	if len(window) > 20 {
		window = window[len(window)-20:]
	}
	var b strings.Builder
	for _, o := range window {
		b.WriteString("- ")
		b.WriteString(o.Content)
		b.WriteString("\n")
	}
	n := s.cfg.QuestionsPerSynthesis
	if n <= 0 {
		n = 3
	}
	prompt := fmt.Sprintf(questionGenerationPrompt, n, b.String(), n)
	resp, err := s.llm.Complete(ctx, core.LLMRequest{Prompt: prompt})
	if err != nil {
		return nil
	}
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(resp.Content), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func (s *Store) synthesize(ctx context.Context, question string, memories []RetrievedMemory) (string, bool) {
	if s.llm == nil {
		return "", false
	}
	var b strings.Builder
	for _, m := range memories {
		b.WriteString("- ")
		b.WriteString(memoryContent(m))
		b.WriteString("\n")
	}
	prompt := fmt.Sprintf(synthesisPrompt, question, b.String())
	resp, err := s.llm.Complete(ctx, core.LLMRequest{Prompt: prompt})
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(resp.Content), true
}

func memoryContent(m RetrievedMemory) string {
	if m.Kind == "reflection" && m.Reflection != nil {
		return m.Reflection.Content
	}
	if m.Observation != nil {
		return m.Observation.Content
	}
	return ""
}

func memoryIDs(memories []RetrievedMemory) []string {
	out := make([]string, 0, len(memories))
	for _, m := range memories {
		if m.Kind == "reflection" && m.Reflection != nil {
			out = append(out, m.Reflection.ID)
		} else if m.Observation != nil {
			out = append(out, m.Observation.ID)
		}
	}
	return out
}

// maybePrune enforces the observation retention cap (§4.G "Retention").
// Reflections carry their own, smaller cap and are never culled by the
// same pass.
func (s *Store) maybePrune() {
	s.mu.Lock()
	defer s.mu.Unlock()
	capN := s.cfg.ObservationCap
	if capN <= 0 || len(s.observations) <= capN {
		return
	}
	switch s.cfg.RetentionStrategy {
	case RetentionFIFO:
		s.observations = append([]core.Observation(nil), s.observations[len(s.observations)-capN:]...)
	case RetentionRecency:
		sorted := append([]core.Observation(nil), s.observations...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.After(sorted[j].Timestamp) })
		s.observations = sorted[:capN]
	default: // importance_weighted
		now := s.now()
		type scored struct {
			obs   core.Observation
			score float64
		}
		ranked := make([]scored, len(s.observations))
		for i, o := range s.observations {
			importanceNorm := (o.Importance - 1.0) / 9.0
			recency := recencyScore(o.Timestamp, now, s.cfg.HalfLifeHours)
			ranked[i] = scored{obs: o, score: importanceNorm*0.7 + recency*0.3}
		}
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
		kept := make([]core.Observation, capN)
		for i := 0; i < capN; i++ {
			kept[i] = ranked[i].obs
		}
		s.observations = kept
	}
}

func (s *Store) pruneReflections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	capN := s.cfg.ReflectionCap
	if capN <= 0 || len(s.reflections) <= capN {
		return
	}
	s.reflections = append([]core.Reflection(nil), s.reflections[len(s.reflections)-capN:]...)
}

// ContextForPrompt formats the most recent observations for inclusion in
// an agent's prompt (§4.F uses this to build memory-augmented prompts).
// template must contain the literal placeholder "{memories}".
func (s *Store) ContextForPrompt(recentK int, template string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if recentK > len(s.observations) {
		recentK = len(s.observations)
	}
	if recentK <= 0 {
		return ""
	}
	recent := s.observations[len(s.observations)-recentK:]
	var b strings.Builder
	for i, o := range recent {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(o.Content)
	}
	if template == "" {
		template = "Recent memories:\n{memories}"
	}
	return strings.Replace(template, "{memories}", b.String(), 1)
}

// Clear resets both stores and the accumulator.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observations = nil
	s.reflections = nil
	s.accumulator = 0
}

// Restore replaces the observation and reflection logs wholesale, used when
// rehydrating a store from a checkpoint (§4.K snapshot roundtrip). The
// importance accumulator resets to zero since the checkpoint already
// captures any prior reflection synthesis.
func (s *Store) Restore(observations []core.Observation, reflections []core.Reflection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observations = append([]core.Observation(nil), observations...)
	s.reflections = append([]core.Reflection(nil), reflections...)
	s.accumulator = 0
}
