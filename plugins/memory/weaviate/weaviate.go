// Package weaviate implements memory.DurableStore against a Weaviate
// vector database, persisting per-agent observations and reflections as
// "AgentObservation"/"AgentReflection" objects with their own embeddings
// (Vectorizer "none" — the Memory Subsystem supplies vectors itself via
// core.EmbeddingProvider), so §4.G's memory log survives process restarts.
package weaviate

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/arunmenon/AgentWorld-sub001/core"
	"github.com/arunmenon/AgentWorld-sub001/internal/memory"
)

const (
	observationClass = "AgentObservation"
	reflectionClass  = "AgentReflection"
)

// Store wraps a weaviate.Client as a memory.DurableStore.
type Store struct {
	client *weaviate.Client
}

// Open parses rawURL (e.g. "http://localhost:8080"), builds a Weaviate
// client, and ensures the observation/reflection classes exist.
func Open(ctx context.Context, rawURL string) (*Store, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, core.Wrap(core.ErrValidation, "parsing weaviate URL", err)
	}
	client, err := weaviate.NewClient(weaviate.Config{Host: parsed.Host, Scheme: parsed.Scheme})
	if err != nil {
		return nil, core.Wrap(core.ErrStorage, "creating weaviate client", err)
	}
	s := &Store{client: client}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	for _, class := range []*models.Class{observationSchema(), reflectionSchema()} {
		if _, err := s.client.Schema().ClassGetter().WithClassName(class.Class).Do(ctx); err == nil {
			continue
		}
		if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
			return core.Wrap(core.ErrStorage, fmt.Sprintf("creating weaviate class %s", class.Class), err)
		}
	}
	return nil
}

func observationSchema() *models.Class {
	return &models.Class{
		Class:      observationClass,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "memoryId", DataType: []string{"text"}},
			{Name: "agentId", DataType: []string{"text"}},
			{Name: "content", DataType: []string{"text"}},
			{Name: "source", DataType: []string{"text"}},
			{Name: "importance", DataType: []string{"number"}},
			{Name: "createdAt", DataType: []string{"date"}},
		},
	}
}

func reflectionSchema() *models.Class {
	return &models.Class{
		Class:      reflectionClass,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "memoryId", DataType: []string{"text"}},
			{Name: "agentId", DataType: []string{"text"}},
			{Name: "content", DataType: []string{"text"}},
			{Name: "importance", DataType: []string{"number"}},
			{Name: "sourceMemoryIds", DataType: []string{"text[]"}},
			{Name: "questionsAddressed", DataType: []string{"text[]"}},
			{Name: "createdAt", DataType: []string{"date"}},
		},
	}
}

func embeddingVector(embedding []float32) []float32 {
	if len(embedding) == 0 {
		return nil
	}
	return embedding
}

// SaveObservation implements memory.DurableStore.
func (s *Store) SaveObservation(ctx context.Context, agentID string, o core.Observation) error {
	props := map[string]any{
		"memoryId":   o.ID,
		"agentId":    agentID,
		"content":    o.Content,
		"source":     o.Source,
		"importance": o.Importance,
		"createdAt":  o.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
	}
	creator := s.client.Data().Creator().WithClassName(observationClass).WithProperties(props)
	if v := embeddingVector(o.Embedding); v != nil {
		creator = creator.WithVector(v)
	}
	if _, err := creator.Do(ctx); err != nil {
		return core.Wrap(core.ErrStorage, "saving observation to weaviate", err)
	}
	return nil
}

// SaveReflection implements memory.DurableStore.
func (s *Store) SaveReflection(ctx context.Context, agentID string, r core.Reflection) error {
	props := map[string]any{
		"memoryId":           r.ID,
		"agentId":            agentID,
		"content":            r.Content,
		"importance":         r.Importance,
		"sourceMemoryIds":    r.SourceMemoryIDs,
		"questionsAddressed": r.QuestionsAddressed,
		"createdAt":          r.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
	}
	creator := s.client.Data().Creator().WithClassName(reflectionClass).WithProperties(props)
	if v := embeddingVector(r.Embedding); v != nil {
		creator = creator.WithVector(v)
	}
	if _, err := creator.Do(ctx); err != nil {
		return core.Wrap(core.ErrStorage, "saving reflection to weaviate", err)
	}
	return nil
}

func agentFilter(agentID string) *filters.WhereBuilder {
	return filters.Where().WithPath([]string{"agentId"}).WithOperator(filters.Equal).WithValueString(agentID)
}

// LoadAll implements memory.DurableStore.
func (s *Store) LoadAll(ctx context.Context, agentID string) ([]core.Observation, []core.Reflection, error) {
	observations, err := s.loadObservations(ctx, agentID)
	if err != nil {
		return nil, nil, err
	}
	reflections, err := s.loadReflections(ctx, agentID)
	if err != nil {
		return nil, nil, err
	}
	return observations, reflections, nil
}

func (s *Store) loadObservations(ctx context.Context, agentID string) ([]core.Observation, error) {
	fields := []graphql.Field{
		{Name: "memoryId"}, {Name: "content"}, {Name: "source"}, {Name: "importance"}, {Name: "createdAt"},
	}
	result, err := s.client.GraphQL().Get().
		WithClassName(observationClass).
		WithFields(fields...).
		WithWhere(agentFilter(agentID)).
		WithLimit(10000).
		Do(ctx)
	if err != nil {
		return nil, core.Wrap(core.ErrStorage, "querying observations from weaviate", err)
	}
	if len(result.Errors) > 0 {
		return nil, core.Wrap(core.ErrStorage, "weaviate query error", fmt.Errorf("%s", result.Errors[0].Message))
	}

	var out []core.Observation
	for _, raw := range extractObjects(result, observationClass) {
		o := core.Observation{
			ID:         stringField(raw, "memoryId"),
			Content:    stringField(raw, "content"),
			Source:     stringField(raw, "source"),
			Importance: numberField(raw, "importance"),
			Timestamp:  timeField(raw, "createdAt"),
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *Store) loadReflections(ctx context.Context, agentID string) ([]core.Reflection, error) {
	fields := []graphql.Field{
		{Name: "memoryId"}, {Name: "content"}, {Name: "importance"},
		{Name: "sourceMemoryIds"}, {Name: "questionsAddressed"}, {Name: "createdAt"},
	}
	result, err := s.client.GraphQL().Get().
		WithClassName(reflectionClass).
		WithFields(fields...).
		WithWhere(agentFilter(agentID)).
		WithLimit(10000).
		Do(ctx)
	if err != nil {
		return nil, core.Wrap(core.ErrStorage, "querying reflections from weaviate", err)
	}
	if len(result.Errors) > 0 {
		return nil, core.Wrap(core.ErrStorage, "weaviate query error", fmt.Errorf("%s", result.Errors[0].Message))
	}

	var out []core.Reflection
	for _, raw := range extractObjects(result, reflectionClass) {
		r := core.Reflection{
			ID:                 stringField(raw, "memoryId"),
			Content:            stringField(raw, "content"),
			Importance:         numberField(raw, "importance"),
			SourceMemoryIDs:    stringSliceField(raw, "sourceMemoryIds"),
			QuestionsAddressed: stringSliceField(raw, "questionsAddressed"),
			Timestamp:          timeField(raw, "createdAt"),
		}
		out = append(out, r)
	}
	return out, nil
}

func extractObjects(result *models.GraphQLResponse, className string) []map[string]interface{} {
	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	objects, ok := data[className].([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(objects))
	for _, raw := range objects {
		if m, ok := raw.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func numberField(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

func stringSliceField(m map[string]interface{}, key string) []string {
	raw, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func timeField(m map[string]interface{}, key string) time.Time {
	s := stringField(m, key)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

var _ memory.DurableStore = (*Store)(nil)
