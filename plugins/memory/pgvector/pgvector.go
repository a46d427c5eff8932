// Package pgvector implements memory.DurableStore on PostgreSQL with the
// pgvector extension, persisting per-agent observations and reflections
// (with their embeddings) so the Memory Subsystem (§4.G) survives process
// restarts independent of checkpointing.
package pgvector

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvec "github.com/pgvector/pgvector-go"

	"github.com/arunmenon/AgentWorld-sub001/core"
	"github.com/arunmenon/AgentWorld-sub001/internal/memory"
)

// Store wraps a pgxpool.Pool as a memory.DurableStore.
type Store struct {
	pool       *pgxpool.Pool
	dimensions int
}

// Open connects to connString and ensures the observation/reflection tables
// exist, sizing the embedding column to dimensions.
func Open(ctx context.Context, connString string, dimensions int) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, core.Wrap(core.ErrStorage, "connecting to pgvector store", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, core.Wrap(core.ErrStorage, "pinging pgvector store", err)
	}
	s := &Store{pool: pool, dimensions: dimensions}
	if err := s.createTables(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createTables(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return core.Wrap(core.ErrStorage, "enabling vector extension", err)
	}

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS agent_observations (
			id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL,
			content TEXT NOT NULL,
			source TEXT,
			importance DOUBLE PRECISION NOT NULL,
			embedding vector(%d),
			embed_model TEXT,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_agent_observations_agent ON agent_observations(agent_id);
		CREATE INDEX IF NOT EXISTS idx_agent_observations_embedding ON agent_observations USING ivfflat (embedding vector_cosine_ops);

		CREATE TABLE IF NOT EXISTS agent_reflections (
			id TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL,
			content TEXT NOT NULL,
			importance DOUBLE PRECISION NOT NULL,
			embedding vector(%d),
			source_memory_ids TEXT[],
			questions_addressed TEXT[],
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_agent_reflections_agent ON agent_reflections(agent_id);
	`, s.dimensions, s.dimensions)

	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return core.Wrap(core.ErrStorage, "creating memory tables", err)
	}
	return nil
}

func toVector(embedding []float32) *pgvec.Vector {
	if len(embedding) == 0 {
		return nil
	}
	v := pgvec.NewVector(embedding)
	return &v
}

// SaveObservation implements memory.DurableStore.
func (s *Store) SaveObservation(ctx context.Context, agentID string, o core.Observation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO agent_observations (id, agent_id, content, source, importance, embedding, embed_model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET content = EXCLUDED.content, importance = EXCLUDED.importance
	`, o.ID, agentID, o.Content, o.Source, o.Importance, toVector(o.Embedding), o.EmbedModel, o.Timestamp)
	if err != nil {
		return core.Wrap(core.ErrStorage, "saving observation", err)
	}
	return nil
}

// SaveReflection implements memory.DurableStore.
func (s *Store) SaveReflection(ctx context.Context, agentID string, r core.Reflection) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO agent_reflections (id, agent_id, content, importance, embedding, source_memory_ids, questions_addressed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET content = EXCLUDED.content, importance = EXCLUDED.importance
	`, r.ID, agentID, r.Content, r.Importance, toVector(r.Embedding), r.SourceMemoryIDs, r.QuestionsAddressed, r.Timestamp)
	if err != nil {
		return core.Wrap(core.ErrStorage, "saving reflection", err)
	}
	return nil
}

// LoadAll implements memory.DurableStore, returning every observation and
// reflection previously persisted for agentID, oldest first.
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
	rows, err := s.pool.Query(ctx, `
		SELECT id, content, source, importance, embed_model, created_at
		FROM agent_observations WHERE agent_id = $1 ORDER BY created_at ASC
	`, agentID)
	if err != nil {
		return nil, core.Wrap(core.ErrStorage, "loading observations", err)
	}
	defer rows.Close()

	var out []core.Observation
	for rows.Next() {
		var o core.Observation
		if err := rows.Scan(&o.ID, &o.Content, &o.Source, &o.Importance, &o.EmbedModel, &o.Timestamp); err != nil {
			return nil, core.Wrap(core.ErrStorage, "scanning observation row", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) loadReflections(ctx context.Context, agentID string) ([]core.Reflection, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, content, importance, source_memory_ids, questions_addressed, created_at
		FROM agent_reflections WHERE agent_id = $1 ORDER BY created_at ASC
	`, agentID)
	if err != nil {
		return nil, core.Wrap(core.ErrStorage, "loading reflections", err)
	}
	defer rows.Close()

	var out []core.Reflection
	for rows.Next() {
		var r core.Reflection
		if err := rows.Scan(&r.ID, &r.Content, &r.Importance, &r.SourceMemoryIDs, &r.QuestionsAddressed, &r.Timestamp); err != nil {
			return nil, core.Wrap(core.ErrStorage, "scanning reflection row", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

var _ memory.DurableStore = (*Store)(nil)
