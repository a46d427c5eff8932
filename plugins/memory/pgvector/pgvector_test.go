package pgvector

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/arunmenon/AgentWorld-sub001/core"
)

func TestToVector(t *testing.T) {
	assert.Nil(t, toVector(nil))

	v := toVector([]float32{0.1, 0.2, 0.3})
	require.NotNil(t, v)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, v.Slice())
}

func TestOpenRejectsMalformedConnString(t *testing.T) {
	_, err := Open(context.Background(), "not-a-conn-string", 1536)
	assert.Error(t, err)
}

// StoreIntegrationTestSuite exercises Store against a real PostgreSQL
// instance with the pgvector extension installed. It is skipped unless
// AGENTWORLD_TEST_PGVECTOR_URL is set.
type StoreIntegrationTestSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
}

func (s *StoreIntegrationTestSuite) SetupSuite() {
	connStr := os.Getenv("AGENTWORLD_TEST_PGVECTOR_URL")
	if connStr == "" {
		s.T().Skip("AGENTWORLD_TEST_PGVECTOR_URL not set, skipping pgvector integration tests")
	}
	s.ctx = context.Background()
	store, err := Open(s.ctx, connStr, 8)
	s.Require().NoError(err)
	s.store = store
}

func (s *StoreIntegrationTestSuite) TearDownSuite() {
	if s.store != nil {
		s.store.Close()
	}
}

func (s *StoreIntegrationTestSuite) TestSaveAndLoadObservation() {
	agentID := "agent-1"
	obs := core.Observation{
		ID:         "obs-1",
		Content:    "saw a cat",
		Source:     "perception",
		Importance: 0.5,
		Embedding:  []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8},
		EmbedModel: "test-embed",
		Timestamp:  time.Now().UTC().Truncate(time.Second),
	}
	s.Require().NoError(s.store.SaveObservation(s.ctx, agentID, obs))

	observations, _, err := s.store.LoadAll(s.ctx, agentID)
	s.Require().NoError(err)
	s.Require().Len(observations, 1)
	s.Equal(obs.Content, observations[0].Content)
}

func (s *StoreIntegrationTestSuite) TestSaveAndLoadReflection() {
	agentID := "agent-2"
	refl := core.Reflection{
		ID:                 "refl-1",
		Content:            "cats seem friendly here",
		Importance:         0.7,
		SourceMemoryIDs:    []string{"obs-1", "obs-2"},
		QuestionsAddressed: []string{"are cats friendly?"},
		Timestamp:          time.Now().UTC().Truncate(time.Second),
	}
	s.Require().NoError(s.store.SaveReflection(s.ctx, agentID, refl))

	_, reflections, err := s.store.LoadAll(s.ctx, agentID)
	s.Require().NoError(err)
	s.Require().Len(reflections, 1)
	s.Equal(refl.Content, reflections[0].Content)
}

func TestStoreIntegrationSuite(t *testing.T) {
	suite.Run(t, new(StoreIntegrationTestSuite))
}
