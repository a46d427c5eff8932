// Package checkpoint implements the Checkpoint Engine (§4.K): capturing a
// full simulation snapshot, serializing it to a versioned JSON blob, and
// restoring a runnable state from one.
package checkpoint

import (
	"time"

	"github.com/arunmenon/AgentWorld-sub001/core"
)

// CurrentVersion is the checkpoint blob format version.
const CurrentVersion = 1

// Metadata is the checkpoint header (§3 Checkpoint, §4.K).
type Metadata struct {
	ID           string         `json:"id"`
	SimulationID string         `json:"simulationId"`
	Step         int            `json:"step"`
	Reason       string         `json:"reason"`
	CreatedAt    time.Time      `json:"createdAt"`
	Extra        map[string]any `json:"metadata,omitempty"`
}

// MemoryRecord flattens one observation or reflection into a structured
// record for the agent's checkpointed memory list (§4.K "agents with
// memories flattened into structured records").
type MemoryRecord struct {
	Kind               string    `json:"kind"` // "observation" | "reflection"
	ID                 string    `json:"id"`
	Content            string    `json:"content"`
	Source             string    `json:"source,omitempty"`
	Importance         float64   `json:"importance"`
	CreatedAt          time.Time `json:"createdAt"`
	Embedding          []float32 `json:"embedding,omitempty"`
	SourceMemoryIDs    []string  `json:"sourceMemoryIds,omitempty"`
	QuestionsAddressed []string  `json:"questionsAddressed,omitempty"`
}

// AgentRecord is one agent's checkpointed state.
type AgentRecord struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Personality core.PersonalityTraits `json:"personality"`
	Background  string                `json:"background,omitempty"`
	Usage       core.UsageCounters    `json:"usage"`
	Suspended   bool                  `json:"suspended"`
	Memories    []MemoryRecord        `json:"memories,omitempty"`
}

// TopologyEdge is one weighted edge in the checkpointed topology graph.
type TopologyEdge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

// State is the full simulation snapshot (§4.K "Snapshot captures").
type State struct {
	SimulationID  string                    `json:"simulationId"`
	Step          int                       `json:"step"`
	Name          string                    `json:"name"`
	Status        string                    `json:"status"`
	Config        map[string]any            `json:"config,omitempty"`
	Agents        []AgentRecord             `json:"agents"`
	Messages      []core.Message            `json:"messages"`
	TopologyType  string                    `json:"topologyType"`
	TopologyEdges []TopologyEdge            `json:"topologyEdges"`
	AppStates     map[string]map[string]any `json:"appStates,omitempty"`
	AuditLog      []core.AuditEntry         `json:"auditLog,omitempty"`
	Metadata      map[string]any            `json:"metadata,omitempty"`
}

// Checkpoint bundles a metadata header with its state snapshot.
type Checkpoint struct {
	Version  int      `json:"version"`
	Metadata Metadata `json:"metadata"`
	State    State    `json:"state"`
}
