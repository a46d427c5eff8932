package simulation

import (
	"encoding/base64"
	"sort"

	"github.com/arunmenon/AgentWorld-sub001/core"
	"github.com/arunmenon/AgentWorld-sub001/internal/checkpoint"
	"github.com/arunmenon/AgentWorld-sub001/internal/memory"
	"github.com/arunmenon/AgentWorld-sub001/internal/topology"
)

// Snapshot captures the simulation's full state as a checkpoint and returns
// its serialized bytes (§4.L "snapshot()"; §4.K "Snapshot captures agents
// (with flattened memories), messages, topology, app states, and the audit
// log").
func (r *Runner) Snapshot(reason string) ([]byte, error) {
	state, err := r.buildCheckpointState()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	id := r.id
	step := r.step
	r.mu.Unlock()

	cp := r.checkpts.Create(id, step, state, reason, nil)
	return r.checkpts.Serialize(cp.Metadata.ID)
}

// Restore rehydrates the runner's live state from a previously serialized
// checkpoint (§4.L "restore(bytes)").
func (r *Runner) Restore(data []byte) error {
	cp, err := r.checkpts.Restore(data)
	if err != nil {
		return err
	}
	return r.applyCheckpointState(cp.State)
}

// buildCheckpointState converts the runner's live fields into a
// checkpoint.State, flattening each agent's memory into structured records
// and each app instance's state into a serialized blob keyed by app id.
func (r *Runner) buildCheckpointState() (checkpoint.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	agentRecords := make([]checkpoint.AgentRecord, 0, len(r.agentOrder))
	for _, id := range r.agentOrder {
		agent := r.agents[id]
		store := r.memories[id]

		var memories []checkpoint.MemoryRecord
		for _, o := range store.Observations() {
			memories = append(memories, checkpoint.MemoryRecord{
				Kind: "observation", ID: o.ID, Content: o.Content, Source: o.Source,
				Importance: o.Importance, CreatedAt: o.Timestamp, Embedding: o.Embedding,
			})
		}
		for _, ref := range store.Reflections() {
			memories = append(memories, checkpoint.MemoryRecord{
				Kind: "reflection", ID: ref.ID, Content: ref.Content,
				Importance: ref.Importance, CreatedAt: ref.Timestamp, Embedding: ref.Embedding,
				SourceMemoryIDs: ref.SourceMemoryIDs, QuestionsAddressed: ref.QuestionsAddressed,
			})
		}

		agentRecords = append(agentRecords, checkpoint.AgentRecord{
			ID: agent.ID, Name: agent.Name, Personality: agent.Personality,
			Background: agent.Background, Usage: agent.Usage, Suspended: agent.Suspended,
			Memories: memories,
		})
	}

	var edges []checkpoint.TopologyEdge
	for _, e := range r.topo.Edges() {
		edges = append(edges, checkpoint.TopologyEdge{Source: e.From, Target: e.To, Weight: e.Weight})
	}

	appStates := make(map[string]map[string]any, len(r.appOrder))
	for _, appID := range r.appOrder {
		data, err := r.apps[appID].Snapshot(true)
		if err != nil {
			return checkpoint.State{}, err
		}
		appStates[appID] = map[string]any{"snapshot": base64.StdEncoding.EncodeToString(data)}
	}

	return checkpoint.State{
		SimulationID:  r.id,
		Step:          r.step,
		Name:          r.name,
		Status:        string(r.status),
		Agents:        agentRecords,
		Messages:      append([]core.Message(nil), r.messages...),
		TopologyType:  r.topoCfg.Type,
		TopologyEdges: edges,
		AppStates:     appStates,
		AuditLog:      r.auditLogSnapshot(),
	}, nil
}

// applyCheckpointState rehydrates every live field from a checkpoint.State
// produced by buildCheckpointState, restoring agents, memories, topology
// edges, app instances, and the message log.
func (r *Runner) applyCheckpointState(state checkpoint.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.id = state.SimulationID
	r.name = state.Name
	r.step = state.Step
	r.status = Status(state.Status)
	r.messages = append([]core.Message(nil), state.Messages...)
	r.agents = map[string]*core.Agent{}
	r.agentOrder = nil
	r.memories = map[string]*memory.Store{}
	r.pendingMessages = map[string][]core.Message{}
	r.pendingObservations = map[string][]core.Observation{}

	agentIDs := make([]string, 0, len(state.Agents))
	for _, rec := range state.Agents {
		agent := &core.Agent{ID: rec.ID, Name: rec.Name, Personality: rec.Personality, Background: rec.Background, Usage: rec.Usage, Suspended: rec.Suspended}
		r.agents[rec.ID] = agent
		r.agentOrder = append(r.agentOrder, rec.ID)
		agentIDs = append(agentIDs, rec.ID)

		var observations []core.Observation
		var reflections []core.Reflection
		for _, m := range rec.Memories {
			if m.Kind == "reflection" {
				reflections = append(reflections, core.Reflection{
					ID: m.ID, Content: m.Content, Timestamp: m.CreatedAt, Importance: m.Importance,
					Embedding: m.Embedding, SourceMemoryIDs: m.SourceMemoryIDs, QuestionsAddressed: m.QuestionsAddressed,
				})
				continue
			}
			observations = append(observations, core.Observation{
				ID: m.ID, Content: m.Content, Source: m.Source, Timestamp: m.CreatedAt,
				Importance: m.Importance, Embedding: m.Embedding,
			})
		}
		store := memory.New(r.memCfg, r.gateway, r.embed)
		store.Restore(observations, reflections)
		if r.memDurable != nil {
			store.AttachDurableStore(rec.ID, r.memDurable)
		}
		r.memories[rec.ID] = store
	}
	sort.Strings(r.agentOrder)

	graph := topology.New(r.topo.Directed, r.topo.RoutingMode)
	graph.SyncNodes(agentIDs)
	for _, e := range state.TopologyEdges {
		graph.AddEdge(e.Source, e.Target, e.Weight)
	}
	r.topo = graph
	r.topoCfg.Type = state.TopologyType

	for _, appID := range r.appOrder {
		blob, ok := state.AppStates[appID]
		if !ok {
			continue
		}
		encoded, _ := blob["snapshot"].(string)
		if encoded == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return err
		}
		if err := r.apps[appID].Restore(data); err != nil {
			return err
		}
	}

	return nil
}
