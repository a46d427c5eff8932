package checkpoint

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arunmenon/AgentWorld-sub001/core"
)

// Manager creates, stores, and restores checkpoints. The in-memory map is
// the system of record for a running process; a caller that wants
// cross-process durability serializes via Serialize and persists the bytes
// itself (e.g. to the durable cache store), then restores with Restore.
type Manager struct {
	mu          sync.RWMutex
	checkpoints map[string]Checkpoint
	nowFn       func() time.Time
}

// NewManager returns an empty checkpoint manager.
func NewManager() *Manager {
	return &Manager{checkpoints: map[string]Checkpoint{}, nowFn: time.Now}
}

// Create builds and registers a new checkpoint from the given state.
func (m *Manager) Create(simulationID string, step int, state State, reason string, metadata map[string]any) Checkpoint {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := Checkpoint{
		Version: CurrentVersion,
		Metadata: Metadata{
			ID:           uuid.NewString()[:8],
			SimulationID: simulationID,
			Step:         step,
			Reason:       reason,
			CreatedAt:    m.nowFn(),
			Extra:        metadata,
		},
		State: state,
	}
	m.checkpoints[cp.Metadata.ID] = cp
	return cp
}

// Get returns the checkpoint with the given id, if registered.
func (m *Manager) Get(id string) (Checkpoint, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp, ok := m.checkpoints[id]
	return cp, ok
}

// List returns checkpoint metadata, newest first, optionally filtered to
// one simulation (§4.K "list(simulationId?) sorted by createdAt
// descending").
func (m *Manager) List(simulationID string) []Metadata {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Metadata, 0, len(m.checkpoints))
	for _, cp := range m.checkpoints {
		if simulationID != "" && cp.Metadata.SimulationID != simulationID {
			continue
		}
		out = append(out, cp.Metadata)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Delete removes a checkpoint by id, reporting whether it existed.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.checkpoints[id]; !ok {
		return false
	}
	delete(m.checkpoints, id)
	return true
}

// Serialize encodes the registered checkpoint to its external blob form.
func (m *Manager) Serialize(id string) ([]byte, error) {
	cp, ok := m.Get(id)
	if !ok {
		return nil, core.NewError(core.ErrStorage, "checkpoint not found: "+id)
	}
	return Serialize(cp)
}

// Restore decodes a checkpoint blob, registers it under its own id, and
// returns it (§4.K "restore(bytes) (registers and returns)").
func (m *Manager) Restore(data []byte) (Checkpoint, error) {
	cp, err := Deserialize(data)
	if err != nil {
		return Checkpoint{}, err
	}
	m.mu.Lock()
	m.checkpoints[cp.Metadata.ID] = cp
	m.mu.Unlock()
	return cp, nil
}

// Clear removes every checkpoint, or only those for one simulation if
// simulationID is non-empty, returning the count removed.
func (m *Manager) Clear(simulationID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if simulationID == "" {
		n := len(m.checkpoints)
		m.checkpoints = map[string]Checkpoint{}
		return n
	}

	var toDelete []string
	for id, cp := range m.checkpoints {
		if cp.Metadata.SimulationID == simulationID {
			toDelete = append(toDelete, id)
		}
	}
	for _, id := range toDelete {
		delete(m.checkpoints, id)
	}
	return len(toDelete)
}
