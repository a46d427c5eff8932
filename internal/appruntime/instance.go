package appruntime

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/arunmenon/AgentWorld-sub001/core"
	"github.com/arunmenon/AgentWorld-sub001/internal/logic"
)

// Instance wires an AppDefinition to a concrete simulation (§3 App
// Instance): it owns the AppState, the audit log, and per-recipient
// observation queues. Guarded by a per-instance lock per §5 ("Apps are
// single-writer... the scheduler guarantees that two actions on the same
// app instance never commit concurrently").
type Instance struct {
	mu sync.Mutex

	Def   *core.AppDefinition
	State *core.AppState

	auditLog     []core.AuditEntry
	observations map[string][]core.Observation

	// Episode fields for the optional RL wrapper (§4.F Episode wrapper).
	episodeID   string
	stepCount   int
	terminated  bool
	truncated   bool
}

// New builds an Instance for def, not yet initialized.
func New(def *core.AppDefinition) *Instance {
	return &Instance{Def: def, State: core.NewAppState(), observations: map[string][]core.Observation{}}
}

func defaultsFor(schema []core.StateField, perAgent bool) map[string]any {
	out := map[string]any{}
	for _, f := range schema {
		if f.PerAgent == perAgent {
			out[f.Name] = copyDefault(f.Default)
		}
	}
	return out
}

// copyDefault deep-copies a StateField.Default value so that multiple
// instances of the same AppDefinition (or multiple agents within one
// instance) never share a mutable map/slice default by reference.
func copyDefault(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = copyDefault(vv)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = copyDefault(vv)
		}
		return s
	default:
		return v
	}
}

// Initialize materializes per-agent defaults for every agent, builds shared
// defaults, overlays config, and registers the display-name map (§4.F step 1).
func (in *Instance) Initialize(agentIDs []string, displayNames map[string]string, configOverlay map[string]any) {
	in.mu.Lock()
	defer in.mu.Unlock()

	perAgentDefaults := defaultsFor(in.Def.StateSchema, true)
	for _, id := range agentIDs {
		in.State.EnsureAgent(id, perAgentDefaults)
	}
	for k, v := range defaultsFor(in.Def.StateSchema, false) {
		in.State.Shared[k] = v
	}
	for k, v := range in.Def.InitialConfig {
		in.State.Shared[k] = v
	}
	for k, v := range configOverlay {
		in.State.Shared[k] = v
	}
	for id, name := range displayNames {
		in.State.DisplayNames[id] = name
	}
}

// EnsureAgent materializes per-agent defaults on first contact with a new
// agent, satisfying the §3 AppState invariant outside of Initialize.
func (in *Instance) EnsureAgent(agentID string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.State.EnsureAgent(agentID, defaultsFor(in.Def.StateSchema, true))
}

// Execute validates params, runs the action's logic via internal/logic, and
// on success commits the working state copy and drains observations into
// the instance's recipient queues (§4.F step 2).
func (in *Instance) Execute(agentID, actionName string, rawParams map[string]any, step int) (core.ActionResult, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	def, ok := in.Def.ActionByName(actionName)
	if !ok {
		return core.ActionResult{}, core.NewError(core.ErrValidation, fmt.Sprintf("unknown action %q on app %q", actionName, in.Def.AppID))
	}
	params, err := ValidateParams(def.Params, rawParams)
	if err != nil {
		entry := core.AuditEntry{AppID: in.Def.AppID, AgentID: agentID, ActionName: actionName, Step: step, Params: rawParams, Success: false, Error: err.Error()}
		in.auditLog = append(in.auditLog, entry)
		return core.ActionResult{Success: false, Error: err.Error()}, core.Wrap(core.ErrValidation, "parameter validation failed", err)
	}
	in.State.EnsureAgent(agentID, defaultsFor(in.Def.StateSchema, true))

	outcome := logic.Execute(def, agentID, params, in.State, in.Def.StateSchema, in.State.Shared)
	if outcome.Result.Success {
		in.State = outcome.State
		for _, obs := range outcome.Observations {
			in.observations[obs.ToAgentID] = append(in.observations[obs.ToAgentID], obs.Observation)
		}
	}
	in.auditLog = append(in.auditLog, core.AuditEntry{
		AppID: in.Def.AppID, AgentID: agentID, ActionName: actionName, Step: step,
		Params: params, Success: outcome.Result.Success, Error: outcome.Result.Error, LogLines: outcome.LogLines,
	})
	return outcome.Result, nil
}

// ExecuteStateless runs the same logic on a deep copy of the given state,
// without mutating the instance (§4.F step 6, the sandbox-test surface).
func (in *Instance) ExecuteStateless(agentID, actionName string, rawParams map[string]any, inState *core.AppState, config map[string]any) (core.ActionResult, *core.AppState, []core.OutboundObservation, error) {
	def, ok := in.Def.ActionByName(actionName)
	if !ok {
		return core.ActionResult{}, nil, nil, core.NewError(core.ErrValidation, fmt.Sprintf("unknown action %q", actionName))
	}
	params, err := ValidateParams(def.Params, rawParams)
	if err != nil {
		return core.ActionResult{Success: false, Error: err.Error()}, inState, nil, nil
	}
	working := inState.Clone()
	if cfg := config; cfg != nil {
		outcome := logic.Execute(def, agentID, params, working, in.Def.StateSchema, cfg)
		return outcome.Result, outcome.State, outcome.Observations, nil
	}
	outcome := logic.Execute(def, agentID, params, working, in.Def.StateSchema, working.Shared)
	return outcome.Result, outcome.State, outcome.Observations, nil
}

// GetAgentState returns a copy of one agent's per-agent fields.
func (in *Instance) GetAgentState(agentID string) map[string]any {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := map[string]any{}
	for k, v := range in.State.PerAgent[agentID] {
		out[k] = v
	}
	return out
}

// GetAgentView returns the agent's slice plus shared state (§4.F step 3).
func (in *Instance) GetAgentView(agentID string) map[string]any {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.State.View(agentID)
}

// PopObservations atomically drains pending observations for agentID
// (§4.F step 4).
func (in *Instance) PopObservations(agentID string) []core.Observation {
	in.mu.Lock()
	defer in.mu.Unlock()
	obs := in.observations[agentID]
	delete(in.observations, agentID)
	return obs
}

// AuditLog returns a copy of the append-only action audit log.
func (in *Instance) AuditLog() []core.AuditEntry {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make([]core.AuditEntry, len(in.auditLog))
	copy(out, in.auditLog)
	return out
}

// instanceSnapshot is the serialized form produced by Snapshot.
type instanceSnapshot struct {
	State     *core.AppState    `json:"state"`
	AuditLog  []core.AuditEntry `json:"audit_log"`
}

// Snapshot serializes the instance's AppState and, per policy, its audit
// log (§4.F step 5).
func (in *Instance) Snapshot(includeAudit bool) ([]byte, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	snap := instanceSnapshot{State: in.State}
	if includeAudit {
		snap.AuditLog = in.auditLog
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return nil, core.Wrap(core.ErrStorage, "marshaling app instance snapshot", err)
	}
	return b, nil
}

// Restore reloads an AppState (and audit log, if present) from bytes
// produced by Snapshot.
func (in *Instance) Restore(data []byte) error {
	var snap instanceSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return core.Wrap(core.ErrStorage, "unmarshaling app instance snapshot", err)
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.State = snap.State
	in.auditLog = snap.AuditLog
	return nil
}
