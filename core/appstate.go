package core

// AppState is one App Instance's runtime state: per-agent and shared maps
// plus an agent-id <-> display-name resolver (§3 App State).
type AppState struct {
	PerAgent     map[string]map[string]any `json:"per_agent"`
	Shared       map[string]any            `json:"shared"`
	DisplayNames map[string]string         `json:"display_names"`
}

// NewAppState builds an empty AppState.
func NewAppState() *AppState {
	return &AppState{
		PerAgent:     make(map[string]map[string]any),
		Shared:       make(map[string]any),
		DisplayNames: make(map[string]string),
	}
}

// EnsureAgent guarantees agentID has a per-agent state map, materializing it
// from the supplied defaults if absent (§3 AppState invariant).
func (s *AppState) EnsureAgent(agentID string, defaults map[string]any) {
	if _, ok := s.PerAgent[agentID]; ok {
		return
	}
	m := make(map[string]any, len(defaults))
	for k, v := range defaults {
		m[k] = v
	}
	s.PerAgent[agentID] = m
}

// Clone deep-copies the state for copy-on-write execution (§4.E, §5).
func (s *AppState) Clone() *AppState {
	out := NewAppState()
	for agent, fields := range s.PerAgent {
		m := make(map[string]any, len(fields))
		for k, v := range fields {
			m[k] = deepCopyValue(v)
		}
		out.PerAgent[agent] = m
	}
	for k, v := range s.Shared {
		out.Shared[k] = deepCopyValue(v)
	}
	for k, v := range s.DisplayNames {
		out.DisplayNames[k] = v
	}
	return out
}

// CopyFrom replaces this state's contents with a deep copy of src, used to
// commit a working copy produced by Clone (§4.E "commit on success").
func (s *AppState) CopyFrom(src *AppState) {
	s.PerAgent = src.Clone().PerAgent
	s.Shared = src.Clone().Shared
	if src.DisplayNames != nil {
		dn := make(map[string]string, len(src.DisplayNames))
		for k, v := range src.DisplayNames {
			dn[k] = v
		}
		s.DisplayNames = dn
	}
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[k] = deepCopyValue(vv)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = deepCopyValue(vv)
		}
		return s
	default:
		return v
	}
}

// View returns a merged map {fields..., "shared": shared} the way
// getAgentView presents state to callers (§4.F).
func (s *AppState) View(agentID string) map[string]any {
	out := map[string]any{}
	if fields, ok := s.PerAgent[agentID]; ok {
		for k, v := range fields {
			out[k] = v
		}
	}
	out["shared"] = s.Shared
	return out
}

// AsEnvMap builds the agent and agents entries of an Env: agent (this
// agent's fields) and agents (all agents' fields), used by internal/logic
// when evaluating expressions. The config entry is supplied by the caller.
func (s *AppState) AsEnvMap(agentID string) (agent map[string]any, agents map[string]any) {
	agent = s.PerAgent[agentID]
	if agent == nil {
		agent = map[string]any{}
	}
	agents = make(map[string]any, len(s.PerAgent))
	for id, fields := range s.PerAgent {
		agents[id] = fields
	}
	return agent, agents
}
