package core

// ParamType is the tagged-union discriminant for an action parameter's
// declared type (§3 Action Definition, §9 Design Notes — "Action
// parameters... represent as a tagged union per ParamType").
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
	ParamArray   ParamType = "array"
	ParamObject  ParamType = "object"
)

// ParamSpec describes one action parameter's validation rules.
type ParamSpec struct {
	Name      string    `json:"name"`
	Type      ParamType `json:"type"`
	Required  bool      `json:"required"`
	Default   any       `json:"default,omitempty"`
	Min       *float64  `json:"min,omitempty"`
	Max       *float64  `json:"max,omitempty"`
	MinLength *int      `json:"min_length,omitempty"`
	MaxLength *int      `json:"max_length,omitempty"`
	Pattern   string    `json:"pattern,omitempty"`
	Enum      []any     `json:"enum,omitempty"`
}

// ActionClassification groups actions by effect, e.g. for audit UIs.
type ActionClassification string

const (
	ActionRead    ActionClassification = "read"
	ActionWrite   ActionClassification = "write"
	ActionConfirm ActionClassification = "confirm"
)

// StmtKind is the closed sum type of logic-program statement kinds (§4.E,
// §9 Design Notes).
type StmtKind string

const (
	StmtSet      StmtKind = "set"
	StmtIf       StmtKind = "if"
	StmtReturn   StmtKind = "return"
	StmtFail     StmtKind = "fail"
	StmtObserve  StmtKind = "observe"
	StmtLog      StmtKind = "log"
	StmtRandomID StmtKind = "random_id"
)

// Statement is one node of an action's logic program. Exactly the fields
// relevant to Kind are populated; internal/logic's interpreter switches
// over Kind and fails the action with an error on an unrecognized Kind,
// never a silent no-op. The definition loader does not check Kinds.
type Statement struct {
	Kind StmtKind `json:"kind"`

	// set. PathAgentExpr, when non-empty, is an expression resolving the
	// target agent id; Path is then relative to that agent's per-agent
	// state instead of the acting agent's (needed by actions, like a
	// payment transfer, that credit a counterparty named by a parameter).
	Path          string `json:"path,omitempty"`
	ValueExpr     string `json:"value,omitempty"`
	PathAgentExpr string `json:"path_agent,omitempty"`
	// KeyExpr, when non-empty, is an expression whose stringified result is
	// appended as one more, dynamically named, path segment after Path —
	// needed to write a map entry keyed by a runtime value such as a
	// generated request id.
	KeyExpr string `json:"path_key,omitempty"`

	// if
	CondExpr string      `json:"cond,omitempty"`
	Then     []Statement `json:"then,omitempty"`
	Else     []Statement `json:"else,omitempty"`

	// return: field name -> expression source
	ReturnExprs map[string]string `json:"return,omitempty"`

	// fail
	MessageExpr string `json:"message,omitempty"`

	// observe
	ToExpr       string            `json:"to,omitempty"`
	ObserveMsg   string            `json:"observe_message,omitempty"`
	DataExprs    map[string]string `json:"data,omitempty"`
	PriorityExpr string            `json:"priority,omitempty"`

	// log
	LogExpr string `json:"log,omitempty"`

	// random_id
	Binding string `json:"binding,omitempty"`
}

// ActionDefinition is a named, parametrized operation an app exposes (§3).
type ActionDefinition struct {
	Name           string                `json:"name"`
	Description    string                `json:"description,omitempty"`
	Params         []ParamSpec           `json:"params"`
	Returns        map[string]string     `json:"returns,omitempty"`
	Classification ActionClassification  `json:"classification,omitempty"`
	Logic          []Statement           `json:"logic"`
}

// StateField is one field of an App Definition's state schema (§3).
type StateField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	PerAgent bool   `json:"per_agent"`
	Default  any    `json:"default,omitempty"`
}

// AppDefinition is the static, declarative description of a simulated app
// (§3); one definition backs many AppInstances.
type AppDefinition struct {
	AppID       string `json:"app_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Version     string `json:"version,omitempty"`
	IsActive    bool   `json:"is_active"`

	StateSchema   []StateField         `json:"state_schema"`
	InitialConfig map[string]any       `json:"initial_config,omitempty"`
	Actions       []ActionDefinition   `json:"actions"`
}

// ActionByName finds an action definition by name.
func (d *AppDefinition) ActionByName(name string) (*ActionDefinition, bool) {
	for i := range d.Actions {
		if d.Actions[i].Name == name {
			return &d.Actions[i], true
		}
	}
	return nil, false
}

// ActionResult is the outcome of executing one action (§4.E/§4.F).
type ActionResult struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// AuditEntry is one append-only action-audit-log record (§3 App Instance).
type AuditEntry struct {
	AppID      string         `json:"app_id"`
	AgentID    string         `json:"agent_id"`
	ActionName string         `json:"action_name"`
	Step       int            `json:"step"`
	Params     map[string]any `json:"params,omitempty"`
	Success    bool           `json:"success"`
	Error      string         `json:"error,omitempty"`
	LogLines   []string       `json:"log_lines,omitempty"`
}

// OutboundObservation pairs a recipient agent id with the Observation to
// enqueue for it (§4.E execution output).
type OutboundObservation struct {
	ToAgentID   string
	Observation Observation
}
