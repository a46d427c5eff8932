package core

import "time"

// Message is an immutable, once-sent communication between agents (§3).
type Message struct {
	ID           string    `json:"id"`
	SimulationID string    `json:"simulationId"`
	SenderID     string    `json:"senderId"`
	ReceiverID   string    `json:"receiverId,omitempty"` // empty => broadcast
	Content      string    `json:"content"`
	Step         int       `json:"step"`
	Timestamp    time.Time `json:"timestamp"`
}

// IsBroadcast reports whether the message has no single receiver.
func (m Message) IsBroadcast() bool { return m.ReceiverID == "" }

// PersonalityTraits are five scalar traits in [0,1] (§3 Agent).
type PersonalityTraits struct {
	Openness          float64 `yaml:"openness" json:"openness"`
	Conscientiousness float64 `yaml:"conscientiousness" json:"conscientiousness"`
	Extraversion      float64 `yaml:"extraversion" json:"extraversion"`
	Agreeableness     float64 `yaml:"agreeableness" json:"agreeableness"`
	Neuroticism       float64 `yaml:"neuroticism" json:"neuroticism"`
}

// UsageCounters track cumulative LLM token/cost consumption for one agent.
type UsageCounters struct {
	PromptTokens     int     `json:"promptTokens"`
	CompletionTokens int     `json:"completionTokens"`
	TotalCost        float64 `json:"totalCost"`
}

// Add accumulates usage from one LLM Response into the counters.
func (u *UsageCounters) Add(promptTokens, completionTokens int, cost float64) {
	u.PromptTokens += promptTokens
	u.CompletionTokens += completionTokens
	u.TotalCost += cost
}

// Agent is a persona-bearing simulation participant (§3). It is owned
// exclusively by one Simulation; its MemoryStore is owned exclusively by it.
type Agent struct {
	ID          string
	Name        string
	Personality PersonalityTraits
	Background  string
	Usage       UsageCounters

	// Suspended is set by the Step Scheduler's suspend_agent error strategy.
	Suspended bool
}

// Observation is an episodic memory entry (§3).
type Observation struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Source     string    `json:"source"`
	Timestamp  time.Time `json:"timestamp"`
	Importance float64   `json:"importance"` // 1..10
	Embedding  []float32 `json:"embedding,omitempty"`
	EmbedModel string    `json:"embedModel,omitempty"`
	// Data carries the structured payload an `observe` logic statement
	// attaches alongside its free-form message (§4.E).
	Data map[string]any `json:"data,omitempty"`
}

// Reflection is a synthesized semantic memory entry (§3).
type Reflection struct {
	ID                 string    `json:"id"`
	Content            string    `json:"content"`
	Timestamp          time.Time `json:"timestamp"`
	Importance         float64   `json:"importance"` // fixed high constant, default 9
	Embedding          []float32 `json:"embedding,omitempty"`
	SourceMemoryIDs    []string  `json:"sourceMemoryIds"`
	QuestionsAddressed []string  `json:"questionsAddressed"`
}

// GoalConditionType enumerates §3 Goal Spec condition kinds.
type GoalConditionType string

const (
	GoalStateEquals      GoalConditionType = "state_equals"
	GoalStateContains    GoalConditionType = "state_contains"
	GoalStateGreater     GoalConditionType = "state_greater"
	GoalStateLess        GoalConditionType = "state_less"
	GoalStateExists      GoalConditionType = "state_exists"
	GoalActionExecuted   GoalConditionType = "action_executed"
	GoalActionSucceeded  GoalConditionType = "action_succeeded"
	GoalHandoffCompleted GoalConditionType = "handoff_completed"
	GoalOutputContains   GoalConditionType = "output_contains"
)

// GoalCondition is one clause of a GoalSpec (§3, §6).
type GoalCondition struct {
	GoalType      GoalConditionType `json:"goal_type" yaml:"goal_type"`
	Description   string            `json:"description,omitempty" yaml:"description,omitempty"`
	AppID         string            `json:"app_id,omitempty" yaml:"app_id,omitempty"`
	FieldPath     string            `json:"field_path,omitempty" yaml:"field_path,omitempty"`
	Operator      string            `json:"operator,omitempty" yaml:"operator,omitempty"`
	ExpectedValue any               `json:"expected_value,omitempty" yaml:"expected_value,omitempty"`
	ActionName    string            `json:"action_name,omitempty" yaml:"action_name,omitempty"`
	HandoffID     string            `json:"handoff_id,omitempty" yaml:"handoff_id,omitempty"`
	RequiredPhrase string           `json:"required_phrase,omitempty" yaml:"required_phrase,omitempty"`
}

// SuccessMode is the aggregation rule over GoalConditions.
type SuccessMode string

const (
	SuccessAll SuccessMode = "all"
	SuccessAny SuccessMode = "any"
)

// GoalSpec is the declarative success criterion for a simulation (§3, §6).
type GoalSpec struct {
	Conditions  []GoalCondition `json:"conditions" yaml:"conditions"`
	SuccessMode SuccessMode     `json:"success_mode" yaml:"success_mode"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
}

// HandoffEvent records a completed handoff for handoff_completed conditions.
type HandoffEvent struct {
	HandoffID string
	Step      int
	From      string
	To        string
}
