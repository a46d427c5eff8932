package core

import "time"

// EventType enumerates the coarse-grained lifecycle events emitted by the
// Simulation Runner (§6 External Interfaces — Event stream).
type EventType string

const (
	EventSimulationCreated   EventType = "simulation.created"
	EventSimulationStarted   EventType = "simulation.started"
	EventSimulationPaused    EventType = "simulation.paused"
	EventSimulationResumed   EventType = "simulation.resumed"
	EventSimulationCompleted EventType = "simulation.completed"
	EventSimulationError     EventType = "simulation.error"
	EventStepStarted         EventType = "step.started"
	EventStepCompleted       EventType = "step.completed"
	EventPerceivePhaseStarted EventType = "step.perceive.started"
	EventPerceivePhaseEnded   EventType = "step.perceive.ended"
	EventActPhaseStarted      EventType = "step.act.started"
	EventActPhaseEnded        EventType = "step.act.ended"
	EventCommitPhaseStarted   EventType = "step.commit.started"
	EventCommitPhaseEnded     EventType = "step.commit.ended"
	EventAgentThinking       EventType = "agent.thinking"
	EventAgentResponded      EventType = "agent.responded"
	EventMessageCreated      EventType = "message.created"
	EventMemoryCreated       EventType = "memory.created"
	EventAppInitialized      EventType = "app.initialized"
	EventAppActionRequested  EventType = "app.action.requested"
	EventAppActionExecuted   EventType = "app.action.executed"
	EventAppActionFailed     EventType = "app.action.failed"
	EventAppObservationSent  EventType = "app.observation.sent"
)

// Event is one entry in the engine's event stream. Payload is an arbitrary,
// event-type-specific value (e.g. a Message, an AppActionResult).
type Event struct {
	Type         EventType `json:"type"`
	SimulationID string    `json:"simulationId,omitempty"`
	Payload      any       `json:"payload,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
