package appruntime

import (
	"github.com/google/uuid"

	"github.com/arunmenon/AgentWorld-sub001/core"
)

// RewardFunc scores one action's outcome for a single-agent RL-style
// episode (§4.F Episode wrapper). The default RewardFunc used by NewEpisode
// awards 1 on a successful action and 0 otherwise; callers needing shaped
// reward supply their own.
type RewardFunc func(result core.ActionResult, step int) float64

// DefaultReward is the success/failure reward used when no RewardFunc is
// supplied to NewEpisode.
func DefaultReward(result core.ActionResult, step int) float64 {
	if result.Success {
		return 1
	}
	return 0
}

// Episode wraps one Instance in a reset/step/close RL-style loop for a
// single agent, bounding it to MaxSteps (§4.F "truncated when MaxSteps is
// reached without termination").
type Episode struct {
	ID       string
	Instance *Instance
	AgentID  string
	MaxSteps int
	Reward   RewardFunc

	step       int
	terminated bool
	truncated  bool
}

// NewEpisode starts a new episode against inst for agentID. If reward is
// nil, DefaultReward is used.
func NewEpisode(inst *Instance, agentID string, maxSteps int, reward RewardFunc) *Episode {
	if reward == nil {
		reward = DefaultReward
	}
	return &Episode{
		ID:       uuid.NewString(),
		Instance: inst,
		AgentID:  agentID,
		MaxSteps: maxSteps,
		Reward:   reward,
	}
}

// Reset clears episode progress (not the underlying app state, which
// belongs to the simulation) and returns the agent's initial observation
// view, per §4.F "reset(options)".
func (e *Episode) Reset() map[string]any {
	e.step = 0
	e.terminated = false
	e.truncated = false
	e.Instance.EnsureAgent(e.AgentID)
	return e.Instance.GetAgentView(e.AgentID)
}

// StepResult is the RL-style tuple an episode Step returns.
type StepResult struct {
	Observation map[string]any
	Reward      float64
	Terminated  bool
	Truncated   bool
	Info        map[string]any
}

// Step executes one action in the episode and returns the standard RL
// (observation, reward, terminated, truncated, info) tuple (§4.F). Once
// terminated or truncated, further Step calls execute nothing and return
// the current view with zero reward, the same end flags and empty info.
func (e *Episode) Step(actionName string, params map[string]any) StepResult {
	if e.terminated || e.truncated {
		return StepResult{
			Observation: e.Instance.GetAgentView(e.AgentID),
			Reward:      0,
			Terminated:  e.terminated,
			Truncated:   e.truncated,
			Info:        map[string]any{},
		}
	}

	result, err := e.Instance.Execute(e.AgentID, actionName, params, e.step)
	e.step++

	info := map[string]any{}
	if err != nil {
		info["error"] = err.Error()
	}

	terminated := result.Success && actionIsTerminal(result)
	truncated := !terminated && e.MaxSteps > 0 && e.step >= e.MaxSteps
	e.terminated = terminated
	e.truncated = truncated

	return StepResult{
		Observation: e.Instance.GetAgentView(e.AgentID),
		Reward:      e.Reward(result, e.step),
		Terminated:  terminated,
		Truncated:   truncated,
		Info:        info,
	}
}

// actionIsTerminal reports whether a successful result signals episode
// termination via a conventional "done" flag in its return data. Actions
// that never set it simply run until MaxSteps truncates the episode.
func actionIsTerminal(result core.ActionResult) bool {
	done, ok := result.Data["done"].(bool)
	return ok && done
}

// Close releases episode bookkeeping. Instances are owned by the
// simulation, not the episode, so Close never tears down Instance state.
func (e *Episode) Close() {
	e.terminated = true
	e.truncated = true
}
