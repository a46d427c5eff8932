package simulation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arunmenon/AgentWorld-sub001/core"
	"github.com/arunmenon/AgentWorld-sub001/internal/directive"
	"github.com/arunmenon/AgentWorld-sub001/internal/goal"
	"github.com/arunmenon/AgentWorld-sub001/internal/llmgateway"
)

// turnState is scratch space shared between Act and Commit for one agent
// within one step; it never outlives the step (§9: ids cross ownership
// boundaries, not pointers — turnState itself stays runner-private).
type turnState struct {
	inbound      []core.Message
	response     core.LLMResponse
	cleanedText  string
	actions      []directive.ParsedAction
	parseErrors  []directive.ParseError
	actionResult map[int]core.ActionResult
	outbound     []core.Message
}

// Perceive delivers the observations and messages staged during the
// previous step's Commit phase into the agent's memory and turn scratch
// space (§4.H PERCEIVE: "deliver observations and inbound messages to
// agents' memories"). Per the next-step-visibility guarantee (§5), this is
// the only place staged mail becomes visible.
func (r *Runner) Perceive(ctx context.Context, agentID string, step int) error {
	r.mu.Lock()
	msgs := r.pendingMessages[agentID]
	delete(r.pendingMessages, agentID)
	obs := r.pendingObservations[agentID]
	delete(r.pendingObservations, agentID)
	store := r.memories[agentID]
	r.mu.Unlock()

	if store == nil {
		return core.NewError(core.ErrValidation, fmt.Sprintf("simulation: no memory store for agent %q", agentID))
	}

	for _, o := range obs {
		store.InjectObservation(o)
		r.publish(core.EventMemoryCreated, map[string]any{"agentId": agentID, "step": step, "source": o.Source})
	}
	for _, m := range msgs {
		content := m.Content
		if m.IsBroadcast() {
			content = fmt.Sprintf("(broadcast from %s) %s", m.SenderID, content)
		}
		store.InjectObservation(core.Observation{Content: content, Source: "message:" + m.SenderID, Importance: 5})
	}

	r.turns.Store(agentID, &turnState{inbound: msgs, actionResult: map[int]core.ActionResult{}})
	return nil
}

// Act performs the agent's LLM call, parses any embedded directives, routes
// them to app instances, and stages outbound text as a to-be-committed
// message (§4.H ACT: "LLM call + directive parse + app execution + outbound
// messages"). Only a genuine act-level failure (the LLM call itself) returns
// an error; individual app action failures are captured in the audit log and
// never abort the step.
func (r *Runner) Act(ctx context.Context, agentID string, step int) error {
	ts := r.loadTurn(agentID)

	r.mu.Lock()
	agent := r.agents[agentID]
	store := r.memories[agentID]
	r.mu.Unlock()

	r.publish(core.EventAgentThinking, map[string]any{"agentId": agentID, "step": step})

	systemPrompt, userPrompt := r.buildPrompt(agentID, agent, ts.inbound)
	memCtx := store.ContextForPrompt(10, "Relevant memories:\n{memories}")
	if memCtx != "" {
		userPrompt = memCtx + "\n\n" + userPrompt
	}

	seed := llmgateway.DeriveSeed(r.masterSeed, step, agentID)
	req := core.LLMRequest{
		Prompt:       userPrompt,
		SystemPrompt: systemPrompt,
		UseCache:     true,
		Seed:         &seed,
		AgentID:      agentID,
		Step:         step,
	}
	resp, err := r.gateway.Complete(ctx, req)
	if err != nil {
		return core.Wrap(core.ErrNetwork, fmt.Sprintf("simulation: LLM call failed for agent %q", agentID), err)
	}
	agent.Usage.Add(resp.PromptTokens, resp.CompletionTokens, resp.Cost)

	parsed := directive.Parse(resp.Content)
	ts.response = resp
	ts.cleanedText = parsed.CleanedText
	ts.actions = parsed.Actions
	ts.parseErrors = parsed.Errors
	if len(parsed.Errors) > 0 {
		core.Logger().Warn().Str("agentId", agentID).Int("step", step).Int("count", len(parsed.Errors)).Msg("directive parse errors")
	}

	for i, action := range parsed.Actions {
		r.publish(core.EventAppActionRequested, map[string]any{"agentId": agentID, "appId": action.AppID, "action": action.ActionName, "step": step})
		instance, ok := r.apps[action.AppID]
		if !ok {
			ts.actionResult[i] = core.ActionResult{Success: false, Error: fmt.Sprintf("unknown app %q", action.AppID)}
			r.publish(core.EventAppActionFailed, map[string]any{"agentId": agentID, "appId": action.AppID, "action": action.ActionName, "step": step, "error": ts.actionResult[i].Error})
			continue
		}
		result, execErr := instance.Execute(agentID, action.ActionName, action.Params, step)
		if execErr != nil {
			result = core.ActionResult{Success: false, Error: execErr.Error()}
		}
		ts.actionResult[i] = result
		if result.Success {
			r.publish(core.EventAppActionExecuted, map[string]any{"agentId": agentID, "appId": action.AppID, "action": action.ActionName, "step": step, "data": result.Data})
		} else {
			r.publish(core.EventAppActionFailed, map[string]any{"agentId": agentID, "appId": action.AppID, "action": action.ActionName, "step": step, "error": result.Error})
		}
	}

	if strings.TrimSpace(ts.cleanedText) != "" {
		ts.outbound = append(ts.outbound, core.Message{
			ID:           uuid.NewString(),
			SimulationID: r.id,
			SenderID:     agentID,
			Content:      ts.cleanedText,
			Step:         step,
			Timestamp:    time.Now(),
		})
	}

	r.mu.Lock()
	r.outputLog = append(r.outputLog, goal.AgentOutput{AgentID: agentID, Content: resp.Content})
	r.mu.Unlock()

	r.publish(core.EventAgentResponded, map[string]any{"agentId": agentID, "step": step, "actions": len(parsed.Actions)})
	return nil
}

// Commit appends this step's outbound messages to the append-only message
// log, routes them through the topology into the recipients' next-step
// mailboxes, and drains every app instance's queued observations for this
// agent into the next-step delivery buffer (§4.H COMMIT: "enqueue
// observations for next step, persist audit entries, update counters"; §5
// ordering guarantee: messages and app observations produced at step t
// surface at step t+1 PERCEIVE).
func (r *Runner) Commit(ctx context.Context, agentID string, step int) error {
	ts := r.loadTurn(agentID)
	defer r.turns.Delete(agentID)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, msg := range ts.outbound {
		r.messages = append(r.messages, msg)
		recipients := r.topo.ValidRecipients(agentID)
		for _, rcpt := range recipients {
			delivered := msg
			delivered.ReceiverID = rcpt
			r.pendingMessages[rcpt] = append(r.pendingMessages[rcpt], delivered)
		}
	}

	for _, appID := range r.appOrder {
		obs := r.apps[appID].PopObservations(agentID)
		if len(obs) > 0 {
			r.pendingObservations[agentID] = append(r.pendingObservations[agentID], obs...)
			r.publish(core.EventAppObservationSent, map[string]any{"agentId": agentID, "appId": appID, "step": step, "count": len(obs)})
		}
	}

	return nil
}

func (r *Runner) loadTurn(agentID string) *turnState {
	v, ok := r.turns.Load(agentID)
	if !ok {
		ts := &turnState{actionResult: map[int]core.ActionResult{}}
		r.turns.Store(agentID, ts)
		return ts
	}
	return v.(*turnState)
}

// buildPrompt assembles the system and user prompt text for one agent's Act
// call from its persona, the app actions available to it, and the messages
// delivered this step's Perceive.
func (r *Runner) buildPrompt(agentID string, agent *core.Agent, inbound []core.Message) (system, user string) {
	var sys strings.Builder
	fmt.Fprintf(&sys, "You are %s.\n", agent.Name)
	if agent.Background != "" {
		fmt.Fprintf(&sys, "Background: %s\n", agent.Background)
	}
	sys.WriteString("You may take actions by emitting a line of the form:\n")
	sys.WriteString("APP_ACTION: <appId>.<actionName>(<key>=<value>, ...)\n")
	sys.WriteString("Available actions:\n")
	for _, appID := range r.appOrder {
		def, ok := r.registry.Get(appID)
		if !ok {
			continue
		}
		for _, action := range def.Actions {
			fmt.Fprintf(&sys, "- %s.%s: %s\n", appID, action.Name, action.Description)
		}
	}
	recipients := r.topo.ValidRecipients(agentID)
	if len(recipients) > 0 {
		fmt.Fprintf(&sys, "You may address messages to: %s\n", strings.Join(recipients, ", "))
	}

	var usr strings.Builder
	if len(inbound) == 0 {
		usr.WriteString("No new messages this step.")
	} else {
		usr.WriteString("Messages received this step:\n")
		for _, m := range inbound {
			fmt.Fprintf(&usr, "- from %s: %s\n", m.SenderID, m.Content)
		}
	}
	return sys.String(), usr.String()
}

