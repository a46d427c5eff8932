// Package simulation implements the Simulation Runner (§4.L): the top-level
// object that owns a running simulation's lifecycle and wires together the
// Step Scheduler, Topology Graph, Memory Subsystem, Simulated-App Runtime,
// Goal Evaluator, Checkpoint Engine, and LLM Gateway. Runner itself
// implements scheduler.AgentExecutor (see turn.go); the scheduler drives it,
// it never drives the scheduler.
package simulation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arunmenon/AgentWorld-sub001/core"
	"github.com/arunmenon/AgentWorld-sub001/internal/appruntime"
	"github.com/arunmenon/AgentWorld-sub001/internal/checkpoint"
	"github.com/arunmenon/AgentWorld-sub001/internal/eventbus"
	"github.com/arunmenon/AgentWorld-sub001/internal/goal"
	"github.com/arunmenon/AgentWorld-sub001/internal/llmgateway"
	"github.com/arunmenon/AgentWorld-sub001/internal/memory"
	"github.com/arunmenon/AgentWorld-sub001/internal/scheduler"
	"github.com/arunmenon/AgentWorld-sub001/internal/topology"
)

// Status is a point-in-time snapshot of the runner's lifecycle state.
type Status string

const (
	StatusCreated   Status = "created"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Config bundles everything Create needs to stand up one simulation.
type Config struct {
	Name     string
	Engine   *core.EngineConfig
	Scenario *core.ScenarioConfig
	Registry *appruntime.Registry
	LLM      core.LLMProvider
	Embed    core.EmbeddingProvider
	Durable  llmgateway.DurableStore
	MemoryDurable memory.DurableStore
	Bus      *eventbus.Bus
}

// UsageReport aggregates LLM consumption for a running simulation.
type UsageReport struct {
	TotalTokens int
	TotalCost   float64
	PerAgent    map[string]core.UsageCounters
	Calls       []llmgateway.CallRecord
}

// StatusReport is the external-facing view returned by Status.
type StatusReport struct {
	ID               string
	Name             string
	Step             int
	Status           Status
	AgentCount       int
	SuspendedAgents  []string
	GoalAchieved     bool
	StepAchievedAt   *int
}

// Runner owns one simulation's lifecycle and all component instances bound
// to it (§4.L). A Runner is safe for concurrent use; its methods serialize
// through mu except where a component (scheduler, gateway) already provides
// its own concurrency guarantees.
type Runner struct {
	id   string
	name string

	bus       *eventbus.Bus
	sched     *scheduler.Scheduler
	gateway   *llmgateway.Gateway
	topo      *topology.Graph
	registry  *appruntime.Registry
	checkpts  *checkpoint.Manager
	goalSpec  *core.GoalSpec
	hubID     string
	masterSeed int64

	mu        sync.Mutex
	status    Status
	step      int
	agents    map[string]*core.Agent
	agentOrder []string
	memories  map[string]*memory.Store
	apps      map[string]*appruntime.Instance
	appOrder  []string

	messages  []core.Message
	outputLog []goal.AgentOutput
	handoffs  []core.HandoffEvent

	pendingMessages     map[string][]core.Message
	pendingObservations map[string][]core.Observation

	memCfg     memory.Config
	embed      core.EmbeddingProvider
	memDurable memory.DurableStore
	topoCfg    core.TopologyConfig

	turns sync.Map // agentID -> *turnState, scratch space for one step
}

// Create builds a Runner from cfg: topology, app instances, per-agent memory
// stores, the LLM Gateway, and the Step Scheduler, all seeded from
// cfg.Scenario (§4.L "create(config)").
func Create(cfg Config) (*Runner, error) {
	if cfg.Scenario == nil {
		return nil, core.NewError(core.ErrValidation, "simulation: scenario config is required")
	}
	if cfg.Registry == nil {
		cfg.Registry = appruntime.NewRegistry()
	}
	engine := cfg.Engine
	if engine == nil {
		engine = core.DefaultEngineConfig()
	}
	if cfg.Bus == nil {
		cfg.Bus = eventbus.New()
	}

	agentIDs := make([]string, 0, len(cfg.Scenario.Agents))
	for _, a := range cfg.Scenario.Agents {
		agentIDs = append(agentIDs, a.ID)
	}

	var masterSeed int64
	if engine.Engine.MasterSeed != nil {
		masterSeed = *engine.Engine.MasterSeed
	}

	graph, err := topology.Build(cfg.Scenario.Topology, agentIDs, masterSeed)
	if err != nil {
		return nil, err
	}

	gwCfg := llmgateway.Config{
		DefaultModel: engine.LLM.Model,
		MasterSeed:   engine.Engine.MasterSeed,
		Retry: llmgateway.RetryPolicy{
			MaxRetries: engine.LLM.Retry.MaxAttempts - 1,
			BaseDelay:  time.Duration(engine.LLM.Retry.BaseDelayMs) * time.Millisecond,
			Multiplier: engine.LLM.Retry.BackoffMultiplier,
		},
		CacheSize: engine.LLM.CacheCapacity,
	}
	cache := llmgateway.NewCache(engine.LLM.CacheCapacity, 0, cfg.Durable)
	gateway := llmgateway.New(gwCfg, cfg.LLM, cache)

	schedCfg := scheduler.ConfigFromEngine(
		engine.Scheduler.MaxConcurrentAgents,
		engine.Scheduler.AgentTimeoutSeconds,
		engine.Scheduler.StepTimeoutSeconds,
		engine.Scheduler.MaxConsecutiveFail,
		engine.Scheduler.AutoCheckpointEveryN,
		engine.Scheduler.OrderingStrategy,
		engine.Scheduler.ErrorStrategy,
	)
	schedCfg.MaxRetries = engine.LLM.Retry.MaxAttempts
	schedCfg.RetryBaseDelay = time.Duration(engine.LLM.Retry.BaseDelayMs) * time.Millisecond

	r := &Runner{
		id:                  uuid.NewString(),
		name:                cfg.Scenario.Name,
		bus:                 cfg.Bus,
		sched:               scheduler.New(schedCfg, cfg.Bus),
		gateway:             gateway,
		topo:                graph,
		registry:            cfg.Registry,
		checkpts:            checkpoint.NewManager(),
		goalSpec:            cfg.Scenario.Goal,
		hubID:               cfg.Scenario.Topology.Hub,
		masterSeed:          masterSeed,
		memCfg:              memory.FromEngineConfig(engine),
		embed:               cfg.Embed,
		memDurable:          cfg.MemoryDurable,
		topoCfg:             cfg.Scenario.Topology,
		status:              StatusCreated,
		agents:              map[string]*core.Agent{},
		memories:            map[string]*memory.Store{},
		apps:                map[string]*appruntime.Instance{},
		pendingMessages:     map[string][]core.Message{},
		pendingObservations: map[string][]core.Observation{},
	}

	memCfg := r.memCfg
	displayNames := map[string]string{}
	for _, a := range cfg.Scenario.Agents {
		displayNames[a.ID] = a.Name
	}

	for _, sa := range cfg.Scenario.Agents {
		agent := &core.Agent{ID: sa.ID, Name: sa.Name, Personality: sa.Personality, Background: sa.Background}
		r.agents[sa.ID] = agent
		r.agentOrder = append(r.agentOrder, sa.ID)
		store := memory.New(memCfg, gateway, cfg.Embed)
		if cfg.MemoryDurable != nil {
			if err := store.SetDurableStore(context.Background(), sa.ID, cfg.MemoryDurable); err != nil {
				core.Logger().Warn().Str("agent", sa.ID).Err(err).Msg("simulation: loading durable memory failed")
			}
		}
		r.memories[sa.ID] = store
	}
	sort.Strings(r.agentOrder)

	for _, binding := range cfg.Scenario.Apps {
		if binding.DefinitionFile != "" {
			if err := cfg.Registry.LoadJSONDefinition(binding.DefinitionFile); err != nil {
				return nil, err
			}
		}
		def, ok := cfg.Registry.Get(binding.AppID)
		if !ok {
			return nil, core.NewError(core.ErrValidation, fmt.Sprintf("simulation: unknown app %q", binding.AppID))
		}
		instance := appruntime.New(def)
		instance.Initialize(agentIDs, displayNames, binding.ConfigOverlay)
		r.apps[binding.AppID] = instance
		r.appOrder = append(r.appOrder, binding.AppID)
		r.publish(core.EventAppInitialized, binding.AppID)
	}
	sort.Strings(r.appOrder)

	r.publish(core.EventSimulationCreated, r.id)
	return r, nil
}

// AddAgent admits a new agent mid-simulation: it joins the topology, gets an
// empty memory store, and is materialized into every existing app instance.
func (r *Runner) AddAgent(agent core.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[agent.ID]; exists {
		return core.NewError(core.ErrValidation, fmt.Sprintf("simulation: agent %q already exists", agent.ID))
	}
	a := agent
	r.agents[a.ID] = &a
	r.agentOrder = append(r.agentOrder, a.ID)
	sort.Strings(r.agentOrder)
	store := memory.New(r.memCfg, r.gateway, r.embed)
	if r.memDurable != nil {
		if err := store.SetDurableStore(context.Background(), a.ID, r.memDurable); err != nil {
			core.Logger().Warn().Str("agent", a.ID).Err(err).Msg("simulation: loading durable memory failed")
		}
	}
	r.memories[a.ID] = store
	r.topo.AddNode(a.ID)
	for _, appID := range r.appOrder {
		r.apps[appID].EnsureAgent(a.ID)
	}
	return nil
}

// ID returns the simulation's generated identifier.
func (r *Runner) ID() string { return r.id }

// Topology exposes the underlying graph for read-mostly queries (routing
// decisions, centrality, visualizations).
func (r *Runner) Topology() *topology.Graph { return r.topo }

// Gateway exposes the LLM Gateway for usage inspection.
func (r *Runner) Gateway() *llmgateway.Gateway { return r.gateway }

func (r *Runner) publish(evtType core.EventType, payload any) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(core.Event{Type: evtType, SimulationID: r.id, Payload: payload, Timestamp: time.Now()})
}

// Step advances the simulation by exactly one scheduler step (§4.L
// "step()").
func (r *Runner) Step(ctx context.Context) (scheduler.StepResult, error) {
	r.mu.Lock()
	if r.status == StatusCompleted || r.status == StatusCancelled || r.status == StatusFailed {
		status := r.status
		r.mu.Unlock()
		return scheduler.StepResult{}, core.NewError(core.ErrValidation, fmt.Sprintf("simulation: cannot step from status %q", status))
	}
	if r.status == StatusCreated {
		r.status = StatusRunning
		r.publish(core.EventSimulationStarted, r.id)
	}
	nextStep := r.step + 1
	agentIDs := append([]string(nil), r.agentOrder...)
	r.mu.Unlock()

	opts := scheduler.OrderOptions{
		Seed:     r.masterSeed,
		Topology: r.topo,
		HubID:    r.hubID,
	}
	if scores, ok := r.topo.Centrality(topology.CentralityDegree); ok {
		opts.Centrality = scores
	}

	result := r.sched.RunStep(ctx, r.id, nextStep, agentIDs, opts, r)

	r.mu.Lock()
	r.step = nextStep
	r.mu.Unlock()

	if r.sched.Cancelled() && result.Status == scheduler.StatusCancelled {
		r.mu.Lock()
		r.status = StatusCancelled
		r.mu.Unlock()
		r.publish(core.EventSimulationError, "cancelled")
		return result, nil
	}

	if r.sched.ShouldAutoCheckpoint(nextStep) {
		if _, err := r.Snapshot("auto"); err != nil {
			core.Logger().Warn().Str("simulationId", r.id).Err(err).Msg("auto-checkpoint failed")
		}
	}

	if r.goalSpec != nil {
		gr := r.EvaluateGoal()
		if gr.Achieved {
			r.mu.Lock()
			r.status = StatusCompleted
			r.mu.Unlock()
			r.publish(core.EventSimulationCompleted, gr)
		}
	}

	return result, nil
}

// Run executes up to n steps, stopping early on cancellation, a terminal
// scheduler status, or goal achievement (§4.L "run(n) (up to n steps or
// termination)").
func (r *Runner) Run(ctx context.Context, n int) ([]scheduler.StepResult, error) {
	results := make([]scheduler.StepResult, 0, n)
	for i := 0; i < n; i++ {
		result, err := r.Step(ctx)
		if err != nil {
			return results, err
		}
		results = append(results, result)
		if result.Status == scheduler.StatusCancelled || result.Status == scheduler.StatusFailed {
			break
		}
		if r.CurrentStatus() == StatusCompleted {
			break
		}
	}
	return results, nil
}

// Pause cooperatively suspends the scheduler at its next boundary and, per
// §4.H's auto-checkpoint policy, takes a checkpoint immediately.
func (r *Runner) Pause() {
	r.sched.Pause()
	r.mu.Lock()
	r.status = StatusPaused
	r.mu.Unlock()
	r.publish(core.EventSimulationPaused, r.id)
	if _, err := r.Snapshot("pause"); err != nil {
		core.Logger().Warn().Str("simulationId", r.id).Err(err).Msg("pause checkpoint failed")
	}
}

// Resume releases a pause requested via Pause.
func (r *Runner) Resume() {
	r.sched.Resume()
	r.mu.Lock()
	if r.status == StatusPaused {
		r.status = StatusRunning
	}
	r.mu.Unlock()
	r.publish(core.EventSimulationResumed, r.id)
}

// Cancel requests cooperative cancellation; in-flight work finishes honoring
// the cancellation check at its next suspension point.
func (r *Runner) Cancel() {
	r.sched.Cancel()
}

// Inject enqueues a system-originated observation directly into the targeted
// agents' memory stores, bypassing topology routing entirely (§4.L
// "inject(event, targets?)"; §9 open question resolved: injection must reach
// every targeted agent's memory store directly rather than merely being
// advertised as topology-bypassing).
func (r *Runner) Inject(event string, targets []string) {
	r.mu.Lock()
	if len(targets) == 0 {
		targets = append([]string(nil), r.agentOrder...)
	}
	step := r.step
	r.mu.Unlock()

	for _, agentID := range targets {
		r.mu.Lock()
		store, ok := r.memories[agentID]
		r.mu.Unlock()
		if !ok {
			continue
		}
		obs := core.Observation{Content: event, Source: "system.inject", Importance: 5}
		store.InjectObservation(obs)
		r.publish(core.EventMemoryCreated, map[string]any{"agentId": agentID, "step": step, "source": "system.inject"})
	}
}

// CurrentStatus returns the runner's current lifecycle status.
func (r *Runner) CurrentStatus() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Status reports a point-in-time view of the simulation for external
// callers (§4.L "status").
func (r *Runner) Status() StatusReport {
	r.mu.Lock()
	report := StatusReport{
		ID:         r.id,
		Name:       r.name,
		Step:       r.step,
		Status:     r.status,
		AgentCount: len(r.agents),
	}
	r.mu.Unlock()

	report.SuspendedAgents = r.sched.SuspendedAgents()
	if r.goalSpec != nil {
		gr := r.EvaluateGoal()
		report.GoalAchieved = gr.Achieved
		report.StepAchievedAt = gr.StepAchieved
	}
	return report
}

// EvaluateGoal runs the Goal Evaluator against the simulation's current
// state (§4.I). Returns a trivially-achieved result if no goal spec was
// configured.
func (r *Runner) EvaluateGoal() goal.Result {
	if r.goalSpec == nil {
		return goal.Result{Achieved: true}
	}
	r.mu.Lock()
	in := goal.Input{
		AppStates:  r.appStatesSnapshot(),
		AuditLog:   r.auditLogSnapshot(),
		OutputLog:  append([]goal.AgentOutput(nil), r.outputLog...),
		HandoffLog: append([]core.HandoffEvent(nil), r.handoffs...),
		CurrentStep: r.step,
	}
	r.mu.Unlock()
	return goal.Evaluate(*r.goalSpec, in)
}

// appStatesSnapshot flattens every app instance's per-agent state into the
// {appId: {agentId: {...fields}}} shape the Goal Evaluator's dotted field
// paths traverse. Shared (non-per-agent) app state is not included. Must be
// called with r.mu held.
func (r *Runner) appStatesSnapshot() map[string]map[string]any {
	out := make(map[string]map[string]any, len(r.apps))
	for appID, instance := range r.apps {
		merged := map[string]any{}
		for _, agentID := range r.agentOrder {
			merged[agentID] = instance.GetAgentState(agentID)
		}
		out[appID] = merged
	}
	return out
}

// auditLogSnapshot concatenates every app instance's audit log, ordered by
// app id for determinism. Must be called with r.mu held.
func (r *Runner) auditLogSnapshot() []core.AuditEntry {
	var out []core.AuditEntry
	for _, appID := range r.appOrder {
		out = append(out, r.apps[appID].AuditLog()...)
	}
	return out
}

// UsageReport summarizes LLM token and cost consumption, globally and per
// agent.
func (r *Runner) UsageReport() UsageReport {
	r.mu.Lock()
	perAgent := make(map[string]core.UsageCounters, len(r.agents))
	for id, a := range r.agents {
		perAgent[id] = a.Usage
	}
	r.mu.Unlock()

	return UsageReport{
		TotalTokens: r.gateway.TotalTokens(),
		TotalCost:   r.gateway.TotalCost(),
		PerAgent:    perAgent,
		Calls:       r.gateway.CallHistory(),
	}
}
