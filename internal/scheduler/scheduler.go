package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arunmenon/AgentWorld-sub001/core"
	"github.com/arunmenon/AgentWorld-sub001/internal/eventbus"
)

// Config is the scheduler's tunable behavior, sourced from
// EngineConfig.Scheduler (§5 Bounded parallelism, §4.H).
type Config struct {
	MaxConcurrentAgents    int
	AgentTimeout           time.Duration
	StepTimeout            time.Duration
	OrderingStrategy       Strategy
	ErrorStrategy          ErrorStrategy
	MaxConsecutiveFailures int
	MaxRetries             int
	RetryBaseDelay         time.Duration
	AutoCheckpointEveryN   int
}

// StepStatus is the terminal status of one scheduler step (§4.H step 6).
type StepStatus string

const (
	StatusCompleted StepStatus = "completed"
	StatusTimeout   StepStatus = "timeout"
	StatusFailed    StepStatus = "failed"
	StatusCancelled StepStatus = "cancelled"
)

// AgentOutcome is one agent's result within a step.
type AgentOutcome struct {
	AgentID  string
	Err      error
	Attempts int
	Skipped  bool // suspended, skipped without attempting
}

// StepResult summarizes one completed (or aborted) step.
type StepResult struct {
	Step     int
	Status   StepStatus
	Outcomes []AgentOutcome
	Duration time.Duration
	Counters map[string]int
	Errors   []string
}

// AgentExecutor runs one agent's turn one phase at a time. It is
// implemented by the simulation runner, which owns the agent, its apps,
// and its memory store; the scheduler only sequences the three canonical
// phases and applies timeouts/error handling around Act (§4.H phases).
type AgentExecutor interface {
	// Perceive delivers queued observations and inbound messages to the
	// agent's memory.
	Perceive(ctx context.Context, agentID string, step int) error
	// Act performs the LLM call, directive parse, and app execution, and
	// queues outbound messages.
	Act(ctx context.Context, agentID string, step int) error
	// Commit enqueues next-step observations, persists audit entries, and
	// updates counters.
	Commit(ctx context.Context, agentID string, step int) error
}

// Scheduler is the central per-step executor (§4.H).
type Scheduler struct {
	cfg Config
	bus *eventbus.Bus

	suspension *suspensionTracker

	mu        sync.Mutex
	paused    bool
	resumeCh  chan struct{}
	cancelled atomic.Bool
}

// ConfigFromEngine maps the TOML-facing scheduler config into the duration-
// typed Config this package works with.
func ConfigFromEngine(maxConcurrentAgents, agentTimeoutSeconds, stepTimeoutSeconds, maxConsecutiveFail, autoCheckpointEveryN int, ordering, errorStrategy string) Config {
	return Config{
		MaxConcurrentAgents:    maxConcurrentAgents,
		AgentTimeout:           time.Duration(agentTimeoutSeconds) * time.Second,
		StepTimeout:            time.Duration(stepTimeoutSeconds) * time.Second,
		OrderingStrategy:       Strategy(ordering),
		ErrorStrategy:          ErrorStrategy(errorStrategy),
		MaxConsecutiveFailures: maxConsecutiveFail,
		AutoCheckpointEveryN:   autoCheckpointEveryN,
	}
}

// New constructs a Scheduler. bus may be nil to disable event emission.
func New(cfg Config, bus *eventbus.Bus) *Scheduler {
	if cfg.MaxConcurrentAgents <= 0 {
		cfg.MaxConcurrentAgents = 8
	}
	if cfg.MaxConsecutiveFailures <= 0 {
		cfg.MaxConsecutiveFailures = 3
	}
	return &Scheduler{
		cfg:        cfg,
		bus:        bus,
		suspension: newSuspensionTracker(cfg.MaxConsecutiveFailures),
		resumeCh:   make(chan struct{}),
	}
}

// Pause requests that the scheduler block at the next batch/phase boundary
// until Resume is called.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

// Resume releases a pause requested via Pause.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		s.paused = false
		close(s.resumeCh)
		s.resumeCh = make(chan struct{})
	}
}

// Cancel sets the cooperative cancellation flag; every suspension point
// polls it (§5 Cancellation).
func (s *Scheduler) Cancel() {
	s.cancelled.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (s *Scheduler) Cancelled() bool {
	return s.cancelled.Load()
}

// IsSuspended reports whether an agent has crossed the consecutive-failure
// ceiling and is currently skipped.
func (s *Scheduler) IsSuspended(agentID string) bool {
	return s.suspension.IsSuspended(agentID)
}

// SuspendedAgents lists every currently suspended agent id.
func (s *Scheduler) SuspendedAgents() []string {
	return s.suspension.Suspended()
}

// awaitResumeIfPaused blocks the caller while paused, returning false if
// the context or the run is cancelled first.
func (s *Scheduler) awaitResumeIfPaused(ctx context.Context) bool {
	s.mu.Lock()
	paused := s.paused
	ch := s.resumeCh
	s.mu.Unlock()
	if !paused {
		return !s.cancelled.Load()
	}
	select {
	case <-ch:
		return !s.cancelled.Load()
	case <-ctx.Done():
		return false
	}
}

func (s *Scheduler) publish(simulationID string, evtType core.EventType, payload any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(core.Event{Type: evtType, SimulationID: simulationID, Payload: payload, Timestamp: time.Now()})
}

// RunStep orders agentIDs, batches them, and drives each non-suspended
// agent through PERCEIVE, ACT, and COMMIT, honoring timeouts, pause/cancel
// signals, and the configured error strategy (§4.H).
func (s *Scheduler) RunStep(ctx context.Context, simulationID string, step int, agentIDs []string, opts OrderOptions, exec AgentExecutor) StepResult {
	start := time.Now()
	result := StepResult{Step: step, Counters: map[string]int{}}

	if s.cancelled.Load() {
		result.Status = StatusCancelled
		result.Duration = time.Since(start)
		return result
	}

	stepCtx := ctx
	var cancel context.CancelFunc
	if s.cfg.StepTimeout > 0 {
		stepCtx, cancel = context.WithTimeout(ctx, s.cfg.StepTimeout)
		defer cancel()
	}

	ordered := Order(s.cfg.OrderingStrategy, agentIDs, step, opts)
	batches := Batch(ordered, s.cfg.MaxConcurrentAgents)

	s.publish(simulationID, core.EventStepStarted, step)
	outcomeByAgent := map[string]*AgentOutcome{}

	for _, batch := range batches {
		if !s.awaitResumeIfPaused(stepCtx) {
			result.Status = s.abortStatus(stepCtx)
			result.Duration = time.Since(start)
			return result
		}

		live := s.liveAgents(batch, outcomeByAgent, result.Counters)

		live = s.runPhase(stepCtx, simulationID, step, live, core.EventPerceivePhaseStarted, core.EventPerceivePhaseEnded, exec.Perceive, outcomeByAgent, false)
		if !s.awaitResumeIfPaused(stepCtx) {
			result.Status = s.abortStatus(stepCtx)
			result.Duration = time.Since(start)
			return result
		}

		live = s.runPhase(stepCtx, simulationID, step, live, core.EventActPhaseStarted, core.EventActPhaseEnded, exec.Act, outcomeByAgent, true)
		if !s.awaitResumeIfPaused(stepCtx) {
			result.Status = s.abortStatus(stepCtx)
			result.Duration = time.Since(start)
			return result
		}

		s.runPhase(stepCtx, simulationID, step, live, core.EventCommitPhaseStarted, core.EventCommitPhaseEnded, exec.Commit, outcomeByAgent, false)

		if s.cfg.ErrorStrategy == ErrorFailFast {
			for _, agentID := range batch {
				if o := outcomeByAgent[agentID]; o != nil && o.Err != nil {
					result.Status = StatusFailed
					result.Duration = time.Since(start)
					result.Outcomes, result.Errors = flattenOutcomes(outcomeByAgent, ordered)
					s.publish(simulationID, core.EventStepCompleted, result)
					return result
				}
			}
		}
	}

	result.Outcomes, result.Errors = flattenOutcomes(outcomeByAgent, ordered)
	for _, o := range result.Outcomes {
		switch {
		case o.Skipped:
			result.Counters["skipped"]++
		case o.Err != nil:
			result.Counters["failed"]++
		default:
			result.Counters["succeeded"]++
		}
	}

	if stepCtx.Err() != nil {
		result.Status = StatusTimeout
	} else {
		result.Status = StatusCompleted
	}
	result.Duration = time.Since(start)
	s.publish(simulationID, core.EventStepCompleted, result)
	return result
}

func (s *Scheduler) abortStatus(ctx context.Context) StepStatus {
	if ctx.Err() != nil && !s.cancelled.Load() {
		return StatusTimeout
	}
	return StatusCancelled
}

// liveAgents splits a batch into agents eligible to run this step, marking
// suspended ones Skipped in place.
func (s *Scheduler) liveAgents(batch []string, outcomeByAgent map[string]*AgentOutcome, counters map[string]int) []string {
	live := make([]string, 0, len(batch))
	for _, agentID := range batch {
		if s.suspension.IsSuspended(agentID) {
			outcomeByAgent[agentID] = &AgentOutcome{AgentID: agentID, Skipped: true}
			continue
		}
		live = append(live, agentID)
	}
	return live
}

// runPhase executes fn concurrently for every agent still live, emitting
// the phase's start/end events around the whole batch. When
// applyErrorStrategy is true (the ACT phase), failures go through retry /
// suspend_agent bookkeeping; agents that fail are dropped from the
// returned live set so later phases don't run for them (§4.H cancellation
// semantics: "messages from agents that did not complete ACT are
// discarded").
func (s *Scheduler) runPhase(ctx context.Context, simulationID string, step int, agentIDs []string, startEvt, endEvt core.EventType, fn func(context.Context, string, int) error, outcomeByAgent map[string]*AgentOutcome, applyErrorStrategy bool) []string {
	if len(agentIDs) == 0 {
		return agentIDs
	}
	s.publish(simulationID, startEvt, step)
	defer s.publish(simulationID, endEvt, step)

	survivors := make([]string, len(agentIDs))
	ok := make([]bool, len(agentIDs))
	g, gctx := errgroup.WithContext(ctx)

	for i, agentID := range agentIDs {
		i, agentID := i, agentID
		g.Go(func() error {
			var err error
			var attempts int
			if applyErrorStrategy {
				err, attempts = s.runWithStrategy(gctx, agentID, step, fn)
			} else {
				err = s.runOnce(gctx, agentID, step, fn)
				attempts = 1
			}
			if err != nil {
				outcomeByAgent[agentID] = &AgentOutcome{AgentID: agentID, Err: err, Attempts: attempts}
				return nil
			}
			survivors[i] = agentID
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	out := make([]string, 0, len(agentIDs))
	for i, agentID := range survivors {
		if ok[i] {
			out = append(out, agentID)
		}
	}
	return out
}

func (s *Scheduler) runOnce(ctx context.Context, agentID string, step int, fn func(context.Context, string, int) error) error {
	agentCtx := ctx
	var cancel context.CancelFunc
	if s.cfg.AgentTimeout > 0 {
		agentCtx, cancel = context.WithTimeout(ctx, s.cfg.AgentTimeout)
		defer cancel()
	}
	return fn(agentCtx, agentID, step)
}

// runWithStrategy wraps a single phase call with the configured
// ErrorStrategy (§4.H step 5): retry re-attempts with backoff up to a
// ceiling, suspend_agent tracks consecutive failures, fail_fast and
// log_and_continue both return after a single attempt and let the caller
// decide what to do with the error.
func (s *Scheduler) runWithStrategy(ctx context.Context, agentID string, step int, fn func(context.Context, string, int) error) (error, int) {
	maxAttempts := 1
	if s.cfg.ErrorStrategy == ErrorRetry && s.cfg.MaxRetries > 0 {
		maxAttempts = s.cfg.MaxRetries + 1
	}

	var lastErr error
	attempt := 1
	for ; attempt <= maxAttempts; attempt++ {
		if s.cancelled.Load() {
			return ctx.Err(), attempt
		}
		lastErr = s.runOnce(ctx, agentID, step, fn)
		if lastErr == nil {
			s.suspension.RecordSuccess(agentID)
			return nil, attempt
		}
		if s.cfg.ErrorStrategy != ErrorRetry || attempt == maxAttempts {
			break
		}
		s.sleepBackoff(attempt)
	}

	if s.cfg.ErrorStrategy == ErrorSuspendAgent {
		s.suspension.RecordFailure(agentID)
	}
	return lastErr, attempt
}

func (s *Scheduler) sleepBackoff(attempt int) {
	delay := s.cfg.RetryBaseDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	time.Sleep(delay * time.Duration(1<<uint(attempt-1)))
}

func flattenOutcomes(byAgent map[string]*AgentOutcome, ordered []string) ([]AgentOutcome, []string) {
	outcomes := make([]AgentOutcome, 0, len(ordered))
	var errs []string
	for _, agentID := range ordered {
		o, found := byAgent[agentID]
		if !found {
			o = &AgentOutcome{AgentID: agentID}
		}
		outcomes = append(outcomes, *o)
		if o.Err != nil {
			errs = append(errs, o.Err.Error())
		}
	}
	return outcomes, errs
}

// ShouldAutoCheckpoint reports whether step is a multiple of the
// configured auto-checkpoint interval (0 disables it).
func (s *Scheduler) ShouldAutoCheckpoint(step int) bool {
	return s.cfg.AutoCheckpointEveryN > 0 && step > 0 && step%s.cfg.AutoCheckpointEveryN == 0
}
