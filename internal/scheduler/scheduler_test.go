package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arunmenon/AgentWorld-sub001/core"
	"github.com/arunmenon/AgentWorld-sub001/internal/eventbus"
)

func TestOrderRoundRobinRotatesByStep(t *testing.T) {
	agents := []string{"c", "a", "b"}
	o0 := Order(StrategyRoundRobin, agents, 0, OrderOptions{})
	o1 := Order(StrategyRoundRobin, agents, 1, OrderOptions{})
	assert.Equal(t, []string{"a", "b", "c"}, o0)
	assert.Equal(t, []string{"b", "c", "a"}, o1)
}

func TestOrderRandomIsDeterministicForSameSeedAndStep(t *testing.T) {
	agents := []string{"a", "b", "c", "d", "e"}
	first := Order(StrategyRandom, agents, 3, OrderOptions{Seed: 42})
	second := Order(StrategyRandom, agents, 3, OrderOptions{Seed: 42})
	assert.Equal(t, first, second)
}

func TestOrderRandomDiffersAcrossSteps(t *testing.T) {
	agents := []string{"a", "b", "c", "d", "e", "f", "g"}
	atStep1 := Order(StrategyRandom, agents, 1, OrderOptions{Seed: 7})
	atStep2 := Order(StrategyRandom, agents, 2, OrderOptions{Seed: 7})
	assert.NotEqual(t, atStep1, atStep2)
}

func TestOrderPriorityBreaksTiesByID(t *testing.T) {
	agents := []string{"b", "a", "c"}
	order := Order(StrategyPriority, agents, 0, OrderOptions{Priorities: map[string]float64{
		"a": 1, "b": 1, "c": 5,
	}})
	assert.Equal(t, []string{"c", "a", "b"}, order)
}

type fakeTopology struct {
	edges map[string][]string
}

func (f fakeTopology) Neighbors(id string) []string { return f.edges[id] }

func TestOrderTopologyBFSFromHub(t *testing.T) {
	topo := fakeTopology{edges: map[string][]string{
		"hub": {"a", "b"},
		"a":   {"hub", "c"},
		"b":   {"hub"},
		"c":   {"a"},
	}}
	order := Order(StrategyTopology, []string{"c", "b", "a", "hub"}, 0, OrderOptions{Topology: topo, HubID: "hub"})
	assert.Equal(t, []string{"hub", "a", "b", "c"}, order)
}

func TestOrderTopologyAppendsUnreached(t *testing.T) {
	topo := fakeTopology{edges: map[string][]string{"hub": {"a"}}}
	order := Order(StrategyTopology, []string{"hub", "a", "orphan"}, 0, OrderOptions{Topology: topo, HubID: "hub"})
	assert.Equal(t, []string{"hub", "a", "orphan"}, order)
}

func TestOrderSimultaneousIsSorted(t *testing.T) {
	order := Order(StrategySimultaneous, []string{"z", "y", "x"}, 0, OrderOptions{})
	assert.Equal(t, []string{"x", "y", "z"}, order)
}

func TestBatchPartitionsBySize(t *testing.T) {
	batches := Batch([]string{"a", "b", "c", "d", "e"}, 2)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, batches)
}

func TestBatchZeroSizeIsOneBatch(t *testing.T) {
	batches := Batch([]string{"a", "b", "c"}, 0)
	assert.Equal(t, [][]string{{"a", "b", "c"}}, batches)
}

func TestBatchEmptyInput(t *testing.T) {
	assert.Nil(t, Batch(nil, 3))
}

func TestSuspensionTrackerSuspendsAfterThreshold(t *testing.T) {
	tr := newSuspensionTracker(3)
	assert.False(t, tr.RecordFailure("a"))
	assert.False(t, tr.RecordFailure("a"))
	assert.True(t, tr.RecordFailure("a"))
	assert.True(t, tr.IsSuspended("a"))
	assert.Equal(t, []string{"a"}, tr.Suspended())
}

func TestSuspensionTrackerResetsOnSuccess(t *testing.T) {
	tr := newSuspensionTracker(3)
	tr.RecordFailure("a")
	tr.RecordFailure("a")
	tr.RecordSuccess("a")
	assert.False(t, tr.RecordFailure("a"))
	assert.False(t, tr.IsSuspended("a"))
}

// scriptedExecutor lets tests control per-agent, per-phase outcomes.
type scriptedExecutor struct {
	mu        sync.Mutex
	actErr    map[string]error
	actDelay  time.Duration
	callCount map[string]int
}

func newScriptedExecutor() *scriptedExecutor {
	return &scriptedExecutor{actErr: map[string]error{}, callCount: map[string]int{}}
}

func (e *scriptedExecutor) Perceive(ctx context.Context, agentID string, step int) error { return nil }

func (e *scriptedExecutor) Act(ctx context.Context, agentID string, step int) error {
	e.mu.Lock()
	e.callCount[agentID]++
	err := e.actErr[agentID]
	e.mu.Unlock()
	if e.actDelay > 0 {
		select {
		case <-time.After(e.actDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (e *scriptedExecutor) Commit(ctx context.Context, agentID string, step int) error { return nil }

func (e *scriptedExecutor) calls(agentID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.callCount[agentID]
}

func TestRunStepAllSucceed(t *testing.T) {
	exec := newScriptedExecutor()
	s := New(Config{MaxConcurrentAgents: 2, OrderingStrategy: StrategySimultaneous, ErrorStrategy: ErrorLogAndContinue}, nil)
	result := s.RunStep(context.Background(), "sim-1", 1, []string{"a", "b", "c"}, OrderOptions{}, exec)
	require.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, 3, result.Counters["succeeded"])
	assert.Len(t, result.Outcomes, 3)
}

func TestRunStepLogAndContinueKeepsGoing(t *testing.T) {
	exec := newScriptedExecutor()
	exec.actErr["b"] = errors.New("boom")
	s := New(Config{MaxConcurrentAgents: 3, OrderingStrategy: StrategySimultaneous, ErrorStrategy: ErrorLogAndContinue}, nil)
	result := s.RunStep(context.Background(), "sim-1", 1, []string{"a", "b", "c"}, OrderOptions{}, exec)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, 1, result.Counters["failed"])
	assert.Equal(t, 2, result.Counters["succeeded"])
	assert.Len(t, result.Errors, 1)
}

func TestRunStepFailFastStopsStep(t *testing.T) {
	exec := newScriptedExecutor()
	exec.actErr["a"] = errors.New("boom")
	s := New(Config{MaxConcurrentAgents: 1, OrderingStrategy: StrategySimultaneous, ErrorStrategy: ErrorFailFast}, nil)
	result := s.RunStep(context.Background(), "sim-1", 1, []string{"a", "b"}, OrderOptions{}, exec)
	assert.Equal(t, StatusFailed, result.Status)
}

func TestRunStepRetrySucceedsOnSecondAttempt(t *testing.T) {
	exec := newScriptedExecutor()
	var attempts atomic.Int32
	s := New(Config{MaxConcurrentAgents: 1, OrderingStrategy: StrategySimultaneous, ErrorStrategy: ErrorRetry, MaxRetries: 2, RetryBaseDelay: time.Millisecond}, nil)

	exec.mu.Lock()
	exec.actErr["a"] = errors.New("transient")
	exec.mu.Unlock()

	go func() {
		time.Sleep(5 * time.Millisecond)
		exec.mu.Lock()
		delete(exec.actErr, "a")
		exec.mu.Unlock()
	}()

	result := s.RunStep(context.Background(), "sim-1", 1, []string{"a"}, OrderOptions{}, exec)
	_ = attempts
	assert.True(t, exec.calls("a") >= 1)
	assert.NotEqual(t, StatusFailed, result.Status)
}

func TestRunStepSuspendAgentSkipsOnLaterSteps(t *testing.T) {
	exec := newScriptedExecutor()
	exec.actErr["a"] = errors.New("boom")
	s := New(Config{MaxConcurrentAgents: 1, OrderingStrategy: StrategySimultaneous, ErrorStrategy: ErrorSuspendAgent, MaxConsecutiveFailures: 2}, nil)

	s.RunStep(context.Background(), "sim-1", 1, []string{"a"}, OrderOptions{}, exec)
	assert.False(t, s.IsSuspended("a"))
	s.RunStep(context.Background(), "sim-1", 2, []string{"a"}, OrderOptions{}, exec)
	assert.True(t, s.IsSuspended("a"))

	result := s.RunStep(context.Background(), "sim-1", 3, []string{"a"}, OrderOptions{}, exec)
	assert.Equal(t, 1, result.Counters["skipped"])
}

func TestRunStepCancelledBeforeStartReturnsCancelled(t *testing.T) {
	exec := newScriptedExecutor()
	s := New(Config{MaxConcurrentAgents: 1, OrderingStrategy: StrategySimultaneous}, nil)
	s.Cancel()
	result := s.RunStep(context.Background(), "sim-1", 1, []string{"a"}, OrderOptions{}, exec)
	assert.Equal(t, StatusCancelled, result.Status)
}

func TestRunStepStepTimeout(t *testing.T) {
	exec := newScriptedExecutor()
	exec.actDelay = 50 * time.Millisecond
	s := New(Config{MaxConcurrentAgents: 1, OrderingStrategy: StrategySimultaneous, StepTimeout: 5 * time.Millisecond}, nil)
	result := s.RunStep(context.Background(), "sim-1", 1, []string{"a", "b"}, OrderOptions{}, exec)
	assert.Equal(t, StatusTimeout, result.Status)
}

func TestRunStepEmitsPhaseEvents(t *testing.T) {
	bus := eventbus.New()
	ch, unsub := bus.Subscribe("test", 64)
	defer unsub()

	exec := newScriptedExecutor()
	s := New(Config{MaxConcurrentAgents: 2, OrderingStrategy: StrategySimultaneous}, bus)
	s.RunStep(context.Background(), "sim-1", 1, []string{"a", "b"}, OrderOptions{}, exec)

	var types []core.EventType
	drain := true
	for drain {
		select {
		case evt := <-ch:
			types = append(types, evt.Type)
		default:
			drain = false
		}
	}
	assert.Contains(t, types, core.EventStepStarted)
	assert.Contains(t, types, core.EventPerceivePhaseStarted)
	assert.Contains(t, types, core.EventPerceivePhaseEnded)
	assert.Contains(t, types, core.EventActPhaseStarted)
	assert.Contains(t, types, core.EventActPhaseEnded)
	assert.Contains(t, types, core.EventCommitPhaseStarted)
	assert.Contains(t, types, core.EventCommitPhaseEnded)
	assert.Contains(t, types, core.EventStepCompleted)
}

func TestPauseBlocksUntilResume(t *testing.T) {
	exec := newScriptedExecutor()
	s := New(Config{MaxConcurrentAgents: 1, OrderingStrategy: StrategySimultaneous}, nil)
	s.Pause()

	done := make(chan StepResult, 1)
	go func() {
		done <- s.RunStep(context.Background(), "sim-1", 1, []string{"a"}, OrderOptions{}, exec)
	}()

	select {
	case <-done:
		t.Fatal("RunStep returned before Resume was called")
	case <-time.After(20 * time.Millisecond):
	}

	s.Resume()
	select {
	case result := <-done:
		assert.Equal(t, StatusCompleted, result.Status)
	case <-time.After(time.Second):
		t.Fatal("RunStep did not return after Resume")
	}
}

func TestShouldAutoCheckpoint(t *testing.T) {
	s := New(Config{AutoCheckpointEveryN: 5}, nil)
	assert.False(t, s.ShouldAutoCheckpoint(0))
	assert.False(t, s.ShouldAutoCheckpoint(4))
	assert.True(t, s.ShouldAutoCheckpoint(5))
	assert.True(t, s.ShouldAutoCheckpoint(10))

	disabled := New(Config{}, nil)
	assert.False(t, disabled.ShouldAutoCheckpoint(5))
}
