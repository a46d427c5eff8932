package scheduler

import "sync"

// ErrorStrategy governs how the scheduler responds to an agent's ACT
// failure (§4.H step 5).
type ErrorStrategy string

const (
	ErrorFailFast        ErrorStrategy = "fail_fast"
	ErrorLogAndContinue  ErrorStrategy = "log_and_continue"
	ErrorRetry           ErrorStrategy = "retry"
	ErrorSuspendAgent    ErrorStrategy = "suspend_agent"
)

// suspensionTracker counts each agent's consecutive ACT failures and marks
// it suspended once the ceiling is crossed; a success clears the counter.
type suspensionTracker struct {
	mu                     sync.Mutex
	maxConsecutiveFailures int
	failures               map[string]int
	suspended              map[string]bool
}

func newSuspensionTracker(maxConsecutiveFailures int) *suspensionTracker {
	return &suspensionTracker{
		maxConsecutiveFailures: maxConsecutiveFailures,
		failures:               map[string]int{},
		suspended:              map[string]bool{},
	}
}

func (t *suspensionTracker) IsSuspended(agentID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.suspended[agentID]
}

// RecordFailure increments the agent's consecutive-failure count and
// reports whether this failure just crossed the suspension threshold.
func (t *suspensionTracker) RecordFailure(agentID string) (justSuspended bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[agentID]++
	if t.failures[agentID] >= t.maxConsecutiveFailures && !t.suspended[agentID] {
		t.suspended[agentID] = true
		return true
	}
	return false
}

// RecordSuccess clears the agent's consecutive-failure count.
func (t *suspensionTracker) RecordSuccess(agentID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[agentID] = 0
}

// Suspended returns every currently suspended agent id.
func (t *suspensionTracker) Suspended() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.suspended))
	for id, s := range t.suspended {
		if s {
			out = append(out, id)
		}
	}
	return out
}
