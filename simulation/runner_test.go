package simulation

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arunmenon/AgentWorld-sub001/core"
	"github.com/arunmenon/AgentWorld-sub001/internal/appruntime"
	_ "github.com/arunmenon/AgentWorld-sub001/internal/apps/payment"
)

// scriptedLLM returns a canned response keyed by (agentID, step); missing
// entries produce an empty completion so an agent simply says nothing.
type scriptedLLM struct {
	byAgentStep map[string]map[int]string
}

func (s *scriptedLLM) Complete(ctx context.Context, req core.LLMRequest) (core.LLMResponse, error) {
	content := ""
	if byStep, ok := s.byAgentStep[req.AgentID]; ok {
		content = byStep[req.Step]
	}
	return core.LLMResponse{Content: content, PromptTokens: 5, CompletionTokens: 5}, nil
}

func twoAgentScenario() *core.ScenarioConfig {
	return &core.ScenarioConfig{
		Name: "two-agent-mesh",
		Agents: []core.ScenarioAgent{
			{ID: "alice", Name: "Alice"},
			{ID: "bob", Name: "Bob"},
		},
		Topology: core.TopologyConfig{Type: "mesh"},
		Apps:     []core.ScenarioAppBinding{{AppID: "paypal"}},
	}
}

func newTestRunner(t *testing.T, llm core.LLMProvider, scenario *core.ScenarioConfig) *Runner {
	t.Helper()
	r, err := Create(Config{
		Scenario: scenario,
		Registry: appruntime.NewRegistry(),
		LLM:      llm,
	})
	require.NoError(t, err)
	return r
}

func TestCreateWiresAgentsTopologyAndApps(t *testing.T) {
	r := newTestRunner(t, &scriptedLLM{}, twoAgentScenario())

	status := r.Status()
	assert.Equal(t, 2, status.AgentCount)
	assert.Equal(t, StatusCreated, status.Status)
	assert.ElementsMatch(t, []string{"alice", "bob"}, r.topo.Nodes())
	assert.True(t, r.topo.HasEdge("alice", "bob"))
}

func TestStepExecutesMeshTransfer(t *testing.T) {
	llm := &scriptedLLM{byAgentStep: map[string]map[int]string{
		"alice": {1: "APP_ACTION: paypal.transfer(to=bob, amount=100, note=lunch)"},
	}}
	r := newTestRunner(t, llm, twoAgentScenario())

	result, err := r.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "completed", string(result.Status))

	bobState := r.apps["paypal"].GetAgentState("bob")
	aliceState := r.apps["paypal"].GetAgentState("alice")
	assert.InDelta(t, 1100.0, toFloat(bobState["balance"]), 0.001)
	assert.InDelta(t, 900.0, toFloat(aliceState["balance"]), 0.001)

	// The observation is queued for bob immediately after ACT/COMMIT, staged
	// for delivery at the next step's PERCEIVE rather than injected now.
	r.mu.Lock()
	staged := r.pendingObservations["bob"]
	r.mu.Unlock()
	require.Len(t, staged, 1)
	assert.Contains(t, staged[0].Content, "received")
}

func TestTransferInsufficientFundsFails(t *testing.T) {
	llm := &scriptedLLM{byAgentStep: map[string]map[int]string{
		"alice": {1: "APP_ACTION: paypal.transfer(to=bob, amount=5000, note=toomuch)"},
	}}
	r := newTestRunner(t, llm, twoAgentScenario())

	_, err := r.Step(context.Background())
	require.NoError(t, err)

	audit := r.apps["paypal"].AuditLog()
	require.Len(t, audit, 1)
	assert.False(t, audit[0].Success)
	assert.Contains(t, audit[0].Error, "insufficient")

	aliceState := r.apps["paypal"].GetAgentState("alice")
	assert.InDelta(t, 1000.0, toFloat(aliceState["balance"]), 0.001)
}

func TestRequestThenPayFlowAcrossSteps(t *testing.T) {
	llm := &scriptedLLM{byAgentStep: map[string]map[int]string{
		"bob": {1: "APP_ACTION: paypal.request_money(from=alice, amount=50)"},
	}}
	r := newTestRunner(t, llm, twoAgentScenario())

	_, err := r.Step(context.Background())
	require.NoError(t, err)

	audit := r.apps["paypal"].AuditLog()
	require.Len(t, audit, 1)
	require.True(t, audit[0].Success)

	// bob's request observation is staged for alice, not yet visible.
	r.mu.Lock()
	staged := r.pendingObservations["alice"]
	r.mu.Unlock()
	require.Len(t, staged, 1)
	require.NotEmpty(t, staged[0].Data)
	requestID, ok := staged[0].Data["request_id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, requestID)

	llm.byAgentStep["alice"] = map[int]string{2: "APP_ACTION: paypal.pay_request(request_id=" + requestID + ")"}

	_, err = r.Step(context.Background())
	require.NoError(t, err)

	audit = r.apps["paypal"].AuditLog()
	require.Len(t, audit, 2)
	assert.True(t, audit[1].Success)

	bobState := r.apps["paypal"].GetAgentState("bob")
	aliceState := r.apps["paypal"].GetAgentState("alice")
	assert.InDelta(t, 1050.0, toFloat(bobState["balance"]), 0.001)
	assert.InDelta(t, 950.0, toFloat(aliceState["balance"]), 0.001)

	// Paying the same request again must fail with "already".
	llm.byAgentStep["alice"] = map[int]string{3: "APP_ACTION: paypal.pay_request(request_id=" + requestID + ")"}
	_, err = r.Step(context.Background())
	require.NoError(t, err)
	audit = r.apps["paypal"].AuditLog()
	require.Len(t, audit, 3)
	assert.False(t, audit[2].Success)
	assert.Contains(t, audit[2].Error, "already")
}

func TestNextStepVisibilityOrdering(t *testing.T) {
	llm := &scriptedLLM{byAgentStep: map[string]map[int]string{
		"alice": {1: "Hello bob, how are you?"},
	}}
	r := newTestRunner(t, llm, twoAgentScenario())

	_, err := r.Step(context.Background())
	require.NoError(t, err)

	r.mu.Lock()
	messageLogged := len(r.messages)
	stagedForBob := len(r.pendingMessages["bob"])
	r.mu.Unlock()
	assert.Equal(t, 1, messageLogged)
	assert.Equal(t, 1, stagedForBob)

	// Bob's memory must not yet contain alice's message: it only becomes
	// visible at step 2's PERCEIVE.
	bobMemBefore := r.memories["bob"].Observations()
	assert.Empty(t, bobMemBefore)

	_, err = r.Step(context.Background())
	require.NoError(t, err)

	bobMemAfter := r.memories["bob"].Observations()
	require.NotEmpty(t, bobMemAfter)
	found := false
	for _, o := range bobMemAfter {
		if strings.Contains(o.Content, "how are you") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestInjectBypassesTopology(t *testing.T) {
	r := newTestRunner(t, &scriptedLLM{}, twoAgentScenario())
	r.Inject("a meteor is approaching", []string{"bob"})

	obs := r.memories["bob"].Observations()
	require.Len(t, obs, 1)
	assert.Equal(t, "a meteor is approaching", obs[0].Content)

	aliceObs := r.memories["alice"].Observations()
	assert.Empty(t, aliceObs)
}

func TestPauseCheckpointsAndResumeContinues(t *testing.T) {
	r := newTestRunner(t, &scriptedLLM{}, twoAgentScenario())
	r.Pause()
	assert.Equal(t, StatusPaused, r.CurrentStatus())
	assert.NotEmpty(t, r.checkpts.List(r.id))

	r.Resume()
	assert.Equal(t, StatusRunning, r.CurrentStatus())
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	llm := &scriptedLLM{byAgentStep: map[string]map[int]string{
		"alice": {1: "APP_ACTION: paypal.transfer(to=bob, amount=100, note=lunch)"},
	}}
	r := newTestRunner(t, llm, twoAgentScenario())

	_, err := r.Step(context.Background())
	require.NoError(t, err)

	data, err := r.Snapshot("manual")
	require.NoError(t, err)
	require.NotEmpty(t, data)

	fresh := newTestRunner(t, &scriptedLLM{}, twoAgentScenario())
	require.NoError(t, fresh.Restore(data))

	assert.Equal(t, r.step, fresh.step)
	assert.Len(t, fresh.messages, len(r.messages))

	bobState := fresh.apps["paypal"].GetAgentState("bob")
	assert.InDelta(t, 1100.0, toFloat(bobState["balance"]), 0.001)
}

func TestEvaluateGoalWithNoSpecIsTriviallyAchieved(t *testing.T) {
	r := newTestRunner(t, &scriptedLLM{}, twoAgentScenario())
	result := r.EvaluateGoal()
	assert.True(t, result.Achieved)
}

func TestEvaluateGoalOnBalanceThreshold(t *testing.T) {
	scenario := twoAgentScenario()
	scenario.Goal = &core.GoalSpec{
		SuccessMode: core.SuccessAll,
		Conditions: []core.GoalCondition{
			{
				GoalType:      core.GoalStateGreater,
				AppID:         "paypal",
				FieldPath:     "bob.balance",
				ExpectedValue: 1050.0,
			},
		},
	}
	llm := &scriptedLLM{byAgentStep: map[string]map[int]string{
		"alice": {1: "APP_ACTION: paypal.transfer(to=bob, amount=100, note=lunch)"},
	}}
	r := newTestRunner(t, llm, scenario)

	_, err := r.Step(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, r.CurrentStatus())
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}

