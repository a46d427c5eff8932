package goal

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arunmenon/AgentWorld-sub001/core"
)

func TestEmptySpecAchieves(t *testing.T) {
	res := Evaluate(core.GoalSpec{}, Input{})
	require.True(t, res.Achieved)
}

func TestStateEqualsMet(t *testing.T) {
	spec := core.GoalSpec{Conditions: []core.GoalCondition{
		{GoalType: core.GoalStateEquals, AppID: "paypal", FieldPath: "balance", ExpectedValue: 450},
	}}
	in := Input{AppStates: map[string]map[string]any{"paypal": {"balance": 450}}}
	res := Evaluate(spec, in)
	require.True(t, res.Achieved)
	require.Equal(t, 1, res.MetCount)
}

func TestStateEqualsNotMet(t *testing.T) {
	spec := core.GoalSpec{Conditions: []core.GoalCondition{
		{GoalType: core.GoalStateEquals, AppID: "paypal", FieldPath: "balance", ExpectedValue: 450},
	}}
	in := Input{AppStates: map[string]map[string]any{"paypal": {"balance": 500}}}
	res := Evaluate(spec, in)
	require.False(t, res.Achieved)
	require.Equal(t, 0, res.MetCount)
}

func TestStateEqualsAmbiguousShapeNotMet(t *testing.T) {
	spec := core.GoalSpec{Conditions: []core.GoalCondition{
		{GoalType: core.GoalStateEquals, AppID: "paypal", FieldPath: "booking", ExpectedValue: "confirmed"},
	}}
	in := Input{AppStates: map[string]map[string]any{
		"paypal": {"booking": map[string]any{"status": "confirmed"}},
	}}
	res := Evaluate(spec, in)
	require.False(t, res.Achieved)
	require.Equal(t, 0, res.MetCount)
	require.False(t, res.ConditionResults[0].Met)
}

func TestStateContainsString(t *testing.T) {
	spec := core.GoalSpec{Conditions: []core.GoalCondition{
		{GoalType: core.GoalStateContains, AppID: "paypal", FieldPath: "status", ExpectedValue: "disputed"},
	}}
	in := Input{AppStates: map[string]map[string]any{"paypal": {"status": "Transaction disputed successfully"}}}
	res := Evaluate(spec, in)
	require.True(t, res.Achieved)
}

func TestStateGreater(t *testing.T) {
	spec := core.GoalSpec{Conditions: []core.GoalCondition{
		{GoalType: core.GoalStateGreater, AppID: "paypal", FieldPath: "balance", ExpectedValue: 100},
	}}
	in := Input{AppStates: map[string]map[string]any{"paypal": {"balance": 150}}}
	res := Evaluate(spec, in)
	require.True(t, res.Achieved)
}

func TestStateExists(t *testing.T) {
	spec := core.GoalSpec{Conditions: []core.GoalCondition{
		{GoalType: core.GoalStateExists, AppID: "paypal", FieldPath: "dispute_id"},
	}}
	res := Evaluate(spec, Input{AppStates: map[string]map[string]any{"paypal": {"dispute_id": "DSP123"}}})
	require.True(t, res.Achieved)

	res2 := Evaluate(spec, Input{AppStates: map[string]map[string]any{"paypal": {}}})
	require.False(t, res2.Achieved)
}

func TestActionExecuted(t *testing.T) {
	spec := core.GoalSpec{Conditions: []core.GoalCondition{
		{GoalType: core.GoalActionExecuted, AppID: "paypal", ExpectedValue: "dispute_transaction"},
	}}
	in := Input{AuditLog: []core.AuditEntry{
		{AppID: "paypal", ActionName: "dispute_transaction", Success: true},
	}}
	res := Evaluate(spec, in)
	require.True(t, res.Achieved)
}

func TestActionSucceededRequiresSuccessFlag(t *testing.T) {
	spec := core.GoalSpec{Conditions: []core.GoalCondition{
		{GoalType: core.GoalActionSucceeded, AppID: "paypal", ExpectedValue: "dispute_transaction"},
	}}

	failed := Input{AuditLog: []core.AuditEntry{
		{AppID: "paypal", ActionName: "dispute_transaction", Success: false},
	}}
	require.False(t, Evaluate(spec, failed).Achieved)

	succeeded := Input{AuditLog: []core.AuditEntry{
		{AppID: "paypal", ActionName: "dispute_transaction", Success: true},
	}}
	require.True(t, Evaluate(spec, succeeded).Achieved)
}

func TestOutputContainsIsCaseInsensitive(t *testing.T) {
	spec := core.GoalSpec{Conditions: []core.GoalCondition{
		{GoalType: core.GoalOutputContains, RequiredPhrase: "your refund"},
	}}
	in := Input{OutputLog: []AgentOutput{
		{AgentID: "agent1", Content: "Your refund has been initiated."},
	}}
	res := Evaluate(spec, in)
	require.True(t, res.Achieved)
}

func TestSuccessModeAll(t *testing.T) {
	spec := core.GoalSpec{
		SuccessMode: core.SuccessAll,
		Conditions: []core.GoalCondition{
			{GoalType: core.GoalStateEquals, AppID: "app1", FieldPath: "a", ExpectedValue: 1},
			{GoalType: core.GoalStateEquals, AppID: "app1", FieldPath: "b", ExpectedValue: 2},
		},
	}
	res1 := Evaluate(spec, Input{AppStates: map[string]map[string]any{"app1": {"a": 1, "b": 0}}})
	require.False(t, res1.Achieved)
	require.Equal(t, 1, res1.MetCount)

	res2 := Evaluate(spec, Input{AppStates: map[string]map[string]any{"app1": {"a": 1, "b": 2}}})
	require.True(t, res2.Achieved)
	require.Equal(t, 2, res2.MetCount)
}

func TestSuccessModeAny(t *testing.T) {
	spec := core.GoalSpec{
		SuccessMode: core.SuccessAny,
		Conditions: []core.GoalCondition{
			{GoalType: core.GoalStateEquals, AppID: "app1", FieldPath: "a", ExpectedValue: 1},
			{GoalType: core.GoalStateEquals, AppID: "app1", FieldPath: "b", ExpectedValue: 2},
		},
	}
	res1 := Evaluate(spec, Input{AppStates: map[string]map[string]any{"app1": {"a": 1, "b": 0}}})
	require.True(t, res1.Achieved)

	res2 := Evaluate(spec, Input{AppStates: map[string]map[string]any{"app1": {"a": 0, "b": 0}}})
	require.False(t, res2.Achieved)
}

func TestNestedFieldPath(t *testing.T) {
	spec := core.GoalSpec{Conditions: []core.GoalCondition{
		{GoalType: core.GoalStateEquals, AppID: "booking", FieldPath: "bookings.ABC123.seat", ExpectedValue: "12A"},
	}}
	in := Input{AppStates: map[string]map[string]any{
		"booking": {
			"bookings": map[string]any{
				"ABC123": map[string]any{"seat": "12A", "status": "confirmed"},
			},
		},
	}}
	res := Evaluate(spec, in)
	require.True(t, res.Achieved)
}

func TestHandoffCompletedCondition(t *testing.T) {
	spec := core.GoalSpec{Conditions: []core.GoalCondition{
		{GoalType: core.GoalHandoffCompleted, HandoffID: "h1"},
	}}
	require.False(t, Evaluate(spec, Input{}).Achieved)

	in := Input{HandoffLog: []core.HandoffEvent{{HandoffID: "h1", Step: 3, From: "a", To: "b"}}}
	res := Evaluate(spec, in)
	require.True(t, res.Achieved)
	require.NotNil(t, res.StepAchieved)
	require.Equal(t, 3, *res.StepAchieved)
}

func TestMissingAppStateIsNotMetNotError(t *testing.T) {
	spec := core.GoalSpec{Conditions: []core.GoalCondition{
		{GoalType: core.GoalStateEquals, AppID: "unknown_app", FieldPath: "x", ExpectedValue: 1},
	}}
	require.NotPanics(t, func() {
		res := Evaluate(spec, Input{})
		require.False(t, res.Achieved)
	})
}

func TestStateGreaterToleratesFloatIntMismatch(t *testing.T) {
	spec := core.GoalSpec{Conditions: []core.GoalCondition{
		{GoalType: core.GoalStateGreater, AppID: "app1", FieldPath: "score", ExpectedValue: 99.5},
	}}
	in := Input{AppStates: map[string]map[string]any{"app1": {"score": 100}}}
	res := Evaluate(spec, in)
	require.True(t, res.Achieved)
}
