package logic

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arunmenon/AgentWorld-sub001/core"
)

func schema() []core.StateField {
	return []core.StateField{
		{Name: "balance", Type: "number", PerAgent: true, Default: int64(0)},
		{Name: "requests", Type: "object", PerAgent: false},
	}
}

func TestExecuteSetAndReturn(t *testing.T) {
	state := core.NewAppState()
	state.EnsureAgent("alice", map[string]any{"balance": int64(100)})

	def := &core.ActionDefinition{
		Name: "deposit",
		Logic: []core.Statement{
			{Kind: core.StmtSet, Path: "balance", ValueExpr: "agent.balance + params.amount"},
			{Kind: core.StmtReturn, ReturnExprs: map[string]string{"new_balance": "agent.balance"}},
		},
	}
	out := Execute(def, "alice", map[string]any{"amount": int64(50)}, state, schema(), map[string]any{})
	require.True(t, out.Result.Success)
	require.Equal(t, int64(150), out.State.PerAgent["alice"]["balance"])
}

func TestExecuteFailRollsBack(t *testing.T) {
	state := core.NewAppState()
	state.EnsureAgent("alice", map[string]any{"balance": int64(10)})

	def := &core.ActionDefinition{
		Name: "withdraw",
		Logic: []core.Statement{
			{Kind: core.StmtIf, CondExpr: "params.amount > agent.balance",
				Then: []core.Statement{{Kind: core.StmtFail, MessageExpr: `"insufficient funds"`}},
			},
			{Kind: core.StmtSet, Path: "balance", ValueExpr: "agent.balance - params.amount"},
			{Kind: core.StmtReturn, ReturnExprs: map[string]string{"ok": "true"}},
		},
	}
	out := Execute(def, "alice", map[string]any{"amount": int64(100)}, state, schema(), map[string]any{})
	require.False(t, out.Result.Success)
	require.Contains(t, out.Result.Error, "insufficient")
	// rollback: original state object returned unmodified
	require.Equal(t, int64(10), state.PerAgent["alice"]["balance"])
}

func TestExecuteSetPathAgentAndKey(t *testing.T) {
	state := core.NewAppState()
	state.EnsureAgent("alice", map[string]any{"balance": int64(100)})
	state.EnsureAgent("bob", map[string]any{"balance": int64(0)})

	def := &core.ActionDefinition{
		Name: "transfer",
		Logic: []core.Statement{
			{Kind: core.StmtSet, Path: "balance", ValueExpr: "agent.balance - params.amount"},
			{Kind: core.StmtSet, Path: "balance", PathAgentExpr: "params.to", ValueExpr: "agents[params.to].balance + params.amount"},
			{Kind: core.StmtSet, Path: "requests", KeyExpr: `"r1"`, ValueExpr: `true`},
			{Kind: core.StmtReturn, ReturnExprs: map[string]string{"ok": "true"}},
		},
	}
	sch := append(schema(), core.StateField{Name: "requests", Type: "object", PerAgent: false, Default: map[string]any{}})
	out := Execute(def, "alice", map[string]any{"to": "bob", "amount": int64(30)}, state, sch, map[string]any{})
	require.True(t, out.Result.Success)
	require.Equal(t, int64(70), out.State.PerAgent["alice"]["balance"])
	require.Equal(t, int64(30), out.State.PerAgent["bob"]["balance"])
	require.Equal(t, true, out.State.Shared["requests"].(map[string]any)["r1"])
}

func TestExecuteObserveAndRandomID(t *testing.T) {
	state := core.NewAppState()
	state.EnsureAgent("alice", map[string]any{"balance": int64(0)})
	state.EnsureAgent("bob", map[string]any{"balance": int64(0)})

	def := &core.ActionDefinition{
		Name: "notify",
		Logic: []core.Statement{
			{Kind: core.StmtRandomID, Binding: "reqId"},
			{Kind: core.StmtObserve, ToExpr: `"bob"`, ObserveMsg: "you have a request ${reqId}"},
			{Kind: core.StmtReturn, ReturnExprs: map[string]string{"request_id": "reqId"}},
		},
	}
	out := Execute(def, "alice", map[string]any{}, state, schema(), map[string]any{})
	require.True(t, out.Result.Success)
	require.Len(t, out.Observations, 1)
	require.Equal(t, "bob", out.Observations[0].ToAgentID)
	require.NotEmpty(t, out.Result.Data["request_id"])
}
