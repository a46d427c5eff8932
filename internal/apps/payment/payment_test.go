package payment

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arunmenon/AgentWorld-sub001/internal/appruntime"
)

func newInstance(t *testing.T) *appruntime.Instance {
	t.Helper()
	inst := appruntime.New(Definition())
	inst.Initialize([]string{"alice", "bob", "charlie"}, nil, nil)
	return inst
}

func TestTransferMovesFunds(t *testing.T) {
	inst := newInstance(t)

	res, err := inst.Execute("alice", "transfer", map[string]any{"to": "bob", "amount": int64(100), "note": "Dinner"}, 0)
	require.NoError(t, err)
	require.True(t, res.Success)

	require.Equal(t, int64(900), inst.GetAgentState("alice")["balance"])
	require.Equal(t, int64(1100), inst.GetAgentState("bob")["balance"])
	require.Equal(t, int64(1000), inst.GetAgentState("charlie")["balance"])

	obs := inst.PopObservations("bob")
	require.Len(t, obs, 1)
	require.Contains(t, obs[0].Content, "received")
	require.Contains(t, obs[0].Content, "$100")

	log := inst.AuditLog()
	require.Len(t, log, 1)
	require.Equal(t, "transfer", log[0].ActionName)
	require.True(t, log[0].Success)
}

func TestTransferInsufficientFunds(t *testing.T) {
	inst := newInstance(t)

	res, err := inst.Execute("alice", "transfer", map[string]any{"to": "bob", "amount": int64(2000)}, 0)
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Contains(t, res.Error, "insufficient")

	require.Equal(t, int64(1000), inst.GetAgentState("alice")["balance"])
	require.Equal(t, int64(1000), inst.GetAgentState("bob")["balance"])

	log := inst.AuditLog()
	require.Len(t, log, 1)
	require.False(t, log[0].Success)
}

func TestRequestAndPayFlow(t *testing.T) {
	inst := newInstance(t)

	res, err := inst.Execute("alice", "request_money", map[string]any{"from": "bob", "amount": int64(50)}, 0)
	require.NoError(t, err)
	require.True(t, res.Success)
	reqID, _ := res.Data["request_id"].(string)
	require.NotEmpty(t, reqID)

	bobObs := inst.PopObservations("bob")
	require.Len(t, bobObs, 1)
	require.Contains(t, bobObs[0].Content, "requesting")

	res2, err := inst.Execute("bob", "pay_request", map[string]any{"request_id": reqID}, 1)
	require.NoError(t, err)
	require.True(t, res2.Success)

	require.Equal(t, int64(1050), inst.GetAgentState("alice")["balance"])
	require.Equal(t, int64(950), inst.GetAgentState("bob")["balance"])

	aliceObs := inst.PopObservations("alice")
	require.Len(t, aliceObs, 1)
	require.Contains(t, aliceObs[0].Content, "paid")

	res3, err := inst.Execute("bob", "pay_request", map[string]any{"request_id": reqID}, 2)
	require.NoError(t, err)
	require.False(t, res3.Success)
	require.Contains(t, res3.Error, "already")
}
