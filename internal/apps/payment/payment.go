// Package payment registers the "paypal" native app: a minimal peer-to-peer
// ledger exercising the Simulated-App Runtime's full action-logic surface
// (balance transfers, pending money requests, cross-agent state writes).
package payment

import (
	"github.com/arunmenon/AgentWorld-sub001/core"
	"github.com/arunmenon/AgentWorld-sub001/internal/appruntime"
)

const AppID = "paypal"

func init() {
	appruntime.RegisterNativeApp(Definition())
}

// Definition builds the paypal AppDefinition. Exported so tests and
// scenario loaders can inspect or clone it without re-registering.
func Definition() *core.AppDefinition {
	return &core.AppDefinition{
		AppID:       AppID,
		Name:        "PayPal",
		Description: "Peer-to-peer balance transfers and money requests.",
		Category:    "finance",
		IsActive:    true,
		Version:     "1.0.0",
		StateSchema: []core.StateField{
			{Name: "balance", Type: "number", PerAgent: true, Default: int64(1000)},
			{Name: "requests_payer", Type: "object", PerAgent: false, Default: map[string]any{}},
			{Name: "requests_requester", Type: "object", PerAgent: false, Default: map[string]any{}},
			{Name: "requests_amount", Type: "object", PerAgent: false, Default: map[string]any{}},
			{Name: "requests_fulfilled", Type: "object", PerAgent: false, Default: map[string]any{}},
		},
		Actions: []core.ActionDefinition{
			transferAction(),
			requestMoneyAction(),
			payRequestAction(),
		},
	}
}

func transferAction() core.ActionDefinition {
	zero := 0.0
	return core.ActionDefinition{
		Name:           "transfer",
		Description:    "Move funds from the calling agent to another agent.",
		Classification: core.ActionWrite,
		Params: []core.ParamSpec{
			{Name: "to", Type: core.ParamString, Required: true},
			{Name: "amount", Type: core.ParamNumber, Required: true, Min: &zero},
			{Name: "note", Type: core.ParamString, Required: false, Default: ""},
		},
		Logic: []core.Statement{
			{
				Kind:     core.StmtIf,
				CondExpr: "params.amount > agent.balance",
				Then:     []core.Statement{{Kind: core.StmtFail, MessageExpr: `"insufficient funds"`}},
			},
			{
				Kind:      core.StmtSet,
				Path:      "balance",
				ValueExpr: "agent.balance - params.amount",
			},
			{
				Kind:          core.StmtSet,
				Path:          "balance",
				PathAgentExpr: "params.to",
				ValueExpr:     "agents[params.to].balance + params.amount",
			},
			{
				Kind:       core.StmtObserve,
				ToExpr:     "params.to",
				ObserveMsg: "You received $$${params.amount} from ${self}: ${params.note}",
				DataExprs: map[string]string{
					"amount": "params.amount",
					"from":   "self",
					"note":   "params.note",
				},
			},
			{
				Kind: core.StmtReturn,
				ReturnExprs: map[string]string{
					"from_balance": "agent.balance",
					"to":           "params.to",
					"amount":       "params.amount",
				},
			},
		},
	}
}

func requestMoneyAction() core.ActionDefinition {
	zero := 0.0
	return core.ActionDefinition{
		Name:           "request_money",
		Description:    "Ask another agent to pay the calling agent a given amount.",
		Classification: core.ActionWrite,
		Params: []core.ParamSpec{
			{Name: "from", Type: core.ParamString, Required: true},
			{Name: "amount", Type: core.ParamNumber, Required: true, Min: &zero},
		},
		Logic: []core.Statement{
			{Kind: core.StmtRandomID, Binding: "reqId"},
			{Kind: core.StmtSet, Path: "requests_payer", KeyExpr: "reqId", ValueExpr: "params.from"},
			{Kind: core.StmtSet, Path: "requests_requester", KeyExpr: "reqId", ValueExpr: "self"},
			{Kind: core.StmtSet, Path: "requests_amount", KeyExpr: "reqId", ValueExpr: "params.amount"},
			{Kind: core.StmtSet, Path: "requests_fulfilled", KeyExpr: "reqId", ValueExpr: "false"},
			{
				Kind:       core.StmtObserve,
				ToExpr:     "params.from",
				ObserveMsg: "${self} is requesting $$${params.amount} from you. Reference: ${reqId}",
				DataExprs: map[string]string{
					"request_id": "reqId",
					"amount":     "params.amount",
					"from":       "self",
				},
			},
			{Kind: core.StmtReturn, ReturnExprs: map[string]string{"request_id": "reqId"}},
		},
	}
}

func payRequestAction() core.ActionDefinition {
	const payer = "config.requests_payer[params.request_id]"
	const requester = "config.requests_requester[params.request_id]"
	const amount = "config.requests_amount[params.request_id]"
	const fulfilled = "config.requests_fulfilled[params.request_id]"

	return core.ActionDefinition{
		Name:           "pay_request",
		Description:    "Fulfill a pending money request raised by another agent.",
		Classification: core.ActionWrite,
		Params: []core.ParamSpec{
			{Name: "request_id", Type: core.ParamString, Required: true},
		},
		Logic: []core.Statement{
			{
				Kind:     core.StmtIf,
				CondExpr: payer + " == null",
				Then:     []core.Statement{{Kind: core.StmtFail, MessageExpr: `"unknown request id"`}},
			},
			{
				Kind:     core.StmtIf,
				CondExpr: fulfilled + " == true",
				Then:     []core.Statement{{Kind: core.StmtFail, MessageExpr: `"request already paid"`}},
			},
			{
				Kind:     core.StmtIf,
				CondExpr: amount + " > agent.balance",
				Then:     []core.Statement{{Kind: core.StmtFail, MessageExpr: `"insufficient funds"`}},
			},
			{
				Kind:      core.StmtSet,
				Path:      "balance",
				ValueExpr: "agent.balance - " + amount,
			},
			{
				Kind:          core.StmtSet,
				Path:          "balance",
				PathAgentExpr: requester,
				ValueExpr:     "agents[" + requester + "].balance + " + amount,
			},
			{
				Kind:      core.StmtSet,
				Path:      "requests_fulfilled",
				KeyExpr:   "params.request_id",
				ValueExpr: "true",
			},
			{
				Kind:       core.StmtObserve,
				ToExpr:     requester,
				ObserveMsg: "${self} paid your request for $$${" + amount + "}.",
				DataExprs: map[string]string{
					"request_id": "params.request_id",
					"amount":     amount,
				},
			},
			{
				Kind: core.StmtReturn,
				ReturnExprs: map[string]string{
					"paid":   "true",
					"to":     requester,
					"amount": amount,
				},
			},
		},
	}
}
