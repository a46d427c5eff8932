// Package logic interprets an action's declarative "logic" program (spec.md
// §4.E) against a copy-on-write working copy of App State, using
// internal/expr for every value-bearing expression.
package logic

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/arunmenon/AgentWorld-sub001/core"
	"github.com/arunmenon/AgentWorld-sub001/internal/expr"
)

// Outcome is the result of running one action's logic program.
type Outcome struct {
	Result       core.ActionResult
	State        *core.AppState // the working copy; caller commits on success
	Observations []core.OutboundObservation
	LogLines     []string
}

// execContext carries everything a running statement needs: spec.md §4.E's
// {agentId, params, state, config, observations-out-buffer} plus locals
// bound by random_id and the accumulating log lines.
type execContext struct {
	agentID string
	params  map[string]any
	state   *core.AppState
	config  map[string]any
	locals  map[string]any

	observations []core.OutboundObservation
	logLines     []string
}

func (c *execContext) env() expr.Env {
	agentFields, agentsFields := c.state.AsEnvMap(c.agentID)
	e := expr.Env{
		"params": c.params,
		"agent":  agentFields,
		"agents": agentsFields,
		"config": c.config,
		"self":   c.agentID,
	}
	for k, v := range c.locals {
		e[k] = v
	}
	return e
}

// Execute runs def.Logic against a copy-on-write clone of state for one
// action invocation. It never mutates the caller's state directly; on
// success the caller should commit Outcome.State into the instance.
func Execute(def *core.ActionDefinition, agentID string, params map[string]any, state *core.AppState, schema []core.StateField, config map[string]any) Outcome {
	working := state.Clone()
	ctx := &execContext{agentID: agentID, params: params, state: working, config: config, locals: map[string]any{}}

	result, halted, err := runStatements(def.Logic, ctx, schema)
	if err != nil {
		// logic_runtime failure: rollback (return original state unmodified).
		return Outcome{
			Result:   core.ActionResult{Success: false, Error: err.Error()},
			State:    state,
			LogLines: ctx.logLines,
		}
	}
	if !halted {
		// A program that falls off the end without return/fail succeeds
		// with no data, mirroring an implicit default outcome.
		result = core.ActionResult{Success: true, Data: map[string]any{}}
	}
	if !result.Success {
		return Outcome{Result: result, State: state, LogLines: ctx.logLines}
	}
	return Outcome{Result: result, State: working, Observations: ctx.observations, LogLines: ctx.logLines}
}

// runStatements executes a statement list linearly; it returns
// (result, halted, err). halted is true once a return/fail statement has
// executed; statements after a halt are not run (handled by the caller loop).
func runStatements(stmts []core.Statement, ctx *execContext, schema []core.StateField) (core.ActionResult, bool, error) {
	for _, st := range stmts {
		result, halted, err := runStatement(st, ctx, schema)
		if err != nil {
			return core.ActionResult{}, true, err
		}
		if halted {
			return result, true, nil
		}
	}
	return core.ActionResult{}, false, nil
}

func runStatement(st core.Statement, ctx *execContext, schema []core.StateField) (core.ActionResult, bool, error) {
	switch st.Kind {
	case core.StmtSet:
		return core.ActionResult{}, false, execSet(st, ctx, schema)
	case core.StmtIf:
		cond, err := expr.Eval(st.CondExpr, ctx.env())
		if err != nil {
			return core.ActionResult{}, false, fmt.Errorf("if condition: %w", err)
		}
		branch := st.Else
		if truthyBool(cond) {
			branch = st.Then
		}
		return runStatements(branch, ctx, schema)
	case core.StmtReturn:
		data := map[string]any{}
		for k, src := range st.ReturnExprs {
			v, err := expr.Eval(src, ctx.env())
			if err != nil {
				return core.ActionResult{}, false, fmt.Errorf("return field %q: %w", k, err)
			}
			data[k] = v
		}
		return core.ActionResult{Success: true, Data: data}, true, nil
	case core.StmtFail:
		msg, err := expr.Eval(st.MessageExpr, ctx.env())
		if err != nil {
			return core.ActionResult{}, false, fmt.Errorf("fail message: %w", err)
		}
		return core.ActionResult{Success: false, Error: expr.Str(msg)}, true, nil
	case core.StmtObserve:
		return core.ActionResult{}, false, execObserve(st, ctx)
	case core.StmtLog:
		msg, err := expr.Eval(st.LogExpr, ctx.env())
		if err != nil {
			return core.ActionResult{}, false, fmt.Errorf("log message: %w", err)
		}
		ctx.logLines = append(ctx.logLines, expr.Str(msg))
		return core.ActionResult{}, false, nil
	case core.StmtRandomID:
		ctx.locals[st.Binding] = uuid.NewString()
		return core.ActionResult{}, false, nil
	default:
		return core.ActionResult{}, false, fmt.Errorf("unknown statement kind %q", st.Kind)
	}
}

func truthyBool(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

// execSet writes an evaluated value to a state field by dotted path. A path
// prefixed with "agents.<id>." targets another agent's per-agent slice
// explicitly (needed by actions like a payment transfer that credit a
// counterparty); otherwise the first path segment must name a schema field,
// writing to the current agent's slice when the schema marks it PerAgent or
// to shared state otherwise (§3 AppState, §8 "every field referenced by an
// action's logic either appears in the state schema or is a local binding").
func execSet(st core.Statement, ctx *execContext, schema []core.StateField) error {
	val, err := expr.Eval(st.ValueExpr, ctx.env())
	if err != nil {
		return fmt.Errorf("set %s: %w", st.Path, err)
	}

	targetAgent := ctx.agentID
	path := st.Path
	targetsShared := false

	switch {
	case st.PathAgentExpr != "":
		targetVal, err := expr.Eval(st.PathAgentExpr, ctx.env())
		if err != nil {
			return fmt.Errorf("set path_agent: %w", err)
		}
		id, ok := targetVal.(string)
		if !ok || id == "" {
			return fmt.Errorf("set: path_agent did not resolve to an agent id")
		}
		targetAgent = id
	case strings.HasPrefix(path, "agents."):
		rest := strings.TrimPrefix(path, "agents.")
		id, fieldPath, ok := strings.Cut(rest, ".")
		if !ok {
			return fmt.Errorf("set: malformed agents.<id>.<field> path %q", st.Path)
		}
		targetAgent = id
		path = fieldPath
	case strings.HasPrefix(path, "shared."):
		path = strings.TrimPrefix(path, "shared.")
		targetsShared = true
	}

	field, rest := splitPath(path)
	if !targetsShared && st.PathAgentExpr == "" && !strings.HasPrefix(st.Path, "agents.") {
		perAgent, known := schemaLookup(schema, field)
		if !known {
			return fmt.Errorf("set: field %q not declared in state schema", field)
		}
		targetsShared = !perAgent
	} else if _, known := schemaLookup(schema, field); !known {
		return fmt.Errorf("set: field %q not declared in state schema", field)
	}

	if st.KeyExpr != "" {
		keyVal, err := expr.Eval(st.KeyExpr, ctx.env())
		if err != nil {
			return fmt.Errorf("set path_key: %w", err)
		}
		rest = append(append([]string{}, rest...), expr.Str(keyVal))
	}

	var target map[string]any
	if targetsShared {
		target = ctx.state.Shared
	} else {
		target = ctx.state.PerAgent[targetAgent]
		if target == nil {
			target = map[string]any{}
			ctx.state.PerAgent[targetAgent] = target
		}
	}
	setNested(target, field, rest, val)
	return nil
}

func schemaLookup(schema []core.StateField, name string) (perAgent bool, ok bool) {
	for _, f := range schema {
		if f.Name == name {
			return f.PerAgent, true
		}
	}
	return false, false
}

// splitPath splits "field.sub.path" into its top-level field name and the
// remaining dotted path (possibly empty).
func splitPath(path string) (field string, rest []string) {
	parts := strings.Split(path, ".")
	return parts[0], parts[1:]
}

func setNested(m map[string]any, field string, rest []string, val any) {
	if len(rest) == 0 {
		m[field] = val
		return
	}
	child, ok := m[field].(map[string]any)
	if !ok {
		child = map[string]any{}
		m[field] = child
	}
	cur := child
	for i, seg := range rest {
		if i == len(rest)-1 {
			cur[seg] = val
			return
		}
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[seg] = next
		}
		cur = next
	}
}

func execObserve(st core.Statement, ctx *execContext) error {
	toVal, err := expr.Eval(st.ToExpr, ctx.env())
	if err != nil {
		return fmt.Errorf("observe to: %w", err)
	}
	toID, ok := toVal.(string)
	if !ok || toID == "" {
		return fmt.Errorf("observe: 'to' did not resolve to an agent id")
	}
	msg, err := expr.Interpolate(st.ObserveMsg, ctx.env())
	if err != nil {
		return fmt.Errorf("observe message: %w", err)
	}
	data := map[string]any{}
	for k, src := range st.DataExprs {
		v, err := expr.Eval(src, ctx.env())
		if err != nil {
			return fmt.Errorf("observe data %q: %w", k, err)
		}
		data[k] = v
	}
	importance := 5.0
	if st.PriorityExpr != "" {
		v, err := expr.Eval(st.PriorityExpr, ctx.env())
		if err == nil {
			if f, ok := toFloat(v); ok {
				importance = f
			}
		}
	}
	ctx.observations = append(ctx.observations, core.OutboundObservation{
		ToAgentID: toID,
		Observation: core.Observation{
			Content:    msg,
			Source:     "app:" + ctx.agentID,
			Importance: importance,
			Data:       data,
		},
	})
	return nil
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}
