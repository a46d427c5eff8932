// Package goal evaluates a declarative GoalSpec against simulation state,
// the action audit log, agent outputs, and handoff events (§4.I).
package goal

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arunmenon/AgentWorld-sub001/core"
)

// numericTolerance bounds float comparisons for state_greater/state_less
// and equals-on-numbers, per §4.I "Numeric comparisons use a small
// tolerance (e.g., 1e-3)".
const numericTolerance = 1e-3

// AgentOutput is one line of agent-produced text, checked by
// output_contains conditions.
type AgentOutput struct {
	AgentID string
	Content string
}

// ConditionResult is the outcome of evaluating one GoalCondition.
type ConditionResult struct {
	Condition   core.GoalCondition
	Met         bool
	ActualValue any
	StepMet     *int
	Details     string
}

// Result is the outcome of evaluating a full GoalSpec.
type Result struct {
	Achieved         bool
	ConditionResults []ConditionResult
	MetCount         int
	TotalCount       int
	StepAchieved     *int
}

// Input bundles everything a GoalSpec may need to evaluate its conditions.
type Input struct {
	AppStates     map[string]map[string]any
	AuditLog      []core.AuditEntry
	OutputLog     []AgentOutput
	HandoffLog    []core.HandoffEvent
	RequiredHandoffIDs []string // for an "all handoffs done" style check
	CurrentStep   int
}

// Evaluate checks every condition in spec against in and aggregates per its
// SuccessMode. An empty spec (no conditions) is always achieved.
func Evaluate(spec core.GoalSpec, in Input) Result {
	res := Result{TotalCount: len(spec.Conditions)}
	if len(spec.Conditions) == 0 {
		res.Achieved = true
		return res
	}

	for _, cond := range spec.Conditions {
		cr := evaluateCondition(cond, in)
		res.ConditionResults = append(res.ConditionResults, cr)
		if cr.Met {
			res.MetCount++
			if res.StepAchieved == nil || (cr.StepMet != nil && *cr.StepMet < *res.StepAchieved) {
				res.StepAchieved = cr.StepMet
			}
		}
	}

	switch spec.SuccessMode {
	case core.SuccessAny:
		res.Achieved = res.MetCount > 0
	default: // all
		res.Achieved = res.MetCount == res.TotalCount
	}
	if !res.Achieved {
		res.StepAchieved = nil
	}
	return res
}

func evaluateCondition(cond core.GoalCondition, in Input) ConditionResult {
	switch cond.GoalType {
	case core.GoalStateEquals, core.GoalStateContains, core.GoalStateGreater, core.GoalStateLess, core.GoalStateExists:
		return evaluateStateCondition(cond, in)
	case core.GoalActionExecuted:
		return evaluateActionCondition(cond, in, false)
	case core.GoalActionSucceeded:
		return evaluateActionCondition(cond, in, true)
	case core.GoalOutputContains:
		return evaluateOutputCondition(cond, in)
	case core.GoalHandoffCompleted:
		return evaluateHandoffCondition(cond, in)
	default:
		return ConditionResult{Condition: cond, Met: false, Details: "unknown goal type"}
	}
}

func evaluateStateCondition(cond core.GoalCondition, in Input) ConditionResult {
	appState, ok := in.AppStates[cond.AppID]
	if !ok {
		return ConditionResult{Condition: cond, Met: false, Details: "app state not found"}
	}
	value, found := lookupPath(appState, cond.FieldPath)

	switch cond.GoalType {
	case core.GoalStateExists:
		return ConditionResult{Condition: cond, Met: found, ActualValue: value}
	case core.GoalStateEquals:
		if !found {
			return ConditionResult{Condition: cond, Met: false, Details: "field missing"}
		}
		return ConditionResult{Condition: cond, Met: equalValues(value, cond.ExpectedValue), ActualValue: value}
	case core.GoalStateContains:
		if !found {
			return ConditionResult{Condition: cond, Met: false, Details: "field missing"}
		}
		return ConditionResult{Condition: cond, Met: containsValue(value, cond.ExpectedValue), ActualValue: value}
	case core.GoalStateGreater:
		if !found {
			return ConditionResult{Condition: cond, Met: false, Details: "field missing"}
		}
		a, aok := asFloat(value)
		b, bok := asFloat(cond.ExpectedValue)
		return ConditionResult{Condition: cond, Met: aok && bok && a > b+numericTolerance, ActualValue: value}
	case core.GoalStateLess:
		if !found {
			return ConditionResult{Condition: cond, Met: false, Details: "field missing"}
		}
		a, aok := asFloat(value)
		b, bok := asFloat(cond.ExpectedValue)
		return ConditionResult{Condition: cond, Met: aok && bok && a < b-numericTolerance, ActualValue: value}
	}
	return ConditionResult{Condition: cond, Met: false}
}

func evaluateActionCondition(cond core.GoalCondition, in Input, requireSuccess bool) ConditionResult {
	actionName, _ := cond.ExpectedValue.(string)
	if actionName == "" {
		actionName = cond.ActionName
	}
	for _, entry := range in.AuditLog {
		if entry.AppID != cond.AppID || entry.ActionName != actionName {
			continue
		}
		if requireSuccess && !entry.Success {
			continue
		}
		step := entry.Step
		return ConditionResult{Condition: cond, Met: true, StepMet: &step, ActualValue: entry.Success}
	}
	return ConditionResult{Condition: cond, Met: false}
}

func evaluateOutputCondition(cond core.GoalCondition, in Input) ConditionResult {
	phrase := strings.ToLower(cond.RequiredPhrase)
	for _, out := range in.OutputLog {
		if phrase != "" && strings.Contains(strings.ToLower(out.Content), phrase) {
			return ConditionResult{Condition: cond, Met: true, ActualValue: out.Content}
		}
	}
	return ConditionResult{Condition: cond, Met: false}
}

func evaluateHandoffCondition(cond core.GoalCondition, in Input) ConditionResult {
	for _, h := range in.HandoffLog {
		if h.HandoffID == cond.HandoffID {
			step := h.Step
			return ConditionResult{Condition: cond, Met: true, StepMet: &step}
		}
	}
	return ConditionResult{Condition: cond, Met: false}
}

// lookupPath resolves a dotted field path inside a nested
// map[string]any/[]any structure, e.g. "bookings.ABC123.seat". A missing
// intermediate key or out-of-range index reports (nil, false) rather than
// erroring (§4.I "Missing fields compare as not-met, not as error").
func lookupPath(state map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var cur any = state
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// equalValues compares two dynamic values structurally, tolerating the
// common JSON-ish numeric-type mismatches (e.g. an int64 state value
// against a float64 config literal) with numericTolerance. When the two
// values have incompatible shapes (e.g. a map compared against a scalar),
// the comparison is ambiguous rather than simply false: it is logged as
// such and reported not-met, per §4.I.
func equalValues(a, b any) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return abs(af-bf) <= numericTolerance
		}
	}
	if !shapesComparable(a, b) {
		err := core.NewError(core.ErrGoalAmbig, fmt.Sprintf("comparing incompatible value shapes: %T vs %T", a, b))
		core.Logger().Warn().Err(err).Msg("goal: state_equals condition is ambiguous")
		return false
	}
	return deepEqual(a, b)
}

// shapesComparable reports whether a and b are structurally compatible for
// equality comparison: neither is a map/slice compared against the other
// kind, including a map or slice compared against a bare scalar.
func shapesComparable(a, b any) bool {
	_, aMap := a.(map[string]any)
	_, bMap := b.(map[string]any)
	_, aSlice := a.([]any)
	_, bSlice := b.([]any)
	return aMap == bMap && aSlice == bSlice
}

func containsValue(haystack, needle any) bool {
	switch h := haystack.(type) {
	case string:
		s, ok := needle.(string)
		return ok && strings.Contains(h, s)
	case []any:
		for _, item := range h {
			if equalValues(item, needle) {
				return true
			}
		}
		return false
	case map[string]any:
		key, ok := needle.(string)
		if !ok {
			return false
		}
		_, exists := h[key]
		return exists
	default:
		return false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func deepEqual(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			if bvv, ok := bv[k]; !ok || !deepEqual(v, bvv) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !deepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
