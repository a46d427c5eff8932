package expr

import (
	"fmt"
	"sync"
)

// Env is the variable environment an expression is evaluated against: a
// plain map, per spec.md §4.D ("reading the provided environment map").
type Env map[string]any

// Error is the distinct expression-error kind required by spec.md §4.D and
// §7 (ErrExpression at the core-error boundary).
type Error struct {
	Msg string
}

func (e *Error) Error() string { return "expression error: " + e.Msg }

func errorf(format string, args ...any) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// astCache memoizes parsed ASTs keyed by source text, per spec.md §4.D
// ("must cache parsed AST keyed by source text").
var astCache sync.Map // map[string]*Node

func parseCached(src string) (*Node, error) {
	if v, ok := astCache.Load(src); ok {
		return v.(*Node), nil
	}
	n, err := parseExpr(src)
	if err != nil {
		return nil, errorf("%v", err)
	}
	astCache.Store(src, n)
	return n, nil
}

// Eval parses (or reuses a cached parse of) src and evaluates it against env.
func Eval(src string, env Env) (any, error) {
	n, err := parseCached(src)
	if err != nil {
		return nil, err
	}
	return evalNode(n, env)
}

func evalNode(n *Node, env Env) (any, error) {
	switch n.Kind {
	case KindLiteral:
		return n.Lit, nil
	case KindPath:
		return evalPath(n.Path, env)
	case KindUnary:
		v, err := evalNode(n.Expr, env)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case "!":
			return !truthy(v), nil
		case "-":
			f, ok := asFloat(v)
			if !ok {
				return nil, errorf("unary '-' on non-numeric value")
			}
			if isInt(v) {
				return -int64(f), nil
			}
			return -f, nil
		}
		return nil, errorf("unknown unary operator %q", n.Op)
	case KindBinary:
		return evalBinary(n, env)
	case KindCall:
		return evalCall(n, env)
	default:
		return nil, errorf("unknown node kind")
	}
}

func evalPath(segs []PathSeg, env Env) (any, error) {
	var cur any = map[string]any(env)
	for i, seg := range segs {
		if cur == nil {
			return nil, nil // missing intermediate field yields null, never an error
		}
		var key any
		if seg.Index != nil {
			v, err := evalNode(seg.Index, env)
			if err != nil {
				return nil, err
			}
			key = v
		} else {
			key = seg.Name
		}
		next, ok := lookup(cur, key)
		if !ok {
			return nil, nil
		}
		cur = next
		_ = i
	}
	return cur, nil
}

// lookup resolves one path segment against a map, slice/array, or struct-like
// value (only maps and slices are supported; app state is always built from
// maps and slices, see internal/appruntime).
func lookup(container any, key any) (any, bool) {
	switch c := container.(type) {
	case map[string]any:
		if ks, ok := key.(string); ok {
			v, ok := c[ks]
			return v, ok
		}
		return nil, false
	case Env:
		if ks, ok := key.(string); ok {
			v, ok := c[ks]
			return v, ok
		}
		return nil, false
	case []any:
		idx, ok := asInt(key)
		if !ok || idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	default:
		return nil, false
	}
}

func evalBinary(n *Node, env Env) (any, error) {
	switch n.Op {
	case "&&":
		l, err := evalNode(n.Left, env)
		if err != nil {
			return nil, err
		}
		if !truthy(l) {
			return false, nil
		}
		r, err := evalNode(n.Right, env)
		if err != nil {
			return nil, err
		}
		return truthy(r), nil
	case "||":
		l, err := evalNode(n.Left, env)
		if err != nil {
			return nil, err
		}
		if truthy(l) {
			return true, nil
		}
		r, err := evalNode(n.Right, env)
		if err != nil {
			return nil, err
		}
		return truthy(r), nil
	}

	l, err := evalNode(n.Left, env)
	if err != nil {
		return nil, err
	}
	r, err := evalNode(n.Right, env)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case "==":
		return equalValues(l, r), nil
	case "!=":
		return !equalValues(l, r), nil
	case "<", "<=", ">", ">=":
		return compareValues(n.Op, l, r)
	case "+":
		return arithAdd(l, r)
	case "-", "*", "/":
		return arith(n.Op, l, r)
	}
	return nil, errorf("unknown binary operator %q", n.Op)
}

func arithAdd(l, r any) (any, error) {
	if ls, ok := l.(string); ok {
		if rs, ok := r.(string); ok {
			return ls + rs, nil
		}
	}
	return arith("+", l, r)
}

func arith(op string, l, r any) (any, error) {
	lf, lok := asFloat(l)
	rf, rok := asFloat(r)
	if !lok || !rok {
		return nil, errorf("arithmetic on non-numeric operand")
	}
	var res float64
	switch op {
	case "+":
		res = lf + rf
	case "-":
		res = lf - rf
	case "*":
		res = lf * rf
	case "/":
		if rf == 0 {
			return nil, errorf("division by zero")
		}
		res = lf / rf
	}
	if isInt(l) && isInt(r) && op != "/" {
		return int64(res), nil
	}
	return res, nil
}

func compareValues(op string, l, r any) (any, error) {
	lf, lok := asFloat(l)
	rf, rok := asFloat(r)
	if lok && rok {
		switch op {
		case "<":
			return lf < rf, nil
		case "<=":
			return lf <= rf, nil
		case ">":
			return lf > rf, nil
		case ">=":
			return lf >= rf, nil
		}
	}
	ls, lsok := l.(string)
	rs, rsok := r.(string)
	if lsok && rsok {
		switch op {
		case "<":
			return ls < rs, nil
		case "<=":
			return ls <= rs, nil
		case ">":
			return ls > rs, nil
		case ">=":
			return ls >= rs, nil
		}
	}
	return nil, errorf("cannot compare %v and %v", l, r)
}

func evalCall(n *Node, env Env) (any, error) {
	args := make([]any, len(n.Args))
	for i, a := range n.Args {
		v, err := evalNode(a, env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	fn, ok := builtins[n.Func]
	if !ok {
		return nil, errorf("unknown function %q", n.Func)
	}
	return fn(args)
}
