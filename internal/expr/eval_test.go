package expr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvalArithmeticAndLogic(t *testing.T) {
	env := Env{"a": int64(3), "b": int64(4)}
	v, err := Eval("a + b", env)
	require.NoError(t, err)
	require.Equal(t, int64(7), v)

	v, err = Eval("a < b && b > 0", env)
	require.NoError(t, err)
	require.Equal(t, true, v)
}

func TestEvalPathMissingIsNull(t *testing.T) {
	env := Env{"state": map[string]any{"balance": int64(100)}}
	v, err := Eval("state.missing.deep", env)
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestEvalPathBracket(t *testing.T) {
	env := Env{"items": []any{int64(10), int64(20), int64(30)}}
	v, err := Eval("items[1]", env)
	require.NoError(t, err)
	require.Equal(t, int64(20), v)
}

func TestEvalDivisionByZero(t *testing.T) {
	_, err := Eval("1 / 0", Env{})
	require.Error(t, err)
	var exprErr *Error
	require.ErrorAs(t, err, &exprErr)
}

func TestEvalUnknownCallIsError(t *testing.T) {
	_, err := Eval("nope(1,2)", Env{})
	require.Error(t, err)
}

func TestBuiltins(t *testing.T) {
	env := Env{"name": "Bob"}
	v, err := Eval(`upper(name)`, env)
	require.NoError(t, err)
	require.Equal(t, "BOB", v)

	v, err = Eval(`contains("hello world", "world")`, env)
	require.NoError(t, err)
	require.Equal(t, true, v)

	v, err = Eval(`len("abcd")`, env)
	require.NoError(t, err)
	require.Equal(t, int64(4), v)

	v, err = Eval(`min(3, 1, 2)`, env)
	require.NoError(t, err)
	require.Equal(t, int64(1), v)
}

// eval(interp("${x}"), {x: v}) == str(v) for scalar v (spec.md §8).
func TestInterpolationLaw(t *testing.T) {
	for _, v := range []any{int64(5), "hi", true, 3.5} {
		env := Env{"x": v}
		s, err := Interpolate("${x}", env)
		require.NoError(t, err)
		require.Equal(t, Str(v), s)
	}
}

func TestInterpolationDollarDollar(t *testing.T) {
	s, err := Interpolate("price is $$5 not a var", Env{})
	require.NoError(t, err)
	require.Equal(t, "price is $$5 not a var", s)
}

func TestInterpolationLeadingDollarBeforeBrace(t *testing.T) {
	env := Env{"amount": int64(50)}
	s, err := Interpolate("Amount: $${amount}", env)
	require.NoError(t, err)
	require.Equal(t, "Amount: $50", s)
}

func TestDoubleNegationIsBool(t *testing.T) {
	env := Env{"y": int64(0)}
	v, err := Eval("!!y", env)
	require.NoError(t, err)
	b, ok := v.(bool)
	require.True(t, ok)
	require.False(t, b)
}

func TestASTCacheReused(t *testing.T) {
	_, err := Eval("1+1", Env{})
	require.NoError(t, err)
	n1, _ := parseCached("1+1")
	n2, _ := parseCached("1+1")
	require.Same(t, n1, n2)
}
