package directive

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTransferDirective(t *testing.T) {
	msg := `Sending. APP_ACTION: paypal.transfer(to="bob", amount=100, note="Dinner")`
	res := Parse(msg)
	require.Empty(t, res.Errors)
	require.Len(t, res.Actions, 1)
	a := res.Actions[0]
	require.Equal(t, "paypal", a.AppID)
	require.Equal(t, "transfer", a.ActionName)
	require.Equal(t, "bob", a.Params["to"])
	require.Equal(t, int64(100), a.Params["amount"])
	require.Equal(t, "Dinner", a.Params["note"])
	require.Equal(t, "Sending.", res.CleanedText)
}

func TestParseCaseInsensitivePrefix(t *testing.T) {
	res := Parse(`app_Action: paypal.transfer(to="bob", amount=5)`)
	require.Empty(t, res.Errors)
	require.Len(t, res.Actions, 1)
}

func TestParseMalformedLineReportsErrorAndStrips(t *testing.T) {
	res := Parse("before\nAPP_ACTION: paypal.transfer(to=\nafter")
	require.Len(t, res.Errors, 1)
	require.Equal(t, "before\nafter", res.CleanedText)
}

func TestParseMultipleDirectivesOneLine(t *testing.T) {
	line := `APP_ACTION: paypal.transfer(to="bob", amount=1) and APP_ACTION: paypal.transfer(to="charlie", amount=2)`
	res := Parse(line)
	require.Empty(t, res.Errors)
	require.Len(t, res.Actions, 2)
	require.Equal(t, "bob", res.Actions[0].Params["to"])
	require.Equal(t, "charlie", res.Actions[1].Params["to"])
}

func TestParseValueLiterals(t *testing.T) {
	res := Parse(`APP_ACTION: a.b(i=1, f=1.5, bt=true, bf=no, n=null, s='it\'s, fine')`)
	require.Empty(t, res.Errors)
	require.Len(t, res.Actions, 1)
	p := res.Actions[0].Params
	require.Equal(t, int64(1), p["i"])
	require.Equal(t, 1.5, p["f"])
	require.Equal(t, true, p["bt"])
	require.Equal(t, false, p["bf"])
	require.Nil(t, p["n"])
}

// Parser idempotence (spec.md §8): parse(cleaned) == ({}, cleaned).
func TestParseIdempotence(t *testing.T) {
	msg := `Hi there. APP_ACTION: paypal.transfer(to="bob", amount=100)`
	first := Parse(msg)
	second := Parse(first.CleanedText)
	require.Empty(t, second.Actions)
	require.Empty(t, second.Errors)
	require.Equal(t, first.CleanedText, second.CleanedText)
}

func TestParseStandaloneDirectiveLineFullyStripped(t *testing.T) {
	res := Parse("APP_ACTION: paypal.transfer(to=\"bob\", amount=1)")
	require.Equal(t, "", res.CleanedText)
}
