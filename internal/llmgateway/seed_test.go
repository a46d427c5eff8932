package llmgateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveSeedIsDeterministic(t *testing.T) {
	a := DeriveSeed(42, 3, "agent-1")
	b := DeriveSeed(42, 3, "agent-1")
	assert.Equal(t, a, b)
}

func TestDeriveSeedVariesWithInputs(t *testing.T) {
	base := DeriveSeed(42, 3, "agent-1")
	assert.NotEqual(t, base, DeriveSeed(43, 3, "agent-1"))
	assert.NotEqual(t, base, DeriveSeed(42, 4, "agent-1"))
	assert.NotEqual(t, base, DeriveSeed(42, 3, "agent-2"))
}

func TestDeriveSeedFitsUint32Range(t *testing.T) {
	seed := DeriveSeed(1<<40, 999999, "agent-x")
	assert.GreaterOrEqual(t, seed, int64(0))
	assert.Less(t, seed, int64(1)<<32)
}
