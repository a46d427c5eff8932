package reliability

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPassKMatchesDocumentedExample(t *testing.T) {
	// spec.md §8 scenario 5: n=8, c=6.
	metrics := AllPassK(8, 6)
	require.InDelta(t, 0.75, metrics["pass_1"], 1e-9)
	require.InDelta(t, 0.5357142857142857, metrics["pass_2"], 1e-9)
	require.InDelta(t, 0.21428571428571427, metrics["pass_4"], 1e-9)
	require.InDelta(t, 0.0, metrics["pass_8"], 1e-9)
}

func TestPassKBoundaries(t *testing.T) {
	require.Equal(t, 1.0, PassK(8, 8, 8))
	require.Equal(t, 0.0, PassK(8, 0, 1))
	require.Equal(t, 1.0, PassK(8, 0, 0))
	require.Equal(t, 0.0, PassK(0, 0, 1))
	require.Equal(t, 0.0, PassK(5, 3, 4)) // k > c
}

func TestFromTaskResultsAggregates(t *testing.T) {
	bm := FromTaskResults([]TaskResult{
		{TaskID: "t1", Total: 8, Successes: 6},
		{TaskID: "t2", Total: 8, Successes: 8},
	})
	require.Equal(t, 16, bm.TotalTrials)
	require.Equal(t, 14, bm.TotalSuccesses)
	require.InDelta(t, (0.75+1.0)/2, bm.MeanPass1, 1e-9)
	require.InDelta(t, (0.0+1.0)/2, bm.MeanPass8, 1e-9)
}

func TestCompareDetectsImprovement(t *testing.T) {
	cmp := Compare(8, 6, 8, 8)
	require.Greater(t, cmp.Pass8Delta, 0.0)
	require.True(t, cmp.IsImprovement(0.1))
}

func TestCompareDetectsRegression(t *testing.T) {
	cmp := Compare(8, 8, 8, 4)
	require.Less(t, cmp.Pass1Delta, 0.0)
	require.False(t, cmp.IsImprovement(0.0))
}

func TestInterpretationBands(t *testing.T) {
	require.Contains(t, Interpretation(1.0, 0.95), "excellent")
	require.Contains(t, Interpretation(1.0, 0.75), "good")
	require.Contains(t, Interpretation(1.0, 0.55), "moderate")
	require.Contains(t, Interpretation(0, 0), "critical")
}
