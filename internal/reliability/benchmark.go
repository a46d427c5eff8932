package reliability

// TaskResult is one task's trial outcome: n total trials, c successes.
type TaskResult struct {
	TaskID string
	Total  int
	Successes int
}

// BenchmarkMetrics aggregates pass^k across a set of tasks (§4.J "Benchmark
// aggregation: mean pass^k across tasks, total trials, total successes").
type BenchmarkMetrics struct {
	TaskMetrics        map[string]map[string]float64
	MeanPass1          float64
	MeanPass8          float64
	MeanReliabilityGap float64
	TotalTrials        int
	TotalSuccesses     int
}

// FromTaskResults computes per-task pass^k and the cross-task means.
func FromTaskResults(results []TaskResult) BenchmarkMetrics {
	bm := BenchmarkMetrics{TaskMetrics: map[string]map[string]float64{}}
	if len(results) == 0 {
		return bm
	}
	var sumPass1, sumPass8 float64
	for _, r := range results {
		metrics := AllPassK(r.Total, r.Successes)
		bm.TaskMetrics[r.TaskID] = metrics
		sumPass1 += metrics["pass_1"]
		sumPass8 += metrics["pass_8"]
		bm.TotalTrials += r.Total
		bm.TotalSuccesses += r.Successes
	}
	n := float64(len(results))
	bm.MeanPass1 = sumPass1 / n
	bm.MeanPass8 = sumPass8 / n
	bm.MeanReliabilityGap = bm.MeanPass1 - bm.MeanPass8
	return bm
}

// Interpretation summarizes the benchmark's mean pass^1/pass^8 per §4.J.
func (bm BenchmarkMetrics) Interpretation() string {
	return Interpretation(bm.MeanPass1, bm.MeanPass8)
}

// Comparison is a baseline-vs-variant delta analysis (§4.J "Comparison
// between baseline and variant yields pass_k deltas").
type Comparison struct {
	Baseline            map[string]float64
	Variant             map[string]float64
	Pass1Delta          float64
	Pass8Delta          float64
	ReliabilityGapDelta float64
}

// Compare evaluates pass^k for baseline and variant trial counts and
// returns the deltas between them.
func Compare(baselineN, baselineC, variantN, variantC int) Comparison {
	baseline := AllPassK(baselineN, baselineC)
	variant := AllPassK(variantN, variantC)
	return Comparison{
		Baseline:   baseline,
		Variant:    variant,
		Pass1Delta: variant["pass_1"] - baseline["pass_1"],
		Pass8Delta: variant["pass_8"] - baseline["pass_8"],
		ReliabilityGapDelta: ReliabilityGap(variant["pass_1"], variant["pass_8"]) -
			ReliabilityGap(baseline["pass_1"], baseline["pass_8"]),
	}
}

// IsImprovement reports whether the variant improves reliability (pass^8
// delta at least minDelta) without a meaningful regression in pass^1
// (§4.J "'improvement' requires pass^8 delta >= threshold and pass^1 not
// regressing by more than ε", with ε fixed at 0.05 as in the original
// benchmark tooling).
func (c Comparison) IsImprovement(minDelta float64) bool {
	return c.Pass8Delta >= minDelta && c.Pass1Delta >= -0.05
}
