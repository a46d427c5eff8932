// Package reliability computes pass^k reliability metrics (§4.J): the
// probability that k trials drawn without replacement from n total trials
// are all successes, given c of the n succeeded.
package reliability

import "strconv"

// StandardK is the conventional set of k values reported for a task.
var StandardK = []int{1, 2, 4, 8}

// PassK computes pass^k = C(c,k) / C(n,k) for k <= c, else 0. pass^0 is
// defined as 1 regardless of n and c.
func PassK(n, c, k int) float64 {
	if k == 0 {
		return 1.0
	}
	if n == 0 {
		return 0.0
	}
	if k > n || k > c {
		return 0.0
	}
	return binomial(c, k) / binomial(n, k)
}

// AllPassK computes PassK for every k in StandardK, keyed as "pass_<k>".
func AllPassK(n, c int) map[string]float64 {
	out := make(map[string]float64, len(StandardK))
	for _, k := range StandardK {
		out[keyFor(k)] = PassK(n, c, k)
	}
	return out
}

func keyFor(k int) string {
	switch k {
	case 1:
		return "pass_1"
	case 2:
		return "pass_2"
	case 4:
		return "pass_4"
	case 8:
		return "pass_8"
	default:
		return "pass_" + strconv.Itoa(k)
	}
}

// binomial computes C(n, k) as a float64. n and k are small (trial counts
// in a benchmark run, not combinatorial-explosion territory), so the
// straightforward multiplicative formula avoids overflow without needing
// math/big.
func binomial(n, k int) float64 {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	result := 1.0
	for i := 0; i < k; i++ {
		result *= float64(n-i) / float64(i+1)
	}
	return result
}

// Interpretation buckets pass^8 per §4.J's documented bands.
func Interpretation(pass1, pass8 float64) string {
	if pass1 == 0 {
		return "critical: no successes observed"
	}
	switch {
	case pass8 >= 0.9:
		return "excellent: highly reliable across repeated trials"
	case pass8 >= 0.7:
		return "good: generally reliable with occasional failures"
	case pass8 >= 0.5:
		return "moderate: some inconsistency across repeated trials"
	}
	gap := pass1 - pass8
	if gap > 0.5 {
		return "fragile: high single-trial success but low reliability"
	}
	if pass1 >= 0.7 {
		return "inconsistent: good single-trial performance but unreliable over time"
	}
	return "poor: low success rate and reliability"
}

// ReliabilityGap is pass^1 - pass^8: a large gap signals fragility.
func ReliabilityGap(pass1, pass8 float64) float64 {
	return pass1 - pass8
}
