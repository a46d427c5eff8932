package topology

import "math"

// CentralityKind selects which centrality variant to compute.
type CentralityKind string

const (
	CentralityDegree      CentralityKind = "degree"
	CentralityBetweenness CentralityKind = "betweenness"
	CentralityCloseness   CentralityKind = "closeness"
	CentralityEigenvector CentralityKind = "eigenvector"
)

// Centrality computes one centrality variant per node. Eigenvector
// centrality that fails to converge within the iteration budget reports as
// absent (per §4.B) rather than returning a nonsensical value; in that case
// the returned map omits the affected nodes and ok is false.
func (g *Graph) Centrality(kind CentralityKind) (scores map[string]float64, ok bool) {
	switch kind {
	case CentralityDegree:
		return g.degreeCentrality(), true
	case CentralityBetweenness:
		return g.betweennessCentrality(), true
	case CentralityCloseness:
		return g.closenessCentrality(), true
	case CentralityEigenvector:
		return g.eigenvectorCentrality()
	default:
		return nil, false
	}
}

func (g *Graph) degreeCentrality() map[string]float64 {
	nodes := g.Nodes()
	n := len(nodes)
	out := make(map[string]float64, n)
	denom := float64(n - 1)
	for _, id := range nodes {
		deg := len(g.Neighbors(id))
		if denom > 0 {
			out[id] = float64(deg) / denom
		} else {
			out[id] = 0
		}
	}
	return out
}

// betweennessCentrality uses unweighted BFS shortest-path counting
// (Brandes-style accumulation, simplified for small agent-count graphs).
func (g *Graph) betweennessCentrality() map[string]float64 {
	nodes := g.Nodes()
	scores := make(map[string]float64, len(nodes))
	for _, id := range nodes {
		scores[id] = 0
	}

	for _, s := range nodes {
		stack, preds, sigma, dist := bfsForBetweenness(g, nodes, s)
		delta := make(map[string]float64, len(nodes))
		for len(stack) > 0 {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, v := range preds[w] {
				if sigma[w] == 0 {
					continue
				}
				delta[v] += (sigma[v] / sigma[w]) * (1 + delta[w])
			}
			if w != s {
				scores[w] += delta[w]
			}
		}
		_ = dist
	}

	if !g.Directed {
		for id := range scores {
			scores[id] /= 2
		}
	}
	return scores
}

func bfsForBetweenness(g *Graph, nodes []string, s string) (stack []string, preds map[string][]string, sigma map[string]float64, dist map[string]int) {
	preds = make(map[string][]string, len(nodes))
	sigma = make(map[string]float64, len(nodes))
	dist = make(map[string]int, len(nodes))
	for _, id := range nodes {
		sigma[id] = 0
		dist[id] = -1
	}
	sigma[s] = 1
	dist[s] = 0

	queue := []string{s}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		stack = append(stack, v)
		for w := range g.out[v] {
			if dist[w] < 0 {
				dist[w] = dist[v] + 1
				queue = append(queue, w)
			}
			if dist[w] == dist[v]+1 {
				sigma[w] += sigma[v]
				preds[w] = append(preds[w], v)
			}
		}
	}
	return stack, preds, sigma, dist
}

func (g *Graph) closenessCentrality() map[string]float64 {
	nodes := g.Nodes()
	out := make(map[string]float64, len(nodes))
	for _, id := range nodes {
		total := 0
		reached := 0
		for _, other := range nodes {
			if other == id {
				continue
			}
			path := g.ShortestPath(id, other)
			if path == nil {
				continue
			}
			total += len(path) - 1
			reached++
		}
		if total == 0 || reached == 0 {
			out[id] = 0
			continue
		}
		out[id] = float64(reached) / float64(total)
	}
	return out
}

// eigenvectorCentrality uses power iteration; it reports !ok when the
// iteration fails to converge (e.g. a graph with no edges, where the
// principal eigenvector is degenerate).
func (g *Graph) eigenvectorCentrality() (map[string]float64, bool) {
	nodes := g.Nodes()
	n := len(nodes)
	if n == 0 {
		return map[string]float64{}, true
	}
	idx := make(map[string]int, n)
	for i, id := range nodes {
		idx[id] = i
	}

	x := make([]float64, n)
	for i := range x {
		x[i] = 1.0 / float64(n)
	}

	const maxIter = 200
	const tol = 1e-9
	converged := false
	for iter := 0; iter < maxIter; iter++ {
		next := make([]float64, n)
		for _, id := range nodes {
			i := idx[id]
			for neighbor := range g.out[id] {
				next[idx[neighbor]] += x[i]
			}
		}
		norm := 0.0
		for _, v := range next {
			norm += v * v
		}
		if norm == 0 {
			return nil, false
		}
		norm = math.Sqrt(norm)
		delta := 0.0
		for i := range next {
			next[i] /= norm
			delta += absf(next[i] - x[i])
		}
		x = next
		if delta < tol {
			converged = true
			break
		}
	}
	if !converged {
		return nil, false
	}

	out := make(map[string]float64, n)
	for _, id := range nodes {
		out[id] = x[idx[id]]
	}
	return out, true
}

func absf(v float64) float64 {
	return math.Abs(v)
}
