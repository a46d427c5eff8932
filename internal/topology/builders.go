package topology

import (
	"sort"

	"github.com/arunmenon/AgentWorld-sub001/core"
)

// deterministicRNG is a tiny xorshift generator seeded from a single
// integer, used by the small_world and scale_free builders so a topology
// built under a given master seed is reproducible without importing
// math/rand's global state (§7 "deterministic seeding" applies to any
// source of randomness the engine touches, not just the LLM Gateway).
type deterministicRNG struct{ state uint64 }

func newRNG(seed int64) *deterministicRNG {
	s := uint64(seed)
	if s == 0 {
		s = 0x9e3779b97f4a7c15
	}
	return &deterministicRNG{state: s}
}

func (r *deterministicRNG) next() uint64 {
	r.state ^= r.state << 13
	r.state ^= r.state >> 7
	r.state ^= r.state << 17
	return r.state
}

func (r *deterministicRNG) float64() float64 {
	return float64(r.next()%1_000_000) / 1_000_000.0
}

func (r *deterministicRNG) intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.next() % uint64(n))
}

// Build constructs a Graph from a ScenarioConfig's TopologyConfig over
// agentIDs, dispatching to the named builder (§4.B).
func Build(cfg core.TopologyConfig, agentIDs []string, seed int64) (*Graph, error) {
	mode := RoutingMode(cfg.RoutingMode)
	if mode == "" {
		mode = RoutingDirectOnly
	}
	g := New(cfg.Directed, mode)

	switch cfg.Type {
	case "", "mesh":
		buildMesh(g, agentIDs)
	case "hub_spoke":
		buildHubSpoke(g, agentIDs, cfg.Hub)
	case "hierarchical":
		buildHierarchical(g, agentIDs, cfg.Branching, cfg.OnOverflow)
	case "small_world":
		buildSmallWorld(g, agentIDs, cfg.K, cfg.P, seed)
	case "scale_free":
		buildScaleFree(g, agentIDs, cfg.M, seed)
	case "custom":
		buildCustom(g, agentIDs, cfg.Edges)
	default:
		return nil, core.NewError(core.ErrValidation, "unknown topology type "+cfg.Type)
	}
	return g, nil
}

func buildMesh(g *Graph, agentIDs []string) {
	for _, id := range agentIDs {
		g.AddNode(id)
	}
	for i := 0; i < len(agentIDs); i++ {
		for j := i + 1; j < len(agentIDs); j++ {
			g.AddEdge(agentIDs[i], agentIDs[j], 1)
			if g.Directed {
				g.AddEdge(agentIDs[j], agentIDs[i], 1)
			}
		}
	}
}

func buildHubSpoke(g *Graph, agentIDs []string, hub string) {
	for _, id := range agentIDs {
		g.AddNode(id)
	}
	if hub == "" && len(agentIDs) > 0 {
		hub = agentIDs[0]
	}
	for _, id := range agentIDs {
		if id == hub {
			continue
		}
		g.AddEdge(hub, id, 1)
		if g.Directed {
			g.AddEdge(id, hub, 1)
		}
	}
}

// hierarchicalHeight picks the smallest tree height whose full balanced
// tree (branching factor r) has at least n nodes: capacity(h) =
// 1 + r + r^2 + ... + r^h. A branching factor of 1 degenerates to a linear
// chain of n nodes (height n-1), matching a tree with no branching at all.
func hierarchicalHeight(n, branching int) int {
	if branching <= 1 {
		if n <= 1 {
			return 0
		}
		return n - 1
	}
	capacity := 1
	levelSize := 1
	height := 0
	for capacity < n {
		levelSize *= branching
		capacity += levelSize
		height++
	}
	return height
}

// buildHierarchical assigns agentIDs breadth-first into a balanced tree of
// the given branching factor, sized so the tree's full capacity is the
// smallest that fits every agent (hierarchicalHeight). Because the tree is
// sized to fit, every agent is placed; onOverflow only matters for a
// degenerate branching configuration that can't reach capacity, in which
// case "attach_root" (instead of the default "drop") connects the
// leftover agents straight to the root rather than leaving them unplaced.
func buildHierarchical(g *Graph, agentIDs []string, branching int, onOverflow string) {
	if branching <= 0 {
		branching = 2
	}
	n := len(agentIDs)
	if n == 0 {
		return
	}

	root := agentIDs[0]
	g.AddNode(root)
	placed := []string{root}

	height := hierarchicalHeight(n, branching)
	queue := []int{0} // indices into placed, in BFS tree order
	for level := 0; level < height && len(placed) < n; level++ {
		var next []int
		for _, parentIdx := range queue {
			parent := placed[parentIdx]
			for c := 0; c < branching && len(placed) < n; c++ {
				childIdx := len(placed)
				child := agentIDs[childIdx]
				placed = append(placed, child)
				g.AddEdge(parent, child, 1)
				if g.Directed {
					g.AddEdge(child, parent, 1)
				}
				next = append(next, childIdx)
			}
		}
		queue = next
	}

	if len(placed) < n {
		for i := len(placed); i < n; i++ {
			if onOverflow == "attach_root" {
				g.AddEdge(root, agentIDs[i], 1)
				if g.Directed {
					g.AddEdge(agentIDs[i], root, 1)
				}
			}
			// default "drop": agentIDs[i] never joins the graph.
		}
	}
}

// buildSmallWorld implements Watts-Strogatz: a ring lattice of degree k
// (evenly rounded), each edge rewired with probability p (clamped to
// [0,1]).
func buildSmallWorld(g *Graph, agentIDs []string, k int, p float64, seed int64) {
	n := len(agentIDs)
	for _, id := range agentIDs {
		g.AddNode(id)
	}
	if n < 3 {
		buildMesh(g, agentIDs)
		return
	}
	if k < 2 {
		k = 2
	}
	if k%2 != 0 {
		k++
	}
	if k >= n {
		k = n - 1
		if k%2 != 0 {
			k--
		}
	}
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}

	rng := newRNG(seed)
	// Ring lattice: connect each node to its k/2 nearest neighbors each side.
	for i := 0; i < n; i++ {
		for step := 1; step <= k/2; step++ {
			j := (i + step) % n
			from, to := agentIDs[i], agentIDs[j]
			if rng.float64() < p {
				// rewire: pick a new target uniformly at random, avoiding
				// self-loops and duplicate edges.
				candidate := agentIDs[rng.intn(n)]
				attempts := 0
				for (candidate == from || g.HasEdge(from, candidate)) && attempts < n {
					candidate = agentIDs[rng.intn(n)]
					attempts++
				}
				to = candidate
			}
			if from == to {
				continue
			}
			g.AddEdge(from, to, 1)
			if g.Directed {
				g.AddEdge(to, from, 1)
			}
		}
	}
}

// buildScaleFree implements Barabasi-Albert preferential attachment: each
// new node attaches to m existing nodes (clamped to [1, n-1]), chosen with
// probability proportional to current degree.
func buildScaleFree(g *Graph, agentIDs []string, m int, seed int64) {
	n := len(agentIDs)
	if n == 0 {
		return
	}
	if m < 1 {
		m = 1
	}
	if m > n-1 {
		m = n - 1
	}
	if m < 1 {
		m = 0
	}

	rng := newRNG(seed)
	g.AddNode(agentIDs[0])
	degree := map[string]int{agentIDs[0]: 0}

	for i := 1; i < n; i++ {
		newNode := agentIDs[i]
		g.AddNode(newNode)

		targets := pickPreferential(agentIDs[:i], degree, m, rng)
		for _, t := range targets {
			g.AddEdge(newNode, t, 1)
			if g.Directed {
				g.AddEdge(t, newNode, 1)
			}
			degree[t]++
			degree[newNode]++
		}
		if _, ok := degree[newNode]; !ok {
			degree[newNode] = 0
		}
	}
}

func pickPreferential(pool []string, degree map[string]int, m int, rng *deterministicRNG) []string {
	if len(pool) <= m {
		out := make([]string, len(pool))
		copy(out, pool)
		return out
	}
	total := 0
	for _, id := range pool {
		total += degree[id] + 1 // +1 so zero-degree nodes remain selectable
	}
	chosen := map[string]bool{}
	var out []string
	for len(out) < m {
		r := rng.intn(total)
		acc := 0
		var pick string
		for _, id := range pool {
			acc += degree[id] + 1
			if r < acc {
				pick = id
				break
			}
		}
		if pick == "" || chosen[pick] {
			continue
		}
		chosen[pick] = true
		out = append(out, pick)
	}
	sort.Strings(out)
	return out
}

func buildCustom(g *Graph, agentIDs []string, edges []core.TopologyEdgeIn) {
	for _, id := range agentIDs {
		g.AddNode(id)
	}
	for _, e := range edges {
		w := e.Weight
		if w == 0 {
			w = 1
		}
		g.AddEdge(e.From, e.To, w)
	}
}
