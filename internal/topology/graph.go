// Package topology builds and queries the agent communication graph (§4.B):
// construction from the recognized structures, routing-mode-aware recipient
// resolution, and graph/centrality metrics.
package topology

import (
	"sort"
	"sync"
)

// RoutingMode governs which pairs of agents canSend considers reachable.
type RoutingMode string

const (
	RoutingDirectOnly RoutingMode = "direct_only"
	RoutingMultiHop   RoutingMode = "multi_hop"
	RoutingBroadcast  RoutingMode = "broadcast"
)

// Edge is one labeled connection in the graph.
type Edge struct {
	From   string
	To     string
	Weight float64
}

// Graph is a labeled graph over agent ids (§3 Topology Graph). Directed
// graphs store only the authored direction; undirected graphs mirror every
// edge into both adjacency maps at insertion time.
type Graph struct {
	mu sync.RWMutex

	Directed    bool
	RoutingMode RoutingMode

	nodes map[string]bool
	out   map[string]map[string]float64
	in    map[string]map[string]float64
}

// New builds an empty graph.
func New(directed bool, mode RoutingMode) *Graph {
	return &Graph{
		Directed:    directed,
		RoutingMode: mode,
		nodes:       map[string]bool{},
		out:         map[string]map[string]float64{},
		in:          map[string]map[string]float64{},
	}
}

// AddNode adds an isolated node if not already present.
func (g *Graph) AddNode(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addNodeLocked(id)
}

func (g *Graph) addNodeLocked(id string) {
	if g.nodes[id] {
		return
	}
	g.nodes[id] = true
	g.out[id] = map[string]float64{}
	g.in[id] = map[string]float64{}
}

// RemoveNode deletes a node and every edge touching it.
func (g *Graph) RemoveNode(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.nodes[id] {
		return
	}
	for other := range g.out[id] {
		delete(g.in[other], id)
	}
	for other := range g.in[id] {
		delete(g.out[other], id)
	}
	delete(g.out, id)
	delete(g.in, id)
	delete(g.nodes, id)
}

// AddEdge adds a weighted edge. Undirected graphs add the reverse edge too.
func (g *Graph) AddEdge(from, to string, weight float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addNodeLocked(from)
	g.addNodeLocked(to)
	g.out[from][to] = weight
	g.in[to][from] = weight
	if !g.Directed {
		g.out[to][from] = weight
		g.in[from][to] = weight
	}
}

// SyncNodes makes the node set exactly equal agentIDs, adding missing nodes
// and removing any node not in the set (§3 "node set equals the agent set
// at all times").
func (g *Graph) SyncNodes(agentIDs []string) {
	want := make(map[string]bool, len(agentIDs))
	for _, id := range agentIDs {
		want[id] = true
	}
	g.mu.Lock()
	toRemove := make([]string, 0)
	for id := range g.nodes {
		if !want[id] {
			toRemove = append(toRemove, id)
		}
	}
	g.mu.Unlock()
	for _, id := range toRemove {
		g.RemoveNode(id)
	}
	for id := range want {
		g.AddNode(id)
	}
}

// Nodes returns every node id, sorted for deterministic iteration.
func (g *Graph) Nodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Edges returns every edge. For undirected graphs each pair is returned once.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var edges []Edge
	seen := map[[2]string]bool{}
	for from, tos := range g.out {
		for to, w := range tos {
			if !g.Directed {
				key := [2]string{from, to}
				if from > to {
					key = [2]string{to, from}
				}
				if seen[key] {
					continue
				}
				seen[key] = true
			}
			edges = append(edges, Edge{From: from, To: to, Weight: w})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

// HasEdge reports whether a direct edge from→to exists.
func (g *Graph) HasEdge(from, to string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.out[from][to]
	return ok
}

// Neighbors returns the ids directly reachable from id via an outgoing edge.
func (g *Graph) Neighbors(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.out[id]))
	for n := range g.out[id] {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// CanSend reports whether src may address dst under the graph's configured
// RoutingMode (§4.B).
func (g *Graph) CanSend(src, dst string) bool {
	if src == dst {
		return false
	}
	switch g.RoutingMode {
	case RoutingBroadcast:
		g.mu.RLock()
		defer g.mu.RUnlock()
		return g.nodes[src] && g.nodes[dst]
	case RoutingMultiHop:
		return len(g.ShortestPath(src, dst)) > 0
	default: // direct_only
		return g.HasEdge(src, dst)
	}
}

// ValidRecipients returns every id src may currently address, policy-aware.
func (g *Graph) ValidRecipients(src string) []string {
	g.mu.RLock()
	nodes := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		if id != src {
			nodes = append(nodes, id)
		}
	}
	mode := g.RoutingMode
	g.mu.RUnlock()

	switch mode {
	case RoutingBroadcast:
		sort.Strings(nodes)
		return nodes
	case RoutingMultiHop:
		reachable := g.reachableFrom(src)
		delete(reachable, src)
		out := make([]string, 0, len(reachable))
		for id := range reachable {
			out = append(out, id)
		}
		sort.Strings(out)
		return out
	default:
		return g.Neighbors(src)
	}
}

// Neighborhood returns every node within hops steps of src (src excluded),
// following outgoing edges breadth-first.
func (g *Graph) Neighborhood(src string, hops int) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := map[string]int{src: 0}
	queue := []string{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		d := visited[cur]
		if d >= hops {
			continue
		}
		for next := range g.out[cur] {
			if _, seen := visited[next]; !seen {
				visited[next] = d + 1
				queue = append(queue, next)
			}
		}
	}
	out := make([]string, 0, len(visited)-1)
	for id := range visited {
		if id != src {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func (g *Graph) reachableFrom(src string) map[string]bool {
	visited := map[string]bool{src: true}
	queue := []string{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range g.out[cur] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return visited
}

// ShortestPath returns the node sequence from src to dst via unweighted BFS,
// or nil if no path exists.
func (g *Graph) ShortestPath(src, dst string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if src == dst {
		return []string{src}
	}
	prev := map[string]string{}
	visited := map[string]bool{src: true}
	queue := []string{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range g.out[cur] {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = cur
			if next == dst {
				return reconstructPath(prev, src, dst)
			}
			queue = append(queue, next)
		}
	}
	return nil
}

func reconstructPath(prev map[string]string, src, dst string) []string {
	path := []string{dst}
	cur := dst
	for cur != src {
		cur = prev[cur]
		path = append([]string{cur}, path...)
	}
	return path
}
