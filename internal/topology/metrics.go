package topology

import "sort"

// Metrics summarizes a graph's structural properties (§4.B `metrics()`).
type Metrics struct {
	NodeCount          int
	EdgeCount          int
	Density            float64
	Connected          bool
	ClusteringCoeff     float64
	Diameter           int     // -1 if undefined (graph has < 2 nodes)
	AvgPathLength      float64 // 0 if undefined
	Degree             map[string]int
	LargestComponentSz int
}

// Metrics computes the graph's structural summary. Path-based metrics
// (diameter, average path length) fall back to the largest connected
// component when the graph is disconnected, per §4.B.
func (g *Graph) Metrics() Metrics {
	nodes := g.Nodes()
	n := len(nodes)
	edges := g.Edges()
	m := len(edges)

	degree := make(map[string]int, n)
	for _, id := range nodes {
		degree[id] = len(g.Neighbors(id))
	}

	density := 0.0
	if n > 1 {
		maxEdges := float64(n * (n - 1))
		if !g.Directed {
			maxEdges /= 2
		}
		if maxEdges > 0 {
			density = float64(m) / maxEdges
		}
	}

	components := g.connectedComponents()
	largest := components[0]
	for _, c := range components[1:] {
		if len(c) > len(largest) {
			largest = c
		}
	}

	diameter, avgPath := g.pathStatsOver(largest)

	return Metrics{
		NodeCount:          n,
		EdgeCount:          m,
		Density:            density,
		Connected:          len(components) == 1,
		ClusteringCoeff:    g.averageClusteringCoefficient(),
		Diameter:           diameter,
		AvgPathLength:      avgPath,
		Degree:             degree,
		LargestComponentSz: len(largest),
	}
}

// connectedComponents returns the undirected-reachability components of the
// graph (edges treated as bidirectional for component purposes, matching
// the usual definition of "connected" regardless of RoutingMode).
func (g *Graph) connectedComponents() [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := map[string]bool{}
	var components [][]string
	for id := range g.nodes {
		if visited[id] {
			continue
		}
		var comp []string
		queue := []string{id}
		visited[id] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			comp = append(comp, cur)
			for next := range g.out[cur] {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
			for next := range g.in[cur] {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
		sort.Strings(comp)
		components = append(components, comp)
	}
	if len(components) == 0 {
		components = [][]string{{}}
	}
	return components
}

// pathStatsOver computes diameter and average shortest-path length
// restricted to the given node set (used with the largest component when
// the whole graph is disconnected).
func (g *Graph) pathStatsOver(component []string) (diameter int, avgPath float64) {
	if len(component) < 2 {
		return -1, 0
	}
	diameter = 0
	total := 0
	count := 0
	for _, src := range component {
		for _, dst := range component {
			if src == dst {
				continue
			}
			path := g.ShortestPath(src, dst)
			if path == nil {
				continue
			}
			d := len(path) - 1
			if d > diameter {
				diameter = d
			}
			total += d
			count++
		}
	}
	if count == 0 {
		return -1, 0
	}
	return diameter, float64(total) / float64(count)
}

// averageClusteringCoefficient is the mean, over every node with degree>=2,
// of (edges among its neighbors) / (possible edges among its neighbors).
func (g *Graph) averageClusteringCoefficient() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var sum float64
	var counted int
	for id := range g.nodes {
		neighbors := make([]string, 0, len(g.out[id]))
		for n := range g.out[id] {
			neighbors = append(neighbors, n)
		}
		k := len(neighbors)
		if k < 2 {
			continue
		}
		links := 0
		for i := 0; i < k; i++ {
			for j := i + 1; j < k; j++ {
				if _, ok := g.out[neighbors[i]][neighbors[j]]; ok {
					links++
				}
			}
		}
		possible := k * (k - 1) / 2
		sum += float64(links) / float64(possible)
		counted++
	}
	if counted == 0 {
		return 0
	}
	return sum / float64(counted)
}
