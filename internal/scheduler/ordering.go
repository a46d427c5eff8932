// Package scheduler implements the Step Scheduler + Controller (§4.H): it
// orders agents for a step, batches them under a concurrency bound, runs
// each batch's agents cooperatively with per-agent error handling, and
// exposes pause/resume/cancel controller signals.
package scheduler

import (
	"math/rand"
	"sort"
)

// Strategy selects how agents are ordered within a step (§4.H step 2).
type Strategy string

const (
	StrategyRoundRobin   Strategy = "round_robin"
	StrategyRandom       Strategy = "random"
	StrategyPriority     Strategy = "priority"
	StrategyTopology     Strategy = "topology"
	StrategySimultaneous Strategy = "simultaneous"
)

// TopologyView is the minimal adjacency query the topology orderer needs,
// satisfied by *topology.Graph without creating an import dependency on it.
type TopologyView interface {
	Neighbors(id string) []string
}

// OrderOptions carries the strategy-specific inputs §4.H step 2 describes.
type OrderOptions struct {
	Seed        int64
	Priorities  map[string]float64
	Topology    TopologyView
	HubID       string
	Centrality  map[string]float64
}

// Order computes the agent execution order for one step.
func Order(strategy Strategy, agentIDs []string, step int, opts OrderOptions) []string {
	if len(agentIDs) == 0 {
		return nil
	}
	switch strategy {
	case StrategyRandom:
		return orderRandom(agentIDs, step, opts.Seed)
	case StrategyPriority:
		return orderPriority(agentIDs, opts.Priorities)
	case StrategyTopology:
		return orderTopology(agentIDs, opts.Topology, opts.HubID, opts.Centrality)
	case StrategySimultaneous:
		return sortedCopy(agentIDs)
	case StrategyRoundRobin:
		fallthrough
	default:
		return orderRoundRobin(agentIDs, step)
	}
}

func sortedCopy(agentIDs []string) []string {
	out := append([]string(nil), agentIDs...)
	sort.Strings(out)
	return out
}

// orderRoundRobin sorts for a stable base order, then rotates the start
// position by step mod len so every agent eventually leads.
func orderRoundRobin(agentIDs []string, step int) []string {
	sorted := sortedCopy(agentIDs)
	rotation := step % len(sorted)
	if rotation < 0 {
		rotation += len(sorted)
	}
	return append(append([]string{}, sorted[rotation:]...), sorted[:rotation]...)
}

// orderRandom shuffles deterministically: the same (seed, step) pair always
// yields the same order, so replays of a scenario are reproducible.
func orderRandom(agentIDs []string, step int, seed int64) []string {
	shuffled := append([]string(nil), agentIDs...)
	rng := rand.New(rand.NewSource(combineSeed(seed, step)))
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled
}

func combineSeed(seed int64, step int) int64 {
	return seed*1000003 + int64(step)
}

// orderPriority sorts by descending priority, ties broken by id for a
// stable total order.
func orderPriority(agentIDs []string, priorities map[string]float64) []string {
	out := sortedCopy(agentIDs)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := priorities[out[i]], priorities[out[j]]
		if pi != pj {
			return pi > pj
		}
		return out[i] < out[j]
	})
	return out
}

// orderTopology does a BFS from the hub (or the highest-centrality node
// when no hub is given), appending any node the BFS never reached.
func orderTopology(agentIDs []string, topo TopologyView, hubID string, centrality map[string]float64) []string {
	if topo == nil {
		return orderByCentralityOrSorted(agentIDs, centrality)
	}

	inSet := make(map[string]bool, len(agentIDs))
	for _, id := range agentIDs {
		inSet[id] = true
	}

	start := hubID
	if start == "" || !inSet[start] {
		start = highestCentrality(agentIDs, centrality)
	}

	visited := make(map[string]bool, len(agentIDs))
	queue := []string{start}
	order := make([]string, 0, len(agentIDs))

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if visited[node] || !inSet[node] {
			continue
		}
		visited[node] = true
		order = append(order, node)
		for _, neighbor := range topo.Neighbors(node) {
			if !visited[neighbor] && inSet[neighbor] {
				queue = append(queue, neighbor)
			}
		}
	}

	for _, id := range sortedCopy(agentIDs) {
		if !visited[id] {
			order = append(order, id)
		}
	}
	return order
}

func orderByCentralityOrSorted(agentIDs []string, centrality map[string]float64) []string {
	out := sortedCopy(agentIDs)
	if len(centrality) == 0 {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		ci, cj := centrality[out[i]], centrality[out[j]]
		if ci != cj {
			return ci > cj
		}
		return out[i] < out[j]
	})
	return out
}

func highestCentrality(agentIDs []string, centrality map[string]float64) string {
	if len(centrality) == 0 {
		return agentIDs[0]
	}
	best := agentIDs[0]
	for _, id := range agentIDs[1:] {
		if centrality[id] > centrality[best] {
			best = id
		}
	}
	return best
}
