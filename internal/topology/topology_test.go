package topology

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arunmenon/AgentWorld-sub001/core"
)

func TestHubSpokeRoutingModes(t *testing.T) {
	agents := []string{"mod", "s1", "s2"}

	direct, err := Build(core.TopologyConfig{Type: "hub_spoke", Hub: "mod", RoutingMode: "direct_only"}, agents, 1)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"mod"}, direct.ValidRecipients("s1"))

	broadcast, err := Build(core.TopologyConfig{Type: "hub_spoke", Hub: "mod", RoutingMode: "broadcast"}, agents, 1)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"mod", "s2"}, broadcast.ValidRecipients("s1"))

	multiHop, err := Build(core.TopologyConfig{Type: "hub_spoke", Hub: "mod", RoutingMode: "multi_hop"}, agents, 1)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"mod", "s2"}, multiHop.ValidRecipients("s1"))
}

func TestMeshEdgeCount(t *testing.T) {
	agents := []string{"a", "b", "c", "d"}
	g, err := Build(core.TopologyConfig{Type: "mesh"}, agents, 1)
	require.NoError(t, err)
	require.Len(t, g.Edges(), 6) // n(n-1)/2 undirected
}

func TestSyncNodesKeepsNodeSetEqualToAgentSet(t *testing.T) {
	g, err := Build(core.TopologyConfig{Type: "mesh"}, []string{"a", "b", "c"}, 1)
	require.NoError(t, err)

	g.SyncNodes([]string{"a", "b", "d"})
	require.ElementsMatch(t, []string{"a", "b", "d"}, g.Nodes())
}

func TestHierarchicalFitsAllAgentsByDefault(t *testing.T) {
	// root + 2 + 4 = 7 nodes fits exactly in a branching=2, height=2 tree.
	agents := []string{"root", "c1", "c2", "c3", "c4", "c5", "c6"}
	g, err := Build(core.TopologyConfig{Type: "hierarchical", Branching: 2}, agents, 1)
	require.NoError(t, err)
	require.ElementsMatch(t, agents, g.Nodes())
	require.Equal(t, []string{"c1", "c2"}, g.Neighbors("root"))

	// branching=1 degenerates to a linear chain that also fits everyone.
	g2, err := Build(core.TopologyConfig{Type: "hierarchical", Branching: 1}, agents, 1)
	require.NoError(t, err)
	require.ElementsMatch(t, agents, g2.Nodes())
}

func TestHierarchicalHeightSizesTreeToFit(t *testing.T) {
	require.Equal(t, 0, hierarchicalHeight(1, 2))
	require.Equal(t, 1, hierarchicalHeight(3, 2))
	require.Equal(t, 2, hierarchicalHeight(7, 2))
	require.Equal(t, 2, hierarchicalHeight(6, 2)) // 6 < 7 but still needs height 2
	require.Equal(t, 5, hierarchicalHeight(6, 1)) // linear chain, n-1
}

// buildHierarchical sizes the tree to fit every agent, so its onOverflow
// "drop"/"attach_root" branch is never reached. This test does not call the
// builder: it lays out by hand the edges "attach_root" adds (each extra agent
// linked straight to the root) and checks that layout keeps every agent.
func TestAttachRootLayoutKeepsEveryAgentLinkedToRoot(t *testing.T) {
	g := New(false, RoutingDirectOnly)
	agents := []string{"root", "c1", "c2", "c3", "c4"}
	g.AddNode(agents[0])
	g.AddEdge(agents[0], agents[1], 1)
	// Link the remaining agents to the root, as the attach_root branch does.
	for _, extra := range agents[2:] {
		g.AddEdge(agents[0], extra, 1)
	}
	require.ElementsMatch(t, agents, g.Nodes())
	require.ElementsMatch(t, []string{"c1", "c2", "c3", "c4"}, g.Neighbors("root"))
}

func TestCustomTopologyUsesGivenEdges(t *testing.T) {
	agents := []string{"a", "b", "c"}
	g, err := Build(core.TopologyConfig{
		Type: "custom",
		Edges: []core.TopologyEdgeIn{
			{From: "a", To: "b", Weight: 2},
		},
	}, agents, 1)
	require.NoError(t, err)
	require.True(t, g.HasEdge("a", "b"))
	require.Len(t, g.Nodes(), 3)
}

func TestMetricsOnMesh(t *testing.T) {
	g, err := Build(core.TopologyConfig{Type: "mesh"}, []string{"a", "b", "c"}, 1)
	require.NoError(t, err)
	m := g.Metrics()
	require.Equal(t, 3, m.NodeCount)
	require.Equal(t, 3, m.EdgeCount)
	require.True(t, m.Connected)
	require.Equal(t, 1, m.Diameter)
	require.InDelta(t, 1.0, m.ClusteringCoeff, 1e-9)
}

func TestDegreeCentralityOnHubSpoke(t *testing.T) {
	g, err := Build(core.TopologyConfig{Type: "hub_spoke", Hub: "mod"}, []string{"mod", "s1", "s2"}, 1)
	require.NoError(t, err)
	scores, ok := g.Centrality(CentralityDegree)
	require.True(t, ok)
	require.Greater(t, scores["mod"], scores["s1"])
}

func TestScaleFreeIsDeterministic(t *testing.T) {
	agents := []string{"a", "b", "c", "d", "e", "f"}
	g1, err := Build(core.TopologyConfig{Type: "scale_free", M: 2}, agents, 42)
	require.NoError(t, err)
	g2, err := Build(core.TopologyConfig{Type: "scale_free", M: 2}, agents, 42)
	require.NoError(t, err)
	require.Equal(t, g1.Edges(), g2.Edges())
}
