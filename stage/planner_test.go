package stage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypatia-ai/hypatia/graph"
)

// plannerIndex builds an index over the given edges, deriving the node set
// from edge endpoints.
func plannerIndex(t *testing.T, edges ...graph.Edge) *graph.Index {
	t.Helper()

	nodes := make(map[string]graph.Node)
	for _, e := range edges {
		for _, id := range []string{e.Source, e.Target} {
			nodes[id] = graph.Node{ID: id, Label: id, Type: graph.NodeTypeConcept, Confidence: 1}
		}
	}
	g := &graph.KnowledgeGraph{Name: "planner-test", Nodes: nodes, Edges: edges}
	require.NoError(t, g.Validate())
	return graph.BuildIndex(g)
}

func plannerEdge(source, target string, confidence float64) graph.Edge {
	return graph.Edge{Source: source, Target: target, Relation: "relates-to", Confidence: confidence}
}

func plannerState(conceptA, conceptB string) State {
	return NewState(map[string]any{
		KeyObjective: "connect the concepts",
		KeyConceptA:  conceptA,
		KeyConceptB:  conceptB,
	})
}

func TestPlannerConnectedPair(t *testing.T) {
	idx := plannerIndex(t,
		plannerEdge("A", "B", 0.9),
		plannerEdge("B", "C", 0.7),
	)
	p, err := NewPlanner(PlannerConfig{Index: idx})
	require.NoError(t, err)

	result, err := p.Run(context.Background(), plannerState("A", "C"))
	require.NoError(t, err)
	require.False(t, result.Failed())
	require.NoError(t, result.Validate())

	out, ok := result.Output.(*PlannerOutput)
	require.True(t, ok)
	assert.False(t, out.Degraded)
	assert.Contains(t, out.Subgraph.NodeIDs(), "A")
	assert.Contains(t, out.Subgraph.NodeIDs(), "C")
	assert.InDelta(t, 0.8, result.Confidence, 1e-9)
}

func TestPlannerUnknownConceptDegrades(t *testing.T) {
	idx := plannerIndex(t,
		plannerEdge("A", "B", 0.9),
		plannerEdge("A", "C", 0.6),
	)
	p, err := NewPlanner(PlannerConfig{Index: idx})
	require.NoError(t, err)

	result, err := p.Run(context.Background(), plannerState("A", "nope"))
	require.NoError(t, err)
	require.False(t, result.Failed())

	out, ok := result.Output.(*PlannerOutput)
	require.True(t, ok)
	assert.True(t, out.Degraded)
	assert.False(t, out.Subgraph.IsEmpty())
	assert.InDelta(t, 0.4, result.Confidence, 1e-9)
}

func TestPlannerDisconnectedPairDegrades(t *testing.T) {
	// A-B and C-D form two components; A cannot reach D directly, but the
	// hub set still reaches D through C.
	idx := plannerIndex(t,
		plannerEdge("A", "B", 0.9),
		plannerEdge("C", "D", 0.8),
	)
	p, err := NewPlanner(PlannerConfig{Index: idx})
	require.NoError(t, err)

	result, err := p.Run(context.Background(), plannerState("A", "D"))
	require.NoError(t, err)
	require.False(t, result.Failed())

	out, ok := result.Output.(*PlannerOutput)
	require.True(t, ok)
	assert.True(t, out.Degraded)
	assert.Contains(t, out.Subgraph.NodeIDs(), "D")
}

func TestPlannerNoContextSoftFails(t *testing.T) {
	g := &graph.KnowledgeGraph{
		Name: "isolated",
		Nodes: map[string]graph.Node{
			"X": {ID: "X", Label: "X", Type: graph.NodeTypeConcept, Confidence: 1},
		},
	}
	require.NoError(t, g.Validate())
	p, err := NewPlanner(PlannerConfig{Index: graph.BuildIndex(g)})
	require.NoError(t, err)

	result, err := p.Run(context.Background(), plannerState("missing-a", "missing-b"))
	require.NoError(t, err)
	assert.True(t, result.Failed())
	assert.Zero(t, result.Confidence)
	assert.Nil(t, result.Output)
}

func TestPlannerMissingConceptsIsContractViolation(t *testing.T) {
	idx := plannerIndex(t, plannerEdge("A", "B", 0.9))
	p, err := NewPlanner(PlannerConfig{Index: idx})
	require.NoError(t, err)

	_, err = p.Run(context.Background(), NewState(map[string]any{KeyObjective: "x"}))
	assert.Error(t, err)
}

func TestNewPlannerRequiresIndex(t *testing.T) {
	_, err := NewPlanner(PlannerConfig{})
	assert.Error(t, err)
}
