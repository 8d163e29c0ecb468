package stage

import (
	"fmt"
	"strings"

	"github.com/hypatia-ai/hypatia/graph"
)

// renderSubgraph serializes a subgraph into the compact textual form the
// reasoning prompts embed. Output is deterministic: nodes sort by id and
// edges are already ordered by the subgraph builder.
func renderSubgraph(sub *graph.Subgraph) string {
	var b strings.Builder

	b.WriteString("Nodes:\n")
	for _, id := range sub.NodeIDs() {
		n := sub.Nodes[id]
		fmt.Fprintf(&b, "- %s (%s, %q, confidence %.2f)\n", n.ID, n.Type, n.Label, n.Confidence)
	}

	b.WriteString("Edges:\n")
	for _, e := range sub.Edges {
		fmt.Fprintf(&b, "- %s -[%s %.2f]-> %s\n", e.Source, e.Relation, e.Confidence, e.Target)
	}

	return b.String()
}

// plannerOutput fetches the Planner's payload from state.
func plannerOutput(state State) (*PlannerOutput, bool) {
	v, ok := state.Get(NamePlanner.String())
	if !ok {
		return nil, false
	}
	out, ok := v.(*PlannerOutput)
	return out, ok
}

// ontologyOutput fetches the Ontologist's payload from state.
func ontologyOutput(state State) (*OntologyOutput, bool) {
	v, ok := state.Get(NameOntologist.String())
	if !ok {
		return nil, false
	}
	out, ok := v.(*OntologyOutput)
	return out, ok
}

// hypothesisFromState fetches the most recent hypothesis: the Expander's
// elaboration when present, otherwise the Scientist's original.
func hypothesisFromState(state State) (*Hypothesis, bool) {
	for _, key := range []string{NameExpander.String(), NameScientist.String()} {
		if v, ok := state.Get(key); ok {
			if h, ok := v.(*Hypothesis); ok {
				return h, true
			}
		}
	}
	return nil, false
}

// guidanceFromState fetches revision guidance if a revise pass is underway.
func guidanceFromState(state State) (*RevisionGuidance, bool) {
	v, ok := state.Get(KeyGuidance)
	if !ok {
		return nil, false
	}
	g, ok := v.(*RevisionGuidance)
	return g, ok
}
