package graph

import (
	"fmt"
	"strings"
)

// Path is an ordered, acyclic walk from a source node to a target node,
// inclusive of both, together with the traversed edges.
type Path struct {
	// Nodes is the ordered sequence of node ids, source first, target last.
	Nodes []string `json:"nodes"`

	// Edges is the ordered list of traversed edges; len(Edges) == len(Nodes)-1.
	Edges []Edge `json:"edges"`

	// AverageStrength is the arithmetic mean of the traversed edge
	// confidences. Zero for a trivial single-node path.
	AverageStrength float64 `json:"average_strength"`
}

// Hops returns the number of edges traversed.
func (p Path) Hops() int {
	return len(p.Edges)
}

// Source returns the first node id of the path, or "" if empty.
func (p Path) Source() string {
	if len(p.Nodes) == 0 {
		return ""
	}
	return p.Nodes[0]
}

// Target returns the last node id of the path, or "" if empty.
func (p Path) Target() string {
	if len(p.Nodes) == 0 {
		return ""
	}
	return p.Nodes[len(p.Nodes)-1]
}

// String renders the path as "a -> b -> c (avg 0.70)".
func (p Path) String() string {
	return fmt.Sprintf("%s (avg %.2f)", strings.Join(p.Nodes, " -> "), p.AverageStrength)
}

// Validate checks the structural invariants of a path: node/edge counts
// line up, consecutive edges connect, and no node repeats (cycles are
// disallowed).
func (p Path) Validate() error {
	if len(p.Nodes) == 0 {
		return fmt.Errorf("path has no nodes")
	}
	if len(p.Edges) != len(p.Nodes)-1 {
		return fmt.Errorf("path has %d nodes but %d edges", len(p.Nodes), len(p.Edges))
	}

	seen := make(map[string]struct{}, len(p.Nodes))
	for _, id := range p.Nodes {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("path repeats node %q", id)
		}
		seen[id] = struct{}{}
	}

	for i, e := range p.Edges {
		if e.Source != p.Nodes[i] || e.Target != p.Nodes[i+1] {
			return fmt.Errorf("edge %d (%s->%s) does not connect %s to %s",
				i, e.Source, e.Target, p.Nodes[i], p.Nodes[i+1])
		}
	}
	return nil
}

// averageStrength computes the arithmetic mean of edge confidences.
func averageStrength(edges []Edge) float64 {
	if len(edges) == 0 {
		return 0
	}
	var sum float64
	for _, e := range edges {
		sum += e.Confidence
	}
	return sum / float64(len(edges))
}

// key returns a deterministic identity for ranking tiebreaks.
func (p Path) key() string {
	return strings.Join(p.Nodes, "\x00")
}
