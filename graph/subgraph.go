package graph

import "sort"

// Subgraph is a bounded subset of nodes and edges extracted around one or
// more paths between two concepts. It is the graph context handed to the
// reasoning stages.
type Subgraph struct {
	// Nodes maps node id to node for every node touched by the paths.
	Nodes map[string]Node `json:"nodes"`

	// Edges lists every distinct edge traversed by the paths.
	Edges []Edge `json:"edges"`

	// Paths preserves the ranked paths the subgraph was built from.
	Paths []Path `json:"paths"`
}

// FromPaths builds a Subgraph from ranked paths over the given graph.
// Nodes and edges are deduplicated; edge order is deterministic.
func FromPaths(g *KnowledgeGraph, paths []Path) *Subgraph {
	sub := &Subgraph{
		Nodes: make(map[string]Node),
		Paths: paths,
	}

	type edgeKey struct {
		source, target, relation string
	}
	seen := make(map[edgeKey]struct{})

	for _, p := range paths {
		for _, id := range p.Nodes {
			if n, ok := g.Nodes[id]; ok {
				sub.Nodes[id] = n
			}
		}
		for _, e := range p.Edges {
			k := edgeKey{e.Source, e.Target, e.Relation}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			sub.Edges = append(sub.Edges, e)
		}
	}

	sort.Slice(sub.Edges, func(i, j int) bool {
		a, b := sub.Edges[i], sub.Edges[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		return a.Relation < b.Relation
	})

	return sub
}

// NodeIDs returns the subgraph's node ids in ascending order.
func (s *Subgraph) NodeIDs() []string {
	ids := make([]string, 0, len(s.Nodes))
	for id := range s.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsEmpty reports whether the subgraph carries no nodes.
func (s *Subgraph) IsEmpty() bool {
	return len(s.Nodes) == 0
}
