package graph

import "sort"

// Index is a derived, read-only adjacency view over a KnowledgeGraph.
// It is rebuilt whenever a new graph is loaded and never mutated in place.
type Index struct {
	graph *KnowledgeGraph

	// adjacency maps node id to its outgoing edges, in document order.
	adjacency map[string][]Edge

	// outDegree maps node id to the number of outgoing edges.
	outDegree map[string]int

	// inDegree maps node id to the number of incoming edges.
	inDegree map[string]int

	// hubs is the ranked list of hub candidates: descending out-degree,
	// ties broken by node id ascending for determinism.
	hubs []string
}

// BuildIndex constructs an Index from a validated graph. It is a pure,
// deterministic function of the graph's node and edge set.
func BuildIndex(g *KnowledgeGraph) *Index {
	idx := &Index{
		graph:     g,
		adjacency: make(map[string][]Edge, len(g.Nodes)),
		outDegree: make(map[string]int, len(g.Nodes)),
		inDegree:  make(map[string]int, len(g.Nodes)),
	}

	for id := range g.Nodes {
		idx.outDegree[id] = 0
		idx.inDegree[id] = 0
	}
	for _, e := range g.Edges {
		idx.adjacency[e.Source] = append(idx.adjacency[e.Source], e)
		idx.outDegree[e.Source]++
		idx.inDegree[e.Target]++
	}

	idx.hubs = make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		idx.hubs = append(idx.hubs, id)
	}
	sort.Slice(idx.hubs, func(i, j int) bool {
		di, dj := idx.outDegree[idx.hubs[i]], idx.outDegree[idx.hubs[j]]
		if di != dj {
			return di > dj
		}
		return idx.hubs[i] < idx.hubs[j]
	})

	return idx
}

// Graph returns the underlying knowledge graph.
func (idx *Index) Graph() *KnowledgeGraph {
	return idx.graph
}

// Has reports whether the node id exists in the index.
func (idx *Index) Has(id string) bool {
	_, ok := idx.graph.Nodes[id]
	return ok
}

// Outgoing returns the outgoing edges of a node, in document order.
// The returned slice must not be modified.
func (idx *Index) Outgoing(id string) []Edge {
	return idx.adjacency[id]
}

// OutDegree returns the number of outgoing edges of a node.
func (idx *Index) OutDegree(id string) int {
	return idx.outDegree[id]
}

// InDegree returns the number of incoming edges of a node.
func (idx *Index) InDegree(id string) int {
	return idx.inDegree[id]
}

// HubNodes returns the topK node ids ranked by descending out-degree, ties
// broken by ascending id. Used to seed exploration when no explicit source
// concept is given or the requested pair is disconnected.
func (idx *Index) HubNodes(topK int) []string {
	if topK <= 0 || topK > len(idx.hubs) {
		topK = len(idx.hubs)
	}
	out := make([]string, topK)
	copy(out, idx.hubs[:topK])
	return out
}
