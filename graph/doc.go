// Package graph provides the typed knowledge-graph model, its derived index,
// and the path-finding engine used to select relevant subgraphs between two
// concepts.
//
// # Core Types
//
//   - KnowledgeGraph: immutable in-memory graph loaded from a YAML or JSON
//     document, structurally validated at load time
//   - Index: derived read-only adjacency view with per-node degrees and a
//     ranked list of hub candidates
//   - Path: an acyclic node-to-node walk with its traversed edges and the
//     arithmetic mean of their confidences
//   - Finder: computes ranked paths between two nodes under a selectable
//     strategy (shortest, strongest, balanced)
//   - Subgraph: the bounded node/edge subset extracted around a set of paths
//
// # Loading and Searching
//
//	g, err := graph.Load("materials.yaml")
//	if err != nil {
//	    return err // wraps hypatia.ErrMalformedGraph on structural failure
//	}
//	idx := graph.BuildIndex(g)
//	paths, err := graph.NewFinder(idx).FindPaths(
//	    "silk", "energy-intensive",
//	    graph.WithStrategy(graph.StrategyStrongest),
//	    graph.WithMaxPaths(3),
//	)
//
// A disconnected pair yields an empty slice, not an error; unknown node ids
// yield an error wrapping hypatia.ErrNodeNotFound.
package graph
