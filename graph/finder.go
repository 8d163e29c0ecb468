package graph

import (
	"fmt"
	"sort"

	"github.com/hypatia-ai/hypatia"
)

// Strategy selects how candidate paths are ranked.
type Strategy string

const (
	// StrategyShortest ranks by fewest edges; ties broken by higher
	// average strength.
	StrategyShortest Strategy = "shortest"

	// StrategyStrongest ranks by highest average strength; ties broken by
	// fewer edges.
	StrategyStrongest Strategy = "strongest"

	// StrategyBalanced ranks by a weighted combination of strength and
	// brevity. The weight is configurable and defaults to equal.
	StrategyBalanced Strategy = "balanced"
)

// String returns the string representation of the strategy.
func (s Strategy) String() string {
	return string(s)
}

// IsValid checks if the strategy is a recognized value.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyShortest, StrategyStrongest, StrategyBalanced:
		return true
	default:
		return false
	}
}

// ParseStrategy parses a string into a Strategy value.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "shortest":
		return StrategyShortest, nil
	case "strongest":
		return StrategyStrongest, nil
	case "balanced":
		return StrategyBalanced, nil
	default:
		return "", fmt.Errorf("invalid path strategy: %s", s)
	}
}

// Defaults for path search bounds.
const (
	// DefaultMaxPaths is the default number of paths returned.
	DefaultMaxPaths = 3

	// DefaultMaxDepth bounds the number of edges a candidate path may
	// traverse during enumeration.
	DefaultMaxDepth = 8

	// DefaultBalancedWeight is the default strength weight for
	// StrategyBalanced. The remainder weights brevity.
	DefaultBalancedWeight = 0.5

	// maxEnumerated caps the number of complete candidate paths collected
	// before ranking, keeping dense graphs bounded.
	maxEnumerated = 4096
)

// FinderOption is a functional option for configuring a path search.
type FinderOption func(*finderConfig)

type finderConfig struct {
	strategy       Strategy
	maxPaths       int
	maxDepth       int
	balancedWeight float64
}

// WithStrategy sets the ranking strategy. Default: StrategyShortest.
func WithStrategy(s Strategy) FinderOption {
	return func(c *finderConfig) {
		c.strategy = s
	}
}

// WithMaxPaths limits the number of paths returned. Default: DefaultMaxPaths.
func WithMaxPaths(n int) FinderOption {
	return func(c *finderConfig) {
		c.maxPaths = n
	}
}

// WithMaxDepth bounds the traversal depth in edges. Default: DefaultMaxDepth.
func WithMaxDepth(n int) FinderOption {
	return func(c *finderConfig) {
		c.maxDepth = n
	}
}

// WithBalancedWeight sets the strength weight for StrategyBalanced, in [0,1].
// The remaining weight favors fewer hops. Default: DefaultBalancedWeight.
func WithBalancedWeight(w float64) FinderOption {
	return func(c *finderConfig) {
		c.balancedWeight = w
	}
}

// Finder computes node-to-node paths over an Index.
// A Finder is read-only over its index and safe for concurrent use.
type Finder struct {
	index *Index
}

// NewFinder creates a Finder over the given index.
func NewFinder(index *Index) *Finder {
	return &Finder{index: index}
}

// FindPaths returns at most maxPaths distinct acyclic paths from sourceID to
// targetID, ordered by the strategy's ranking. Traversal is a breadth-first
// expansion of path prefixes over directed adjacency, tracking visited nodes
// per path so no returned path contains a repeated node.
//
// A disconnected pair returns an empty slice and no error. An unknown source
// or target id returns an error wrapping hypatia.ErrNodeNotFound.
func (f *Finder) FindPaths(sourceID, targetID string, opts ...FinderOption) ([]Path, error) {
	const op = "graph.Finder.FindPaths"

	cfg := finderConfig{
		strategy:       StrategyShortest,
		maxPaths:       DefaultMaxPaths,
		maxDepth:       DefaultMaxDepth,
		balancedWeight: DefaultBalancedWeight,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxPaths <= 0 {
		cfg.maxPaths = DefaultMaxPaths
	}
	if cfg.maxDepth <= 0 {
		cfg.maxDepth = DefaultMaxDepth
	}
	if !cfg.strategy.IsValid() {
		return nil, hypatia.NewValidationError(op, fmt.Errorf("invalid strategy %q", cfg.strategy))
	}

	if !f.index.Has(sourceID) {
		return nil, hypatia.NewNotFoundError(op,
			fmt.Errorf("%w: source %q", hypatia.ErrNodeNotFound, sourceID))
	}
	if !f.index.Has(targetID) {
		return nil, hypatia.NewNotFoundError(op,
			fmt.Errorf("%w: target %q", hypatia.ErrNodeNotFound, targetID))
	}

	candidates := f.enumerate(sourceID, targetID, cfg.maxDepth)
	rank(candidates, cfg.strategy, cfg.balancedWeight)

	if len(candidates) > cfg.maxPaths {
		candidates = candidates[:cfg.maxPaths]
	}
	return candidates, nil
}

// enumerate collects complete simple paths from source to target via
// breadth-first expansion, so shorter paths are always discovered first.
func (f *Finder) enumerate(sourceID, targetID string, maxDepth int) []Path {
	type prefix struct {
		nodes   []string
		edges   []Edge
		visited map[string]struct{}
	}

	var found []Path
	queue := []prefix{{
		nodes:   []string{sourceID},
		visited: map[string]struct{}{sourceID: {}},
	}}

	for len(queue) > 0 && len(found) < maxEnumerated {
		cur := queue[0]
		queue = queue[1:]

		last := cur.nodes[len(cur.nodes)-1]
		if last == targetID {
			p := Path{
				Nodes:           append([]string(nil), cur.nodes...),
				Edges:           append([]Edge(nil), cur.edges...),
				AverageStrength: averageStrength(cur.edges),
			}
			found = append(found, p)
			continue
		}
		if len(cur.edges) >= maxDepth {
			continue
		}

		for _, e := range f.index.Outgoing(last) {
			if _, seen := cur.visited[e.Target]; seen {
				continue
			}
			next := prefix{
				nodes:   append(append([]string(nil), cur.nodes...), e.Target),
				edges:   append(append([]Edge(nil), cur.edges...), e),
				visited: make(map[string]struct{}, len(cur.visited)+1),
			}
			for id := range cur.visited {
				next.visited[id] = struct{}{}
			}
			next.visited[e.Target] = struct{}{}
			queue = append(queue, next)
		}
	}

	return found
}

// rank sorts candidates in place according to the strategy. All comparators
// fall back to the lexicographic node sequence so ranking is deterministic.
func rank(paths []Path, strategy Strategy, balancedWeight float64) {
	sort.SliceStable(paths, func(i, j int) bool {
		a, b := paths[i], paths[j]
		switch strategy {
		case StrategyStrongest:
			if a.AverageStrength != b.AverageStrength {
				return a.AverageStrength > b.AverageStrength
			}
			if a.Hops() != b.Hops() {
				return a.Hops() < b.Hops()
			}
		case StrategyBalanced:
			sa := balancedScore(a, balancedWeight)
			sb := balancedScore(b, balancedWeight)
			if sa != sb {
				return sa > sb
			}
		default: // StrategyShortest
			if a.Hops() != b.Hops() {
				return a.Hops() < b.Hops()
			}
			if a.AverageStrength != b.AverageStrength {
				return a.AverageStrength > b.AverageStrength
			}
		}
		return a.key() < b.key()
	})
}

// balancedScore combines average strength with brevity. Hops are scored as
// 1/hops so that a direct edge has brevity 1.0 and longer paths decay.
func balancedScore(p Path, strengthWeight float64) float64 {
	brevity := 0.0
	if p.Hops() > 0 {
		brevity = 1 / float64(p.Hops())
	}
	return strengthWeight*p.AverageStrength + (1-strengthWeight)*brevity
}
