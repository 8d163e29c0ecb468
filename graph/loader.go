package graph

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/hypatia-ai/hypatia"
)

// document is the on-disk shape of a graph source. Nodes are a list in the
// document and become a map keyed by id after validation.
type document struct {
	Name                string   `yaml:"name"`
	MainObjective       string   `yaml:"main_objective"`
	SecondaryObjectives []string `yaml:"secondary_objectives"`
	Version             string   `yaml:"version"`
	Nodes               []Node   `yaml:"nodes"`
	Edges               []Edge   `yaml:"edges"`
}

// Load reads and validates a graph document from the given path.
// Both YAML and JSON documents are accepted (JSON parses as a YAML subset).
// Returns an error wrapping hypatia.ErrMalformedGraph if required fields are
// absent, node ids collide, or an edge references an unknown node.
func Load(path string) (*KnowledgeGraph, error) {
	const op = "graph.Load"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, hypatia.NewNotFoundError(op, fmt.Errorf("reading graph source %q: %w", path, err))
	}

	g, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Parse decodes and validates a graph document from raw bytes.
func Parse(data []byte) (*KnowledgeGraph, error) {
	const op = "graph.Parse"

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, hypatia.NewValidationError(op,
			fmt.Errorf("%w: decoding document: %v", hypatia.ErrMalformedGraph, err))
	}

	nodes := make(map[string]Node, len(doc.Nodes))
	for i, n := range doc.Nodes {
		if n.ID == "" {
			return nil, hypatia.NewValidationError(op,
				fmt.Errorf("%w: node %d has no id", hypatia.ErrMalformedGraph, i))
		}
		if _, dup := nodes[n.ID]; dup {
			return nil, hypatia.NewValidationError(op,
				fmt.Errorf("%w: duplicate node id %q", hypatia.ErrMalformedGraph, n.ID))
		}
		nodes[n.ID] = n
	}

	g := &KnowledgeGraph{
		Name:                doc.Name,
		MainObjective:       doc.MainObjective,
		SecondaryObjectives: doc.SecondaryObjectives,
		Version:             doc.Version,
		Nodes:               nodes,
		Edges:               doc.Edges,
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Encode serializes a validated graph back to its document form, with nodes
// sorted by id for determinism. The output round-trips through Parse and is
// what the persisted cache tier stores.
func Encode(g *KnowledgeGraph) ([]byte, error) {
	doc := document{
		Name:                g.Name,
		MainObjective:       g.MainObjective,
		SecondaryObjectives: g.SecondaryObjectives,
		Version:             g.Version,
		Nodes:               make([]Node, 0, len(g.Nodes)),
		Edges:               g.Edges,
	}
	for _, n := range g.Nodes {
		doc.Nodes = append(doc.Nodes, n)
	}
	sort.Slice(doc.Nodes, func(i, j int) bool { return doc.Nodes[i].ID < doc.Nodes[j].ID })

	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding graph %q: %w", g.Name, err)
	}
	return data, nil
}

// SourceModTime returns the last-modified time of a graph source file,
// expressed as Unix nanoseconds. Used as part of the graph cache key so a
// rewritten file invalidates its cached graph.
func SourceModTime(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat graph source %q: %w", path, err)
	}
	return info.ModTime().UnixNano(), nil
}
