package graph

import (
	"fmt"

	"github.com/hypatia-ai/hypatia"
)

// NodeType categorizes the kind of entity a node represents.
type NodeType string

const (
	// NodeTypeConcept represents an abstract domain concept.
	NodeTypeConcept NodeType = "concept"

	// NodeTypeProtein represents a protein or other biomolecule.
	NodeTypeProtein NodeType = "protein"

	// NodeTypeStructure represents a physical or molecular structure.
	NodeTypeStructure NodeType = "structure"

	// NodeTypeDocument represents a source document or citation.
	NodeTypeDocument NodeType = "document"

	// NodeTypeMaterial represents a material or substance.
	NodeTypeMaterial NodeType = "material"

	// NodeTypeProcess represents a process or mechanism.
	NodeTypeProcess NodeType = "process"
)

// String returns the string representation of the node type.
func (t NodeType) String() string {
	return string(t)
}

// IsValid checks if the node type is a recognized value.
func (t NodeType) IsValid() bool {
	switch t {
	case NodeTypeConcept, NodeTypeProtein, NodeTypeStructure,
		NodeTypeDocument, NodeTypeMaterial, NodeTypeProcess:
		return true
	default:
		return false
	}
}

// Node is a single entity in the knowledge graph.
// Nodes are immutable once the graph is loaded and are owned exclusively
// by their KnowledgeGraph.
type Node struct {
	// ID is the unique node identifier. Required.
	ID string `yaml:"id" json:"id"`

	// Label is the human-readable name of the entity. Required.
	Label string `yaml:"label" json:"label"`

	// Type categorizes the entity (concept, protein, structure, ...).
	Type NodeType `yaml:"type" json:"type"`

	// Confidence is the loader's confidence in this node, in [0,1].
	Confidence float64 `yaml:"confidence" json:"confidence"`
}

// Validate checks that the node has all required fields set correctly.
func (n Node) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("node id is required")
	}
	if n.Label == "" {
		return fmt.Errorf("node %q: label is required", n.ID)
	}
	if n.Confidence < 0 || n.Confidence > 1 {
		return fmt.Errorf("node %q: confidence %v outside [0,1]", n.ID, n.Confidence)
	}
	return nil
}

// Edge is a directed, labeled relation between two nodes. The reverse edge
// is not implied; multi-edges between the same pair with different relations
// are permitted.
type Edge struct {
	// Source is the id of the origin node. Must resolve to a loaded node.
	Source string `yaml:"source" json:"source"`

	// Target is the id of the destination node. Must resolve to a loaded node.
	Target string `yaml:"target" json:"target"`

	// Relation is the label describing the relationship.
	Relation string `yaml:"relation" json:"relation"`

	// Confidence is the strength of the relation, in [0,1].
	Confidence float64 `yaml:"confidence" json:"confidence"`

	// Provenance optionally records where the relation came from.
	Provenance string `yaml:"provenance,omitempty" json:"provenance,omitempty"`
}

// Validate checks edge fields without resolving node references.
// Reference resolution happens in KnowledgeGraph.Validate.
func (e Edge) Validate() error {
	if e.Source == "" || e.Target == "" {
		return fmt.Errorf("edge %q-[%s]->%q: source and target are required", e.Source, e.Relation, e.Target)
	}
	if e.Relation == "" {
		return fmt.Errorf("edge %s->%s: relation is required", e.Source, e.Target)
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("edge %s->%s: confidence %v outside [0,1]", e.Source, e.Target, e.Confidence)
	}
	return nil
}

// KnowledgeGraph is the immutable in-memory representation of a loaded
// graph document. Construct one with Load or validate a hand-built value
// with Validate before use.
type KnowledgeGraph struct {
	// Name identifies the graph.
	Name string `yaml:"name" json:"name"`

	// MainObjective is the primary research objective the graph serves.
	MainObjective string `yaml:"main_objective" json:"main_objective"`

	// SecondaryObjectives lists additional objectives, in document order.
	SecondaryObjectives []string `yaml:"secondary_objectives,omitempty" json:"secondary_objectives,omitempty"`

	// Version is the document version string.
	Version string `yaml:"version" json:"version"`

	// Nodes maps node id to node. Keys are unique by construction.
	Nodes map[string]Node `yaml:"-" json:"-"`

	// Edges is the ordered list of directed edges.
	Edges []Edge `yaml:"edges" json:"edges"`
}

// Node returns the node with the given id and whether it exists.
func (g *KnowledgeGraph) Node(id string) (Node, bool) {
	n, ok := g.Nodes[id]
	return n, ok
}

// NodeCount returns the number of nodes in the graph.
func (g *KnowledgeGraph) NodeCount() int {
	return len(g.Nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *KnowledgeGraph) EdgeCount() int {
	return len(g.Edges)
}

// Validate checks the structural invariants of the graph: required fields
// are present, every node and edge is individually valid, and every edge's
// source and target resolve to a loaded node. Violations are reported, not
// silently dropped.
func (g *KnowledgeGraph) Validate() error {
	const op = "graph.Validate"

	if g.Name == "" {
		return hypatia.NewValidationError(op, fmt.Errorf("%w: name is required", hypatia.ErrMalformedGraph))
	}
	if len(g.Nodes) == 0 {
		return hypatia.NewValidationError(op, fmt.Errorf("%w: graph has no nodes", hypatia.ErrMalformedGraph))
	}

	for id, n := range g.Nodes {
		if n.ID != id {
			return hypatia.NewValidationError(op,
				fmt.Errorf("%w: node map key %q does not match node id %q", hypatia.ErrMalformedGraph, id, n.ID))
		}
		if err := n.Validate(); err != nil {
			return hypatia.NewValidationError(op, fmt.Errorf("%w: %v", hypatia.ErrMalformedGraph, err))
		}
	}

	for i, e := range g.Edges {
		if err := e.Validate(); err != nil {
			return hypatia.NewValidationError(op,
				fmt.Errorf("%w: edge %d: %v", hypatia.ErrMalformedGraph, i, err))
		}
		if _, ok := g.Nodes[e.Source]; !ok {
			return hypatia.NewValidationError(op,
				fmt.Errorf("%w: edge %d references unknown source node %q", hypatia.ErrMalformedGraph, i, e.Source))
		}
		if _, ok := g.Nodes[e.Target]; !ok {
			return hypatia.NewValidationError(op,
				fmt.Errorf("%w: edge %d references unknown target node %q", hypatia.ErrMalformedGraph, i, e.Target))
		}
	}

	return nil
}
