package graph

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypatia-ai/hypatia"
)

const validDoc = `
name: silk-materials
main_objective: relate silk processing to energy use
secondary_objectives:
  - identify mechanisms
version: "1.0"
nodes:
  - id: silk
    label: Silk
    type: material
    confidence: 0.95
  - id: spinning
    label: Fiber spinning
    type: process
    confidence: 0.8
edges:
  - source: silk
    target: spinning
    relation: processed-by
    confidence: 0.9
    provenance: doi:10.1000/example
`

func TestParseValidDocument(t *testing.T) {
	g, err := Parse([]byte(validDoc))
	require.NoError(t, err)

	assert.Equal(t, "silk-materials", g.Name)
	assert.Equal(t, "1.0", g.Version)
	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, 1, g.EdgeCount())

	n, ok := g.Node("silk")
	require.True(t, ok)
	assert.Equal(t, "Silk", n.Label)
	assert.Equal(t, NodeTypeMaterial, n.Type)

	assert.Equal(t, "doi:10.1000/example", g.Edges[0].Provenance)
}

func TestParseJSONDocument(t *testing.T) {
	doc := `{
		"name": "g",
		"main_objective": "o",
		"version": "1",
		"nodes": [{"id": "a", "label": "A", "type": "concept", "confidence": 1.0}],
		"edges": []
	}`
	g, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 1, g.NodeCount())
}

func TestParseStructuralFailures(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "missing name",
			doc: `
nodes:
  - {id: a, label: A, type: concept, confidence: 1.0}
`,
		},
		{
			name: "no nodes",
			doc: `
name: g
edges: []
`,
		},
		{
			name: "duplicate node id",
			doc: `
name: g
nodes:
  - {id: a, label: A, type: concept, confidence: 1.0}
  - {id: a, label: A2, type: concept, confidence: 1.0}
`,
		},
		{
			name: "dangling edge source",
			doc: `
name: g
nodes:
  - {id: a, label: A, type: concept, confidence: 1.0}
edges:
  - {source: ghost, target: a, relation: rel, confidence: 0.5}
`,
		},
		{
			name: "dangling edge target",
			doc: `
name: g
nodes:
  - {id: a, label: A, type: concept, confidence: 1.0}
edges:
  - {source: a, target: ghost, relation: rel, confidence: 0.5}
`,
		},
		{
			name: "confidence out of range",
			doc: `
name: g
nodes:
  - {id: a, label: A, type: concept, confidence: 1.5}
`,
		},
		{
			name: "edge missing relation",
			doc: `
name: g
nodes:
  - {id: a, label: A, type: concept, confidence: 1.0}
  - {id: b, label: B, type: concept, confidence: 1.0}
edges:
  - {source: a, target: b, confidence: 0.5}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, hypatia.ErrMalformedGraph)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validDoc), 0o644))

	g, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "silk-materials", g.Name)

	mtime, err := SourceModTime(path)
	require.NoError(t, err)
	assert.Positive(t, mtime)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)

	var he *hypatia.Error
	require.True(t, errors.As(err, &he))
	assert.Equal(t, hypatia.KindNotFound, he.Kind)
}
