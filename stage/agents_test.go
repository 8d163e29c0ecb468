package stage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypatia-ai/hypatia/graph"
	"github.com/hypatia-ai/hypatia/llm"
	"github.com/hypatia-ai/hypatia/retrieval"
)

// scriptedClient returns a client whose provider always answers with content.
func scriptedClient(t *testing.T, content string) *llm.Client {
	t.Helper()
	client, err := llm.NewClient(llm.ClientConfig{
		Provider: llm.ProviderFunc(func(_ context.Context, _ *llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return &llm.CompletionResponse{Content: content, FinishReason: "stop"}, nil
		}),
		Model: "test-model",
	})
	require.NoError(t, err)
	return client
}

// failingClient returns a client whose provider always errors, with retries
// disabled so tests fail fast.
func failingClient(t *testing.T) *llm.Client {
	t.Helper()
	client, err := llm.NewClient(llm.ClientConfig{
		Provider: llm.ProviderFunc(func(_ context.Context, _ *llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, errors.New("provider unavailable")
		}),
		Model:      "test-model",
		MaxRetries: 0,
	})
	require.NoError(t, err)
	return client
}

// seededState builds a state carrying a planner output over a two-node
// subgraph, which is what the downstream stages require.
func seededState() State {
	sub := &graph.Subgraph{
		Nodes: map[string]graph.Node{
			"silk":    {ID: "silk", Label: "silk fibroin", Type: graph.NodeTypeMaterial, Confidence: 1},
			"tensile": {ID: "tensile", Label: "tensile strength", Type: graph.NodeTypeConcept, Confidence: 1},
		},
		Edges: []graph.Edge{
			{Source: "silk", Target: "tensile", Relation: "exhibits", Confidence: 0.9},
		},
	}
	out := &PlannerOutput{Subgraph: sub, Rationale: "direct edge"}
	return NewState(map[string]any{
		KeyObjective: "improve silk-based materials",
		KeyConceptA:  "silk",
		KeyConceptB:  "tensile",
	}).With(NamePlanner.String(), out)
}

const hypothesisJSON = `{
	"background": "silk fibroin exhibits high tensile strength",
	"hypothesis": "beta-sheet density drives tensile strength in silk",
	"mechanisms": ["hydrogen bonding in beta-sheet crystallites"],
	"expected_outcomes": ["strength scales with crystallinity"],
	"validation": "tensile testing across crystallinity gradients",
	"novelty": "links nanostructure to bulk property",
	"citations": []
}`

func TestOntologistStructuredOutput(t *testing.T) {
	o := NewOntologist(scriptedClient(t, `{
		"concepts": {"silk": "a protein fiber", "tensile": "resistance to pulling"},
		"relations": ["silk exhibits tensile strength"],
		"summary": "silk's structure confers strength"
	}`))

	result, err := o.Run(context.Background(), seededState())
	require.NoError(t, err)
	require.False(t, result.Failed())
	require.NoError(t, result.Validate())

	out, ok := result.Output.(*OntologyOutput)
	require.True(t, ok)
	assert.Len(t, out.Concepts, 2)
	assert.InDelta(t, 0.8, result.Confidence, 1e-9)
}

func TestOntologistUnstructuredOutputBecomesSummary(t *testing.T) {
	o := NewOntologist(scriptedClient(t, "silk is strong because of beta sheets"))

	result, err := o.Run(context.Background(), seededState())
	require.NoError(t, err)
	require.False(t, result.Failed())

	out, ok := result.Output.(*OntologyOutput)
	require.True(t, ok)
	assert.Equal(t, "silk is strong because of beta sheets", out.Summary)
	assert.InDelta(t, 0.4, result.Confidence, 1e-9)
}

func TestOntologistProviderFailureIsSoft(t *testing.T) {
	o := NewOntologist(failingClient(t))

	result, err := o.Run(context.Background(), seededState())
	require.NoError(t, err)
	assert.True(t, result.Failed())
	assert.Zero(t, result.Confidence)
}

func TestOntologistMissingPlannerOutputIsContractViolation(t *testing.T) {
	o := NewOntologist(scriptedClient(t, "{}"))

	_, err := o.Run(context.Background(), NewState(nil))
	assert.Error(t, err)
}

func TestScientistStructuredHypothesis(t *testing.T) {
	s := NewScientist(scriptedClient(t, hypothesisJSON))

	result, err := s.Run(context.Background(), seededState())
	require.NoError(t, err)
	require.False(t, result.Failed())
	require.NoError(t, result.Validate())

	h, ok := result.Output.(*Hypothesis)
	require.True(t, ok)
	assert.Contains(t, h.Hypothesis, "beta-sheet")
	assert.InDelta(t, 0.85, result.Confidence, 1e-9)
}

func TestScientistSalvagesUnstructuredOutput(t *testing.T) {
	s := NewScientist(scriptedClient(t, "perhaps beta sheets explain the strength"))

	result, err := s.Run(context.Background(), seededState())
	require.NoError(t, err)
	require.False(t, result.Failed())

	h, ok := result.Output.(*Hypothesis)
	require.True(t, ok)
	assert.Equal(t, "perhaps beta sheets explain the strength", h.Hypothesis)
	assert.InDelta(t, 0.3, result.Confidence, 1e-9)
}

func TestScientistEmptyOutputSoftFails(t *testing.T) {
	s := NewScientist(scriptedClient(t, "   "))

	result, err := s.Run(context.Background(), seededState())
	require.NoError(t, err)
	assert.True(t, result.Failed())
}

func TestScientistIncludesGuidanceOnRevision(t *testing.T) {
	var seen string
	client, err := llm.NewClient(llm.ClientConfig{
		Provider: llm.ProviderFunc(func(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
			seen = req.Messages[len(req.Messages)-1].Content
			return &llm.CompletionResponse{Content: hypothesisJSON, FinishReason: "stop"}, nil
		}),
	})
	require.NoError(t, err)

	state := seededState().With(KeyGuidance, &RevisionGuidance{
		Sections: []string{"validation"},
		Notes:    "cite the crystallography literature",
	})

	_, err = NewScientist(client).Run(context.Background(), state)
	require.NoError(t, err)
	assert.Contains(t, seen, "revision pass")
	assert.Contains(t, seen, "validation")
	assert.Contains(t, seen, "crystallography")
}

type staticSearcher struct {
	citations []retrieval.Citation
	err       error
}

func (s staticSearcher) Search(_ context.Context, _ string, _ int) ([]retrieval.Citation, error) {
	return s.citations, s.err
}

func TestExpanderMergesLiteratureCitations(t *testing.T) {
	searcher := staticSearcher{citations: []retrieval.Citation{
		{Title: "Spider silk mechanics", Source: "doi:10.0/abc"},
	}}
	e := NewExpander(scriptedClient(t, hypothesisJSON), WithLiterature(searcher, 3))

	state := seededState().With(NameScientist.String(), &Hypothesis{
		Background: "b", Hypothesis: "h",
	})

	result, err := e.Run(context.Background(), state)
	require.NoError(t, err)
	require.False(t, result.Failed())

	h, ok := result.Output.(*Hypothesis)
	require.True(t, ok)
	assert.Contains(t, h.Citations, "Spider silk mechanics (doi:10.0/abc)")
	assert.InDelta(t, 0.8, result.Confidence, 1e-9)
}

func TestExpanderLiteratureFailureIsNonFatal(t *testing.T) {
	searcher := staticSearcher{err: errors.New("search backend down")}
	e := NewExpander(scriptedClient(t, hypothesisJSON), WithLiterature(searcher, 3))

	state := seededState().With(NameScientist.String(), &Hypothesis{
		Background: "b", Hypothesis: "h",
	})

	result, err := e.Run(context.Background(), state)
	require.NoError(t, err)
	assert.False(t, result.Failed())
}

func TestExpanderKeepsOriginalOnUndecodableOutput(t *testing.T) {
	e := NewExpander(scriptedClient(t, "not json at all"))

	original := &Hypothesis{Background: "b", Hypothesis: "original claim"}
	state := seededState().With(NameScientist.String(), original)

	result, err := e.Run(context.Background(), state)
	require.NoError(t, err)
	require.False(t, result.Failed())

	h, ok := result.Output.(*Hypothesis)
	require.True(t, ok)
	assert.Equal(t, "original claim", h.Hypothesis)
	assert.InDelta(t, 0.4, result.Confidence, 1e-9)
}

func TestExpanderMissingHypothesisIsContractViolation(t *testing.T) {
	e := NewExpander(scriptedClient(t, hypothesisJSON))

	_, err := e.Run(context.Background(), seededState())
	assert.Error(t, err)
}
