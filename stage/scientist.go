package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/hypatia-ai/hypatia"
	"github.com/hypatia-ai/hypatia/llm"
)

// Scientist produces the initial structured hypothesis from the interpreted
// subgraph and the user's objective. During a revise pass it additionally
// honors the Critic's guidance attached to state.
type Scientist struct {
	client *llm.Client
}

// NewScientist creates a Scientist stage backed by the given client.
func NewScientist(client *llm.Client) *Scientist {
	return &Scientist{client: client}
}

// Name returns the stage's identity.
func (s *Scientist) Name() Name {
	return NameScientist
}

// Run generates a hypothesis grounded in the subgraph and ontology.
func (s *Scientist) Run(ctx context.Context, state State) (Result, error) {
	planned, ok := plannerOutput(state)
	if !ok {
		return Result{}, hypatia.NewContractError("Scientist.Run",
			fmt.Errorf("state is missing planner output"))
	}

	fingerprint, err := state.Fingerprint()
	if err != nil {
		return Result{}, hypatia.NewInternalError("Scientist.Run", err)
	}

	var sections []string
	sections = append(sections,
		fmt.Sprintf("Research objective: %s", state.String(KeyObjective)),
		"",
		"Knowledge subgraph:",
		renderSubgraph(planned.Subgraph),
	)
	if ont, ok := ontologyOutput(state); ok && ont.Summary != "" {
		sections = append(sections, "Domain interpretation:", ont.Summary, "")
	}
	if guidance, ok := guidanceFromState(state); ok {
		sections = append(sections,
			"This is a revision pass. Address the reviewer's guidance:",
			guidance.Render(),
			"")
	}
	sections = append(sections,
		"Produce a testable scientific hypothesis as JSON with fields:",
		`{"background", "hypothesis", "mechanisms": [], "expected_outcomes": [], "validation", "novelty", "citations": []}`,
	)

	resp, err := s.client.Complete(ctx,
		llm.NewCompletionRequest([]llm.Message{
			llm.SystemMessage("You are a scientist generating graph-grounded, falsifiable hypotheses."),
			llm.UserMessage(strings.Join(sections, "\n")),
		}),
		llm.WithStateKey(fingerprint),
		llm.WithStage(NameScientist.String()),
	)
	if err != nil {
		return softFailure(NameScientist, err), nil
	}

	var h Hypothesis
	if err := llm.DecodeInto(resp.Content, &h); err != nil || h.Validate() != nil {
		// Salvage unstructured output at reduced confidence.
		h = Hypothesis{
			Background: "unstructured model output",
			Hypothesis: strings.TrimSpace(resp.Content),
		}
		if h.Hypothesis == "" {
			return softFailure(NameScientist, fmt.Errorf("empty hypothesis from model")), nil
		}
		return Result{Stage: NameScientist, Output: &h, Confidence: 0.3}, nil
	}

	return Result{Stage: NameScientist, Output: &h, Confidence: 0.85}, nil
}
