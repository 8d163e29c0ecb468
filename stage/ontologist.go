package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/hypatia-ai/hypatia"
	"github.com/hypatia-ai/hypatia/llm"
)

// OntologyOutput is the Ontologist's structured payload: the domain reading
// of the Planner's subgraph.
type OntologyOutput struct {
	// Concepts maps node ids to domain definitions.
	Concepts map[string]string `json:"concepts"`

	// Relations describes each edge's meaning in domain terms.
	Relations []string `json:"relations"`

	// Summary is a prose synthesis of the subgraph's domain content.
	Summary string `json:"summary"`
}

// Validate checks the payload against its fixed schema.
func (o *OntologyOutput) Validate() error {
	if o.Summary == "" && len(o.Concepts) == 0 {
		return fmt.Errorf("ontology output has neither summary nor concepts")
	}
	return nil
}

// Ontologist interprets the subgraph's node and edge labels into domain
// concepts: a pure transformation of the Planner's output plus one external
// reasoning call.
type Ontologist struct {
	client *llm.Client
}

// NewOntologist creates an Ontologist stage backed by the given client.
func NewOntologist(client *llm.Client) *Ontologist {
	return &Ontologist{client: client}
}

// Name returns the stage's identity.
func (o *Ontologist) Name() Name {
	return NameOntologist
}

// Run interprets the Planner's subgraph.
func (o *Ontologist) Run(ctx context.Context, state State) (Result, error) {
	planned, ok := plannerOutput(state)
	if !ok {
		return Result{}, hypatia.NewContractError("Ontologist.Run",
			fmt.Errorf("state is missing planner output"))
	}

	fingerprint, err := state.Fingerprint()
	if err != nil {
		return Result{}, hypatia.NewInternalError("Ontologist.Run", err)
	}

	prompt := strings.Join([]string{
		"Interpret every node and edge of this knowledge subgraph as domain concepts.",
		"Respond as JSON: {\"concepts\": {node_id: definition}, \"relations\": [edge readings], \"summary\": prose}.",
		"",
		renderSubgraph(planned.Subgraph),
	}, "\n")

	resp, err := o.client.Complete(ctx,
		llm.NewCompletionRequest([]llm.Message{
			llm.SystemMessage("You are an ontologist grounding graph structure in domain knowledge."),
			llm.UserMessage(prompt),
		}),
		llm.WithStateKey(fingerprint),
		llm.WithStage(NameOntologist.String()),
	)
	if err != nil {
		return softFailure(NameOntologist, err), nil
	}

	var out OntologyOutput
	if err := llm.DecodeInto(resp.Content, &out); err != nil {
		// Unstructured output still carries signal; keep it as the summary.
		out = OntologyOutput{Summary: strings.TrimSpace(resp.Content)}
		return Result{Stage: NameOntologist, Output: &out, Confidence: 0.4}, nil
	}

	return Result{Stage: NameOntologist, Output: &out, Confidence: 0.8}, nil
}
