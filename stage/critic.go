package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/hypatia-ai/hypatia"
	"github.com/hypatia-ai/hypatia/llm"
)

// Decision is the Critic's verdict on the current hypothesis.
type Decision string

const (
	// DecisionApprove accepts the hypothesis and completes the run.
	DecisionApprove Decision = "APPROVE"

	// DecisionRevise sends the run back to the Scientist with guidance.
	DecisionRevise Decision = "REVISE"

	// DecisionReject terminates the run with the hypothesis rejected.
	DecisionReject Decision = "REJECT"
)

// String returns the string representation of the decision.
func (d Decision) String() string {
	return string(d)
}

// IsValid checks if the decision is a recognized value.
func (d Decision) IsValid() bool {
	switch d {
	case DecisionApprove, DecisionRevise, DecisionReject:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if this decision ends the revise loop.
func (d Decision) IsTerminal() bool {
	return d == DecisionApprove || d == DecisionReject
}

// ParseDecision parses a string into a Decision, tolerating case.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "APPROVE":
		return DecisionApprove, nil
	case "REVISE":
		return DecisionRevise, nil
	case "REJECT":
		return DecisionReject, nil
	default:
		return "", fmt.Errorf("invalid critic decision: %s", s)
	}
}

// RevisionGuidance is the Critic's structured feedback for the next
// Scientist/Expander pass.
type RevisionGuidance struct {
	// Sections names hypothesis sections that need strengthening.
	Sections []string `json:"sections"`

	// MissingCitations lists claims lacking references.
	MissingCitations []string `json:"missing_citations"`

	// ConfidenceGaps lists mechanisms asserted with insufficient support.
	ConfidenceGaps []string `json:"confidence_gaps"`

	// Notes carries free-form reviewer remarks.
	Notes string `json:"notes,omitempty"`
}

// Render serializes the guidance into the prose form embedded in prompts.
func (g *RevisionGuidance) Render() string {
	var b strings.Builder
	if len(g.Sections) > 0 {
		fmt.Fprintf(&b, "Strengthen sections: %s\n", strings.Join(g.Sections, ", "))
	}
	if len(g.MissingCitations) > 0 {
		fmt.Fprintf(&b, "Add citations for: %s\n", strings.Join(g.MissingCitations, "; "))
	}
	if len(g.ConfidenceGaps) > 0 {
		fmt.Fprintf(&b, "Support these weakly grounded claims: %s\n", strings.Join(g.ConfidenceGaps, "; "))
	}
	if g.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", g.Notes)
	}
	return strings.TrimSpace(b.String())
}

// CriticOutput is the Critic's structured payload.
type CriticOutput struct {
	// Decision is the verdict.
	Decision Decision `json:"decision"`

	// Guidance is required when Decision is REVISE.
	Guidance *RevisionGuidance `json:"guidance,omitempty"`

	// Rationale explains the verdict.
	Rationale string `json:"rationale"`
}

// Validate checks the payload against its fixed schema.
func (o *CriticOutput) Validate() error {
	if !o.Decision.IsValid() {
		return fmt.Errorf("invalid decision %q", o.Decision)
	}
	if o.Decision == DecisionRevise && o.Guidance == nil {
		return fmt.Errorf("REVISE requires revision guidance")
	}
	return nil
}

// Critic evaluates the expanded hypothesis against the subgraph and decides
// whether the run is done, needs another pass, or should be rejected.
type Critic struct {
	client *llm.Client
}

// NewCritic creates a Critic stage backed by the given client.
func NewCritic(client *llm.Client) *Critic {
	return &Critic{client: client}
}

// Name returns the stage's identity.
func (c *Critic) Name() Name {
	return NameCritic
}

// Run evaluates the current hypothesis.
func (c *Critic) Run(ctx context.Context, state State) (Result, error) {
	planned, ok := plannerOutput(state)
	if !ok {
		return Result{}, hypatia.NewContractError("Critic.Run",
			fmt.Errorf("state is missing planner output"))
	}
	h, ok := hypothesisFromState(state)
	if !ok {
		return Result{}, hypatia.NewContractError("Critic.Run",
			fmt.Errorf("state is missing a hypothesis"))
	}

	fingerprint, err := state.Fingerprint()
	if err != nil {
		return Result{}, hypatia.NewInternalError("Critic.Run", err)
	}

	prompt := strings.Join([]string{
		"Evaluate this hypothesis against the knowledge subgraph it was derived from.",
		"Decide APPROVE (sound and well supported), REVISE (salvageable with specific fixes),",
		"or REJECT (unsupported by the graph).",
		`Respond as JSON: {"decision", "rationale", "guidance": {"sections": [], "missing_citations": [], "confidence_gaps": [], "notes"}}.`,
		"Guidance is required for REVISE.",
		"",
		"Subgraph:",
		renderSubgraph(planned.Subgraph),
		"",
		fmt.Sprintf("Hypothesis: %s", h.Hypothesis),
		fmt.Sprintf("Background: %s", h.Background),
		fmt.Sprintf("Mechanisms: %s", strings.Join(h.Mechanisms, "; ")),
		fmt.Sprintf("Citations: %s", strings.Join(h.Citations, "; ")),
	}, "\n")

	resp, err := c.client.Complete(ctx,
		llm.NewCompletionRequest([]llm.Message{
			llm.SystemMessage("You are a rigorous scientific reviewer."),
			llm.UserMessage(prompt),
		}),
		llm.WithStateKey(fingerprint),
		llm.WithStage(NameCritic.String()),
	)
	if err != nil {
		return softFailure(NameCritic, err), nil
	}

	var out CriticOutput
	if err := llm.DecodeInto(resp.Content, &out); err != nil {
		return softFailure(NameCritic, fmt.Errorf("undecodable critic verdict: %w", err)), nil
	}
	if err := out.Validate(); err != nil {
		return softFailure(NameCritic, err), nil
	}

	return Result{Stage: NameCritic, Output: &out, Confidence: verdictConfidence(&out)}, nil
}

// verdictConfidence maps a verdict to the stage's reported confidence, which
// downstream checkpoint policies branch on. Terminal verdicts reflect a
// settled judgment; REVISE means the reviewer still sees open gaps, and the
// wider the guidance the less confident the current draft.
func verdictConfidence(out *CriticOutput) float64 {
	switch out.Decision {
	case DecisionRevise:
		gaps := len(out.Guidance.Sections) +
			len(out.Guidance.MissingCitations) +
			len(out.Guidance.ConfidenceGaps)
		conf := 0.7 - 0.1*float64(gaps)
		if conf < 0.3 {
			conf = 0.3
		}
		return conf
	case DecisionReject:
		return 0.8
	default:
		return 0.9
	}
}
