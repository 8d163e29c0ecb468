package stage

import "fmt"

// Hypothesis is the structured scientific hypothesis produced by the
// Scientist stage and refined by the Expander.
type Hypothesis struct {
	// Background summarizes the graph-grounded context the hypothesis
	// builds on.
	Background string `json:"background"`

	// Hypothesis is the central testable claim.
	Hypothesis string `json:"hypothesis"`

	// Mechanisms lists the proposed causal mechanisms.
	Mechanisms []string `json:"mechanisms"`

	// ExpectedOutcomes lists observable predictions if the claim holds.
	ExpectedOutcomes []string `json:"expected_outcomes"`

	// Validation describes how the hypothesis could be tested.
	Validation string `json:"validation"`

	// Novelty argues what is new relative to the cited literature.
	Novelty string `json:"novelty"`

	// Citations lists supporting references.
	Citations []string `json:"citations"`
}

// Validate checks the hypothesis against its fixed schema.
func (h *Hypothesis) Validate() error {
	if h.Hypothesis == "" {
		return fmt.Errorf("hypothesis statement is required")
	}
	if h.Background == "" {
		return fmt.Errorf("background is required")
	}
	return nil
}
