package stage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisionIsValid(t *testing.T) {
	tests := []struct {
		decision Decision
		valid    bool
	}{
		{DecisionApprove, true},
		{DecisionRevise, true},
		{DecisionReject, true},
		{Decision("MAYBE"), false},
		{Decision(""), false},
	}
	for _, tt := range tests {
		if got := tt.decision.IsValid(); got != tt.valid {
			t.Errorf("%q.IsValid() = %v, want %v", tt.decision, got, tt.valid)
		}
	}
}

func TestDecisionIsTerminal(t *testing.T) {
	if !DecisionApprove.IsTerminal() {
		t.Error("APPROVE should be terminal")
	}
	if !DecisionReject.IsTerminal() {
		t.Error("REJECT should be terminal")
	}
	if DecisionRevise.IsTerminal() {
		t.Error("REVISE should not be terminal")
	}
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		input   string
		want    Decision
		wantErr bool
	}{
		{"APPROVE", DecisionApprove, false},
		{"revise", DecisionRevise, false},
		{"  Reject  ", DecisionReject, false},
		{"punt", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDecision(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDecision(%q) expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDecision(%q): %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDecision(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCriticOutputValidate(t *testing.T) {
	tests := []struct {
		name    string
		output  CriticOutput
		wantErr bool
	}{
		{
			name:   "approve without guidance",
			output: CriticOutput{Decision: DecisionApprove, Rationale: "sound"},
		},
		{
			name:    "revise without guidance",
			output:  CriticOutput{Decision: DecisionRevise, Rationale: "fixable"},
			wantErr: true,
		},
		{
			name: "revise with guidance",
			output: CriticOutput{
				Decision:  DecisionRevise,
				Guidance:  &RevisionGuidance{Sections: []string{"validation"}},
				Rationale: "fixable",
			},
		},
		{
			name:    "unknown decision",
			output:  CriticOutput{Decision: "SHRUG"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.output.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRevisionGuidanceRender(t *testing.T) {
	g := &RevisionGuidance{
		Sections:         []string{"mechanisms", "validation"},
		MissingCitations: []string{"beta-sheet crystallinity claim"},
		ConfidenceGaps:   []string{"strength scaling"},
		Notes:            "compare against collagen",
	}
	rendered := g.Render()
	assert.Contains(t, rendered, "mechanisms, validation")
	assert.Contains(t, rendered, "beta-sheet crystallinity claim")
	assert.Contains(t, rendered, "strength scaling")
	assert.Contains(t, rendered, "compare against collagen")

	empty := &RevisionGuidance{}
	assert.Empty(t, empty.Render())
}

func criticState() State {
	return seededState().With(NameScientist.String(), &Hypothesis{
		Background: "silk context",
		Hypothesis: "beta sheets drive strength",
		Mechanisms: []string{"hydrogen bonding"},
	})
}

func TestCriticApprove(t *testing.T) {
	c := NewCritic(scriptedClient(t, `{"decision": "APPROVE", "rationale": "well grounded"}`))

	result, err := c.Run(context.Background(), criticState())
	require.NoError(t, err)
	require.False(t, result.Failed())
	require.NoError(t, result.Validate())

	out, ok := result.Output.(*CriticOutput)
	require.True(t, ok)
	assert.Equal(t, DecisionApprove, out.Decision)
	assert.True(t, out.Decision.IsTerminal())
	assert.InDelta(t, 0.9, result.Confidence, 1e-9)
}

func TestCriticReviseCarriesGuidance(t *testing.T) {
	c := NewCritic(scriptedClient(t, `{
		"decision": "REVISE",
		"rationale": "validation is thin",
		"guidance": {"sections": ["validation"], "notes": "propose a concrete assay"}
	}`))

	result, err := c.Run(context.Background(), criticState())
	require.NoError(t, err)
	require.False(t, result.Failed())

	out, ok := result.Output.(*CriticOutput)
	require.True(t, ok)
	assert.Equal(t, DecisionRevise, out.Decision)
	require.NotNil(t, out.Guidance)
	assert.Equal(t, []string{"validation"}, out.Guidance.Sections)

	// One named gap: confidence sits below a settled approval.
	assert.InDelta(t, 0.6, result.Confidence, 1e-9)
}

func TestCriticConfidenceTracksGuidanceBreadth(t *testing.T) {
	tests := []struct {
		name    string
		verdict string
		want    float64
	}{
		{
			"reject",
			`{"decision": "REJECT", "rationale": "unsupported"}`,
			0.8,
		},
		{
			"revise with many gaps floors",
			`{"decision": "REVISE", "rationale": "weak throughout",
				"guidance": {
					"sections": ["background", "mechanisms", "validation"],
					"missing_citations": ["strength claim", "crystallinity claim"],
					"confidence_gaps": ["scaling argument"]
				}}`,
			0.3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCritic(scriptedClient(t, tt.verdict))
			result, err := c.Run(context.Background(), criticState())
			require.NoError(t, err)
			require.False(t, result.Failed())
			assert.InDelta(t, tt.want, result.Confidence, 1e-9)
		})
	}
}

func TestCriticReviseWithoutGuidanceSoftFails(t *testing.T) {
	c := NewCritic(scriptedClient(t, `{"decision": "REVISE", "rationale": "fix it"}`))

	result, err := c.Run(context.Background(), criticState())
	require.NoError(t, err)
	assert.True(t, result.Failed())
	assert.Zero(t, result.Confidence)
}

func TestCriticUndecodableVerdictSoftFails(t *testing.T) {
	c := NewCritic(scriptedClient(t, "looks fine to me"))

	result, err := c.Run(context.Background(), criticState())
	require.NoError(t, err)
	assert.True(t, result.Failed())
}

func TestCriticMissingHypothesisIsContractViolation(t *testing.T) {
	c := NewCritic(scriptedClient(t, `{"decision": "APPROVE", "rationale": "ok"}`))

	_, err := c.Run(context.Background(), seededState())
	assert.Error(t, err)
}
