package stage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hypatia-ai/hypatia"
	"github.com/hypatia-ai/hypatia/llm"
	"github.com/hypatia-ai/hypatia/retrieval"
)

// Expander elaborates the Scientist's hypothesis with additional mechanistic
// detail. When a literature searcher is configured it also gathers
// supporting citations; literature failures never fail the stage.
type Expander struct {
	client     *llm.Client
	literature retrieval.LiteratureSearcher
	maxRefs    int
	logger     *slog.Logger
}

// ExpanderOption configures an Expander.
type ExpanderOption func(*Expander)

// WithLiterature enables the optional literature-search collaborator,
// consulting it for up to maxRefs citations per pass.
func WithLiterature(searcher retrieval.LiteratureSearcher, maxRefs int) ExpanderOption {
	return func(e *Expander) {
		e.literature = searcher
		if maxRefs > 0 {
			e.maxRefs = maxRefs
		}
	}
}

// WithExpanderLogger overrides the default logger.
func WithExpanderLogger(logger *slog.Logger) ExpanderOption {
	return func(e *Expander) {
		e.logger = logger
	}
}

// NewExpander creates an Expander stage backed by the given client.
func NewExpander(client *llm.Client, opts ...ExpanderOption) *Expander {
	e := &Expander{
		client:  client,
		maxRefs: 5,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the stage's identity.
func (e *Expander) Name() Name {
	return NameExpander
}

// Run elaborates the current hypothesis.
func (e *Expander) Run(ctx context.Context, state State) (Result, error) {
	h, ok := hypothesisFromState(state)
	if !ok {
		return Result{}, hypatia.NewContractError("Expander.Run",
			fmt.Errorf("state is missing a hypothesis"))
	}

	fingerprint, err := state.Fingerprint()
	if err != nil {
		return Result{}, hypatia.NewInternalError("Expander.Run", err)
	}

	var citations []string
	if e.literature != nil {
		found, err := e.literature.Search(ctx, h.Hypothesis, e.maxRefs)
		if err != nil {
			e.logger.Warn("literature search failed, continuing without it", "error", err)
		}
		for _, c := range found {
			citations = append(citations, fmt.Sprintf("%s (%s)", c.Title, c.Source))
		}
	}

	var sections []string
	sections = append(sections,
		"Elaborate this hypothesis with deeper mechanistic detail.",
		"Keep the same JSON schema and preserve existing content where it is already strong:",
		fmt.Sprintf("Background: %s", h.Background),
		fmt.Sprintf("Hypothesis: %s", h.Hypothesis),
		fmt.Sprintf("Mechanisms: %s", strings.Join(h.Mechanisms, "; ")),
		fmt.Sprintf("Expected outcomes: %s", strings.Join(h.ExpectedOutcomes, "; ")),
		fmt.Sprintf("Validation: %s", h.Validation),
		fmt.Sprintf("Novelty: %s", h.Novelty),
	)
	if len(citations) > 0 {
		sections = append(sections,
			"Incorporate these literature references where they support the mechanisms:",
			strings.Join(citations, "\n"))
	}
	sections = append(sections,
		"Respond as JSON:",
		`{"background", "hypothesis", "mechanisms": [], "expected_outcomes": [], "validation", "novelty", "citations": []}`,
	)

	resp, err := e.client.Complete(ctx,
		llm.NewCompletionRequest([]llm.Message{
			llm.SystemMessage("You expand scientific hypotheses with mechanistic depth."),
			llm.UserMessage(strings.Join(sections, "\n")),
		}),
		llm.WithStateKey(fingerprint),
		llm.WithStage(NameExpander.String()),
	)
	if err != nil {
		return softFailure(NameExpander, err), nil
	}

	var expanded Hypothesis
	if err := llm.DecodeInto(resp.Content, &expanded); err != nil || expanded.Validate() != nil {
		// Keep the unexpanded hypothesis rather than losing it.
		expanded = *h
		expanded.Citations = mergeCitations(expanded.Citations, citations)
		return Result{Stage: NameExpander, Output: &expanded, Confidence: 0.4}, nil
	}

	expanded.Citations = mergeCitations(expanded.Citations, citations)
	return Result{Stage: NameExpander, Output: &expanded, Confidence: 0.8}, nil
}

// mergeCitations appends new citations, skipping duplicates.
func mergeCitations(existing, found []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		seen[c] = struct{}{}
	}
	merged := existing
	for _, c := range found {
		if _, dup := seen[c]; !dup {
			merged = append(merged, c)
			seen[c] = struct{}{}
		}
	}
	return merged
}
