package stage

import (
	"context"
	"fmt"
)

// Name identifies one of the five pipeline stages.
type Name string

const (
	// NamePlanner selects the graph context for the run.
	NamePlanner Name = "planner"

	// NameOntologist interprets node and edge labels into domain concepts.
	NameOntologist Name = "ontologist"

	// NameScientist produces the initial hypothesis structure.
	NameScientist Name = "scientist"

	// NameExpander elaborates the hypothesis with mechanistic detail.
	NameExpander Name = "expander"

	// NameCritic evaluates the hypothesis and decides the loop outcome.
	NameCritic Name = "critic"
)

// String returns the string representation of the stage name.
func (n Name) String() string {
	return string(n)
}

// IsValid checks if the stage name is a recognized value.
func (n Name) IsValid() bool {
	switch n {
	case NamePlanner, NameOntologist, NameScientist, NameExpander, NameCritic:
		return true
	default:
		return false
	}
}

// Order returns the five stages in pipeline order.
func Order() []Name {
	return []Name{NamePlanner, NameOntologist, NameScientist, NameExpander, NameCritic}
}

// Output is implemented by every stage's structured output payload so the
// orchestrator can validate it before placing it in pipeline state.
type Output interface {
	// Validate checks the payload against its fixed schema.
	Validate() error
}

// Result is the outcome of one stage invocation. It is immutable once
// produced: the next stage and the Critic consume it, never modify it.
type Result struct {
	// Stage tags which stage produced the output.
	Stage Name `json:"stage"`

	// Output is the stage-specific payload. Nil when the stage failed
	// before producing anything.
	Output Output `json:"output,omitempty"`

	// Confidence is the stage's confidence in its output, in [0,1].
	// Zero for soft failures.
	Confidence float64 `json:"confidence"`

	// Err records a soft failure. The orchestrator branches on its
	// presence; the stage itself does not raise.
	Err error `json:"-"`
}

// Failed reports whether the stage soft-failed.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Validate checks the result invariants: known stage, confidence in range,
// and a schema-valid output when one is present.
func (r Result) Validate() error {
	if !r.Stage.IsValid() {
		return fmt.Errorf("unknown stage %q", r.Stage)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("stage %s: confidence %v outside [0,1]", r.Stage, r.Confidence)
	}
	if r.Output != nil {
		if err := r.Output.Validate(); err != nil {
			return fmt.Errorf("stage %s: invalid output: %w", r.Stage, err)
		}
	}
	return nil
}

// softFailure builds the conventional zero-confidence failure result.
func softFailure(name Name, err error) Result {
	return Result{Stage: name, Confidence: 0, Err: err}
}

// Stage is one step of the agent pipeline.
type Stage interface {
	// Name returns the stage's identity.
	Name() Name

	// Run executes the stage against the immutable state. Soft failures
	// are embedded in the Result; the error return is reserved for
	// contract violations (e.g., required state keys missing).
	Run(ctx context.Context, state State) (Result, error)
}
