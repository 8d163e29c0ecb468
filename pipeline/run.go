package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/hypatia-ai/hypatia/llm"
	"github.com/hypatia-ai/hypatia/stage"
)

// Status is the lifecycle state of a run.
type Status string

const (
	// StatusRunning means the pipeline is still executing.
	StatusRunning Status = "RUNNING"

	// StatusCompleted means the Critic approved a hypothesis (or the
	// iteration cap forced completion).
	StatusCompleted Status = "COMPLETED"

	// StatusRejected means the Critic rejected the hypothesis.
	StatusRejected Status = "REJECTED"

	// StatusAborted means the run stopped early; Run.AbortReason says why.
	StatusAborted Status = "ABORTED"

	// StatusTimedOut means an external call timed out past its retry budget.
	StatusTimedOut Status = "TIMED_OUT"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid checks if the status is a recognized value.
func (s Status) IsValid() bool {
	switch s {
	case StatusRunning, StatusCompleted, StatusRejected, StatusAborted, StatusTimedOut:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the run has finished.
func (s Status) IsTerminal() bool {
	return s != StatusRunning && s != ""
}

// ConfidenceSample is one point in a run's confidence trace.
type ConfidenceSample struct {
	// Stage is the stage that reported the confidence.
	Stage string `json:"stage"`

	// Iteration is the revise-loop iteration the sample belongs to.
	Iteration int `json:"iteration"`

	// Confidence is the reported value, in [0,1].
	Confidence float64 `json:"confidence"`
}

// RunRequest describes one hypothesis-generation run.
type RunRequest struct {
	// GraphPath is the knowledge graph source document.
	GraphPath string `json:"graph_path"`

	// Objective is the natural-language research objective.
	Objective string `json:"objective"`

	// ConceptA is the source concept id for path finding.
	ConceptA string `json:"concept_a"`

	// ConceptB is the target concept id for path finding.
	ConceptB string `json:"concept_b"`

	// Strategy optionally overrides the configured path strategy for this
	// run (shortest, strongest, balanced).
	Strategy string `json:"strategy,omitempty"`

	// MaxIterations optionally overrides the configured revise-loop cap
	// for this run. Zero keeps the configured cap.
	MaxIterations int `json:"max_iterations,omitempty"`
}

// Run is the persisted record of one pipeline execution.
type Run struct {
	// ID uniquely identifies the run.
	ID string `json:"id"`

	// Request is the originating request.
	Request RunRequest `json:"request"`

	// Status is the lifecycle state.
	Status Status `json:"status"`

	// Phase is the pipeline's current position.
	Phase Phase `json:"phase"`

	// AbortReason explains an ABORTED status.
	AbortReason string `json:"abort_reason,omitempty"`

	// Iterations counts completed revise loops.
	Iterations int `json:"iterations"`

	// MaxIterationsReached is set when the iteration cap forced completion.
	MaxIterationsReached bool `json:"max_iterations_reached,omitempty"`

	// ConfidenceTrace records each stage's confidence in execution order.
	ConfidenceTrace []ConfidenceSample `json:"confidence_trace,omitempty"`

	// TokenUsage aggregates token consumption per stage.
	TokenUsage map[string]llm.TokenUsage `json:"token_usage,omitempty"`

	// Hypothesis is the final hypothesis for completed runs.
	Hypothesis *stage.Hypothesis `json:"hypothesis,omitempty"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run reached a terminal status.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewRun creates a RUNNING run for the given request.
func NewRun(req RunRequest) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Request:   req,
		Status:    StatusRunning,
		Phase:     PhasePlanning,
		StartedAt: time.Now(),
	}
}

// Clone returns a deep copy safe to hand across goroutines.
func (r *Run) Clone() *Run {
	c := *r
	if r.ConfidenceTrace != nil {
		c.ConfidenceTrace = make([]ConfidenceSample, len(r.ConfidenceTrace))
		copy(c.ConfidenceTrace, r.ConfidenceTrace)
	}
	if r.TokenUsage != nil {
		c.TokenUsage = make(map[string]llm.TokenUsage, len(r.TokenUsage))
		for k, v := range r.TokenUsage {
			c.TokenUsage[k] = v
		}
	}
	if r.Hypothesis != nil {
		h := *r.Hypothesis
		h.Mechanisms = append([]string(nil), r.Hypothesis.Mechanisms...)
		h.ExpectedOutcomes = append([]string(nil), r.Hypothesis.ExpectedOutcomes...)
		h.Citations = append([]string(nil), r.Hypothesis.Citations...)
		c.Hypothesis = &h
	}
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}

// finish moves the run to a terminal status.
func (r *Run) finish(status Status, reason string) {
	now := time.Now()
	r.Status = status
	r.AbortReason = reason
	r.Phase = PhaseDone
	r.FinishedAt = &now
}
