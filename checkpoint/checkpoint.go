// Package checkpoint implements human review gates between pipeline stages.
// A configured stage suspends its run on a checkpoint until a reviewer
// resolves it, the wait times out, or the manager's mode auto-resolves it.
package checkpoint

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a checkpoint.
type Status string

const (
	// StatusPending means the checkpoint awaits resolution.
	StatusPending Status = "PENDING"

	// StatusResolved means a reviewer resolved the checkpoint.
	StatusResolved Status = "RESOLVED"

	// StatusTimedOut means no resolution arrived in time and the default
	// policy decided the outcome.
	StatusTimedOut Status = "TIMED_OUT"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid checks if the status is a recognized value.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusResolved, StatusTimedOut:
		return true
	default:
		return false
	}
}

// Action is what a resolution instructs the pipeline to do.
type Action string

const (
	// ActionApprove lets the run continue with the stage output unchanged.
	ActionApprove Action = "approve"

	// ActionModify substitutes the reviewer's edited content before
	// continuing.
	ActionModify Action = "modify"

	// ActionReject aborts the run.
	ActionReject Action = "reject"
)

// String returns the string representation of the action.
func (a Action) String() string {
	return string(a)
}

// IsValid checks if the action is a recognized value.
func (a Action) IsValid() bool {
	switch a {
	case ActionApprove, ActionModify, ActionReject:
		return true
	default:
		return false
	}
}

// ParseAction parses a string into an Action, tolerating case.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve":
		return ActionApprove, nil
	case "modify":
		return ActionModify, nil
	case "reject":
		return ActionReject, nil
	default:
		return "", fmt.Errorf("invalid checkpoint action: %s", s)
	}
}

// Resolution is the reviewer's (or policy's) verdict on a checkpoint.
type Resolution struct {
	// Action is the instruction for the pipeline.
	Action Action `json:"action"`

	// Content replaces the stage output when Action is modify.
	Content any `json:"content,omitempty"`

	// Notes carries free-form reviewer remarks.
	Notes string `json:"notes,omitempty"`
}

// Validate checks the resolution invariants.
func (r Resolution) Validate() error {
	if !r.Action.IsValid() {
		return fmt.Errorf("invalid action %q", r.Action)
	}
	if r.Action == ActionModify && r.Content == nil {
		return fmt.Errorf("modify resolution requires content")
	}
	return nil
}

// Record is one checkpoint instance. At most one pending record exists per
// (run, stage) pair at a time.
type Record struct {
	// ID uniquely identifies the checkpoint.
	ID string `json:"id"`

	// RunID is the pipeline run the checkpoint belongs to.
	RunID string `json:"run_id"`

	// Stage names the stage whose output is under review.
	Stage string `json:"stage"`

	// Confidence is the gated stage's reported confidence.
	Confidence float64 `json:"confidence"`

	// Payload is the stage output presented for review.
	Payload any `json:"payload,omitempty"`

	// Status is the lifecycle state.
	Status Status `json:"status"`

	// Resolution is set once the checkpoint leaves PENDING.
	Resolution *Resolution `json:"resolution,omitempty"`

	// CreatedAt is when the checkpoint was raised.
	CreatedAt time.Time `json:"created_at"`

	// ResolvedAt is when the checkpoint left PENDING.
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// newRecord builds a pending record for the given run and stage.
func newRecord(runID, stage string, confidence float64, payload any, now time.Time) *Record {
	return &Record{
		ID:         uuid.NewString(),
		RunID:      runID,
		Stage:      stage,
		Confidence: confidence,
		Payload:    payload,
		Status:     StatusPending,
		CreatedAt:  now,
	}
}
