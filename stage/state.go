package stage

import (
	"encoding/json"
	"fmt"
)

// Well-known state keys. Stage outputs are stored under their stage name;
// these cover the remaining inputs the orchestrator seeds or attaches.
const (
	// KeyObjective is the user's natural-language research objective.
	KeyObjective = "objective"

	// KeyConceptA is the source concept id for path finding.
	KeyConceptA = "concept_a"

	// KeyConceptB is the target concept id for path finding.
	KeyConceptB = "concept_b"

	// KeyGuidance holds the Critic's revision guidance during a revise pass.
	KeyGuidance = "guidance"

	// KeyIteration is the current revise-loop iteration, starting at 0.
	KeyIteration = "iteration"
)

// State is the immutable mapping passed between stages. It carries prior
// stage outputs, the extracted subgraph, the user's objective, and, during
// revision, the Critic's guidance. With returns a copy; the receiver is
// never modified.
type State struct {
	values map[string]any
}

// NewState creates a State seeded with the given values.
func NewState(values map[string]any) State {
	copied := make(map[string]any, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return State{values: copied}
}

// Get returns the value for key and whether it is present.
func (s State) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// With returns a copy of the state with key set to value.
func (s State) With(key string, value any) State {
	copied := make(map[string]any, len(s.values)+1)
	for k, v := range s.values {
		copied[k] = v
	}
	copied[key] = value
	return State{values: copied}
}

// Without returns a copy of the state with key removed.
func (s State) Without(key string) State {
	copied := make(map[string]any, len(s.values))
	for k, v := range s.values {
		if k != key {
			copied[k] = v
		}
	}
	return State{values: copied}
}

// Len returns the number of entries in the state.
func (s State) Len() int {
	return len(s.values)
}

// String returns the string value for key, or "" if absent or not a string.
func (s State) String(key string) string {
	if v, ok := s.values[key]; ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return ""
}

// Int returns the int value for key, or 0 if absent or not an int.
func (s State) Int(key string) int {
	if v, ok := s.values[key]; ok {
		if n, ok := v.(int); ok {
			return n
		}
	}
	return 0
}

// Fingerprint serializes the state deterministically for response-cache
// keying. Map keys sort during JSON encoding, so identical states always
// produce identical fingerprints.
func (s State) Fingerprint() (string, error) {
	data, err := json.Marshal(s.values)
	if err != nil {
		return "", fmt.Errorf("serializing state: %w", err)
	}
	return string(data), nil
}
