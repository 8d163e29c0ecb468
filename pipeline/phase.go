package pipeline

import (
	"fmt"

	"github.com/hypatia-ai/hypatia/stage"
)

// Phase is the pipeline's position in the stage sequence. Phases advance
// strictly forward except for the REVISE loop, which re-enters HYPOTHESIS.
// DONE is terminal; no transition leaves it.
type Phase string

const (
	// PhasePlanning extracts the graph context.
	PhasePlanning Phase = "PLANNING"

	// PhaseOntology interprets the subgraph into domain concepts.
	PhaseOntology Phase = "ONTOLOGY"

	// PhaseHypothesis generates or revises the hypothesis.
	PhaseHypothesis Phase = "HYPOTHESIS"

	// PhaseExpansion elaborates the hypothesis.
	PhaseExpansion Phase = "EXPANSION"

	// PhaseCritique evaluates the hypothesis.
	PhaseCritique Phase = "CRITIQUE"

	// PhaseDone is the terminal phase.
	PhaseDone Phase = "DONE"
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// IsValid checks if the phase is a recognized value.
func (p Phase) IsValid() bool {
	switch p {
	case PhasePlanning, PhaseOntology, PhaseHypothesis, PhaseExpansion, PhaseCritique, PhaseDone:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the phase permits no further transitions.
func (p Phase) IsTerminal() bool {
	return p == PhaseDone
}

// phaseFor maps a stage to the phase during which it runs.
func phaseFor(name stage.Name) Phase {
	switch name {
	case stage.NamePlanner:
		return PhasePlanning
	case stage.NameOntologist:
		return PhaseOntology
	case stage.NameScientist:
		return PhaseHypothesis
	case stage.NameExpander:
		return PhaseExpansion
	case stage.NameCritic:
		return PhaseCritique
	default:
		return PhaseDone
	}
}

// transition validates a phase change. Forward steps, the REVISE re-entry
// from CRITIQUE to HYPOTHESIS, and entering DONE from CRITIQUE are the only
// legal moves.
func transition(from, to Phase) error {
	if from.IsTerminal() {
		return fmt.Errorf("phase %s is terminal", from)
	}
	legal := map[Phase][]Phase{
		PhasePlanning:   {PhaseOntology, PhaseDone},
		PhaseOntology:   {PhaseHypothesis, PhaseDone},
		PhaseHypothesis: {PhaseExpansion, PhaseDone},
		PhaseExpansion:  {PhaseCritique, PhaseDone},
		PhaseCritique:   {PhaseHypothesis, PhaseDone},
	}
	for _, p := range legal[from] {
		if p == to {
			return nil
		}
	}
	return fmt.Errorf("illegal phase transition %s -> %s", from, to)
}
