package stage

import (
	"testing"
)

func TestStateWithDoesNotMutateReceiver(t *testing.T) {
	base := NewState(map[string]any{KeyObjective: "origins of superconductivity"})

	derived := base.With(KeyIteration, 2)

	if _, ok := base.Get(KeyIteration); ok {
		t.Error("With() modified the receiver")
	}
	if derived.Int(KeyIteration) != 2 {
		t.Errorf("derived iteration = %d, want 2", derived.Int(KeyIteration))
	}
	if base.Len() != 1 || derived.Len() != 2 {
		t.Errorf("lengths = %d, %d, want 1, 2", base.Len(), derived.Len())
	}
}

func TestStateWithout(t *testing.T) {
	base := NewState(map[string]any{
		KeyObjective: "x",
		KeyGuidance:  "stale",
	})

	trimmed := base.Without(KeyGuidance)

	if _, ok := trimmed.Get(KeyGuidance); ok {
		t.Error("Without() left the key in place")
	}
	if _, ok := base.Get(KeyGuidance); !ok {
		t.Error("Without() modified the receiver")
	}
}

func TestStateNewStateCopiesInput(t *testing.T) {
	seed := map[string]any{KeyObjective: "x"}
	s := NewState(seed)

	seed[KeyObjective] = "mutated"

	if got := s.String(KeyObjective); got != "x" {
		t.Errorf("objective = %q, want %q", got, "x")
	}
}

func TestStateTypedAccessors(t *testing.T) {
	s := NewState(map[string]any{
		KeyObjective: "goal",
		KeyIteration: 3,
	})

	if got := s.String(KeyObjective); got != "goal" {
		t.Errorf("String = %q, want %q", got, "goal")
	}
	if got := s.Int(KeyIteration); got != 3 {
		t.Errorf("Int = %d, want 3", got)
	}
	if got := s.String(KeyIteration); got != "" {
		t.Errorf("String on int key = %q, want empty", got)
	}
	if got := s.Int("missing"); got != 0 {
		t.Errorf("Int on missing key = %d, want 0", got)
	}
}

func TestStateFingerprintDeterministic(t *testing.T) {
	a := NewState(map[string]any{KeyObjective: "x", KeyConceptA: "n1", KeyConceptB: "n2"})
	b := NewState(map[string]any{KeyConceptB: "n2", KeyObjective: "x", KeyConceptA: "n1"})

	fa, err := a.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	fb, err := b.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if fa != fb {
		t.Errorf("fingerprints differ for identical states:\n%s\n%s", fa, fb)
	}

	c := a.With(KeyIteration, 1)
	fc, err := c.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if fc == fa {
		t.Error("fingerprint unchanged after state change")
	}
}
