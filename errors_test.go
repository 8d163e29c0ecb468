package hypatia

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want []string
	}{
		{
			name: "with underlying error",
			err:  &Error{Op: "graph.Load", Kind: KindValidation, Err: ErrMalformedGraph},
			want: []string{"graph.Load", "validation", "malformed graph"},
		},
		{
			name: "without underlying error",
			err:  &Error{Op: "Runner.Start", Kind: KindInternal},
			want: []string{"Runner.Start", "internal"},
		},
		{
			name: "with context",
			err: (&Error{Op: "findPath", Kind: KindNotFound, Err: ErrNodeNotFound}).
				WithContext(map[string]any{"node_id": "silk"}),
			want: []string{"findPath", "not_found", "node_id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.want {
				if !strings.Contains(msg, want) {
					t.Errorf("Error() = %q, missing %q", msg, want)
				}
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	err := NewValidationError("graph.Load", ErrMalformedGraph)

	if !errors.Is(err, ErrMalformedGraph) {
		t.Error("errors.Is should match the wrapped sentinel")
	}
	if errors.Is(err, ErrNodeNotFound) {
		t.Error("errors.Is should not match an unrelated sentinel")
	}
}

func TestErrorIsKindMatching(t *testing.T) {
	err := NewTimeoutError("llm.Complete", ErrExternalCallTimeout)

	if !errors.Is(err, &Error{Kind: KindTimeout}) {
		t.Error("kind-only target should match")
	}
	if !errors.Is(err, &Error{Op: "llm.Complete", Kind: KindTimeout}) {
		t.Error("op+kind target should match")
	}
	if errors.Is(err, &Error{Op: "other", Kind: KindTimeout}) {
		t.Error("mismatched op should not match")
	}
}

func TestErrorAs(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NewContractError("checkpoint.Resolve", ErrCheckpointNotFound))

	var e *Error
	if !errors.As(wrapped, &e) {
		t.Fatal("errors.As should find the structured error")
	}
	if e.Kind != KindContract {
		t.Errorf("Kind = %q, want %q", e.Kind, KindContract)
	}
}

func TestWithContextDoesNotMutateOriginal(t *testing.T) {
	orig := NewNotFoundError("store.Get", ErrRunNotFound)
	withCtx := orig.WithContext(map[string]any{"run_id": "r1"})

	if orig.Context != nil {
		t.Error("original error context should stay nil")
	}
	if withCtx.Context["run_id"] != "r1" {
		t.Error("context not applied to copy")
	}
}
