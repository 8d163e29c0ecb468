package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypatia-ai/hypatia"
	"github.com/hypatia-ai/hypatia/stage"
)

func TestMemoryRunStoreSaveAndGet(t *testing.T) {
	store := NewMemoryRunStore()
	ctx := context.Background()

	run := NewRun(RunRequest{GraphPath: "g.yaml", Objective: "o", ConceptA: "a", ConceptB: "b"})
	require.NoError(t, store.Save(ctx, run))

	got, err := store.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, StatusRunning, got.Status)
}

func TestMemoryRunStoreGetUnknown(t *testing.T) {
	store := NewMemoryRunStore()

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, hypatia.ErrRunNotFound)
}

func TestMemoryRunStoreIsolatesCopies(t *testing.T) {
	store := NewMemoryRunStore()
	ctx := context.Background()

	run := NewRun(RunRequest{GraphPath: "g.yaml", Objective: "o", ConceptA: "a", ConceptB: "b"})
	run.ConfidenceTrace = []ConfidenceSample{{Stage: "planner", Confidence: 0.8}}
	require.NoError(t, store.Save(ctx, run))

	// Mutating the caller's record after Save must not affect the store.
	run.Status = StatusAborted
	run.ConfidenceTrace[0].Confidence = 0

	got, err := store.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
	assert.InDelta(t, 0.8, got.ConfidenceTrace[0].Confidence, 1e-9)

	// Mutating a fetched copy must not affect later reads.
	got.Status = StatusRejected
	again, err := store.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, again.Status)
}

func TestMemoryRunStoreIsolatesHypothesisSlices(t *testing.T) {
	store := NewMemoryRunStore()
	ctx := context.Background()

	run := NewRun(RunRequest{GraphPath: "g.yaml", Objective: "o", ConceptA: "a", ConceptB: "b"})
	run.Hypothesis = &stage.Hypothesis{
		Background: "b",
		Hypothesis: "h",
		Mechanisms: []string{"coupling"},
		Citations:  []string{"Silk mechanics (doi:1)"},
	}
	require.NoError(t, store.Save(ctx, run))

	// Mutating slice elements through either copy must not leak across.
	run.Hypothesis.Mechanisms[0] = "overwritten"
	got, err := store.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "coupling", got.Hypothesis.Mechanisms[0])

	got.Hypothesis.Citations[0] = "tampered"
	again, err := store.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "Silk mechanics (doi:1)", again.Hypothesis.Citations[0])
}

func TestMemoryRunStoreListOrdersByStartTime(t *testing.T) {
	store := NewMemoryRunStore()
	ctx := context.Background()

	older := NewRun(RunRequest{GraphPath: "g", Objective: "o", ConceptA: "a", ConceptB: "b"})
	older.StartedAt = time.Now().Add(-time.Hour)
	newer := NewRun(RunRequest{GraphPath: "g", Objective: "o", ConceptA: "a", ConceptB: "b"})

	require.NoError(t, store.Save(ctx, newer))
	require.NoError(t, store.Save(ctx, older))

	runs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, older.ID, runs[0].ID)
	assert.Equal(t, newer.ID, runs[1].ID)
}

func TestMemoryRunStoreRejectsMissingID(t *testing.T) {
	store := NewMemoryRunStore()
	assert.Error(t, store.Save(context.Background(), &Run{}))
}
