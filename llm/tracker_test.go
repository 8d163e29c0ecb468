package llm

import (
	"sync"
	"testing"
)

func TestTokenTrackerAddAndTotal(t *testing.T) {
	tracker := NewTokenTracker()

	tracker.Add("scientist", TokenUsage{InputTokens: 100, OutputTokens: 50, TotalTokens: 150})
	tracker.Add("critic", TokenUsage{InputTokens: 40, OutputTokens: 10, TotalTokens: 50})
	tracker.Add("scientist", TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15})

	total := tracker.Total()
	if total.TotalTokens != 215 {
		t.Errorf("Total().TotalTokens = %d, want 215", total.TotalTokens)
	}

	sci := tracker.ByStage("scientist")
	if sci.InputTokens != 110 {
		t.Errorf("ByStage(scientist).InputTokens = %d, want 110", sci.InputTokens)
	}

	if got := tracker.ByStage("unknown"); got != (TokenUsage{}) {
		t.Errorf("ByStage(unknown) = %+v, want zero", got)
	}
}

func TestTokenTrackerStagesSorted(t *testing.T) {
	tracker := NewTokenTracker()
	tracker.Add("scientist", TokenUsage{TotalTokens: 1})
	tracker.Add("critic", TokenUsage{TotalTokens: 1})
	tracker.Add("planner", TokenUsage{TotalTokens: 1})

	stages := tracker.Stages()
	want := []string{"critic", "planner", "scientist"}
	if len(stages) != len(want) {
		t.Fatalf("Stages() = %v, want %v", stages, want)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Errorf("Stages()[%d] = %q, want %q", i, stages[i], want[i])
		}
	}
}

func TestTokenTrackerReset(t *testing.T) {
	tracker := NewTokenTracker()
	tracker.Add("planner", TokenUsage{TotalTokens: 10})
	tracker.Reset()

	if tracker.Total() != (TokenUsage{}) {
		t.Error("Reset should clear the total")
	}
	if len(tracker.Stages()) != 0 {
		t.Error("Reset should clear the stages")
	}
}

func TestTokenTrackerConcurrentAdds(t *testing.T) {
	tracker := NewTokenTracker()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tracker.Add("stage", TokenUsage{TotalTokens: 1})
			}
		}()
	}
	wg.Wait()

	if got := tracker.Total().TotalTokens; got != 1000 {
		t.Errorf("Total().TotalTokens = %d, want 1000", got)
	}
}
