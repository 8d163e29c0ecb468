package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hypatia-ai/hypatia"
)

// RunStore persists run records. Implementations must be safe for concurrent
// use; callers receive copies and never share Run pointers with the store.
type RunStore interface {
	// Save writes or overwrites the run record.
	Save(ctx context.Context, run *Run) error

	// Get returns the run with the given id, or ErrRunNotFound.
	Get(ctx context.Context, id string) (*Run, error)

	// List returns all runs, ordered by start time then id.
	List(ctx context.Context) ([]*Run, error)

	// Close releases any underlying resources.
	Close() error
}

// MemoryRunStore is the in-process RunStore.
type MemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewMemoryRunStore creates an empty in-memory store.
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: make(map[string]*Run)}
}

// Save writes or overwrites the run record.
func (s *MemoryRunStore) Save(_ context.Context, run *Run) error {
	if run == nil || run.ID == "" {
		return hypatia.NewValidationError("MemoryRunStore.Save",
			fmt.Errorf("run id is required"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run.Clone()
	return nil
}

// Get returns the run with the given id.
func (s *MemoryRunStore) Get(_ context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, hypatia.NewNotFoundError("MemoryRunStore.Get",
			fmt.Errorf("%w: %s", hypatia.ErrRunNotFound, id))
	}
	return run.Clone(), nil
}

// List returns all runs, ordered by start time then id.
func (s *MemoryRunStore) List(_ context.Context) ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Run, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryRunStore) Close() error {
	return nil
}
