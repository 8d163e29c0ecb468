package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hypatia-ai/hypatia"
	"github.com/hypatia-ai/hypatia/checkpoint"
	"github.com/hypatia-ai/hypatia/graph"
)

// Runner is the in-process run control surface: it starts runs as
// independent tasks, answers status polls, and delivers final results.
// Safe for concurrent use.
type Runner struct {
	orch   *Orchestrator
	store  RunStore
	logger *slog.Logger

	mu      sync.Mutex
	done    map[string]chan struct{}
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// Orchestrator executes runs. Required.
	Orchestrator *Orchestrator

	// Store persists run records. Default: NewMemoryRunStore().
	Store RunStore

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// NewRunner creates a Runner from the given configuration.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Orchestrator == nil {
		return nil, hypatia.NewConfigurationError("pipeline.NewRunner",
			fmt.Errorf("%w: orchestrator is required", hypatia.ErrInvalidConfig))
	}
	store := cfg.Store
	if store == nil {
		store = NewMemoryRunStore()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		orch:    cfg.Orchestrator,
		store:   store,
		logger:  logger,
		done:    make(map[string]chan struct{}),
		cancels: make(map[string]context.CancelFunc),
	}, nil
}

// Start validates the request, persists a RUNNING record, and executes the
// run on its own goroutine. It returns the run id immediately.
func (r *Runner) Start(ctx context.Context, req RunRequest) (string, error) {
	const op = "Runner.Start"

	if req.GraphPath == "" || req.Objective == "" || req.ConceptA == "" || req.ConceptB == "" {
		return "", hypatia.NewValidationError(op,
			fmt.Errorf("graph path, objective, and both concepts are required"))
	}
	if req.Strategy != "" {
		if _, err := graph.ParseStrategy(req.Strategy); err != nil {
			return "", hypatia.NewValidationError(op, err)
		}
	}

	run := NewRun(req)
	if err := r.store.Save(ctx, run); err != nil {
		return "", err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	doneCh := make(chan struct{})
	r.mu.Lock()
	r.done[run.ID] = doneCh
	r.cancels[run.ID] = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		// Terminal state is persisted before the defers run, so late
		// callers fall through to the store.
		defer func() {
			r.mu.Lock()
			delete(r.done, run.ID)
			delete(r.cancels, run.ID)
			r.mu.Unlock()
		}()
		defer close(doneCh)
		defer cancel()

		persist := func(snapshot *Run) {
			if err := r.store.Save(runCtx, snapshot); err != nil {
				r.logger.Error("persisting run failed", "run_id", snapshot.ID, "error", err)
			}
		}
		if err := r.orch.Execute(runCtx, run, persist); err != nil {
			r.logger.Error("run execution failed", "run_id", run.ID, "error", err)
		}
		r.logger.Info("run finished",
			"run_id", run.ID, "status", run.Status, "iterations", run.Iterations)
	}()

	return run.ID, nil
}

// Status returns the current run record.
func (r *Runner) Status(ctx context.Context, id string) (*Run, error) {
	return r.store.Get(ctx, id)
}

// Result blocks until the run reaches a terminal status or ctx is cancelled,
// then returns the final record.
func (r *Runner) Result(ctx context.Context, id string) (*Run, error) {
	r.mu.Lock()
	doneCh, ok := r.done[id]
	r.mu.Unlock()

	if !ok {
		// Not started by this runner instance: the store is authoritative.
		run, err := r.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if !run.Status.IsTerminal() {
			return nil, hypatia.NewExecutionError("Runner.Result",
				fmt.Errorf("run %s is still %s and not owned by this runner", id, run.Status))
		}
		return run, nil
	}

	select {
	case <-doneCh:
		return r.store.Get(ctx, id)
	case <-ctx.Done():
		return nil, hypatia.NewExecutionError("Runner.Result", ctx.Err())
	}
}

// Cancel aborts a running task. Cancelling an unknown or finished run is a
// no-op returning ErrRunNotFound.
func (r *Runner) Cancel(id string) error {
	r.mu.Lock()
	cancel, ok := r.cancels[id]
	r.mu.Unlock()
	if !ok {
		return hypatia.NewNotFoundError("Runner.Cancel",
			fmt.Errorf("%w: %s", hypatia.ErrRunNotFound, id))
	}
	cancel()
	return nil
}

// List returns all persisted runs.
func (r *Runner) List(ctx context.Context) ([]*Run, error) {
	return r.store.List(ctx)
}

// Checkpoints exposes the checkpoint manager for the human feedback surface.
// Nil when the orchestrator runs without gates.
func (r *Runner) Checkpoints() *checkpoint.Manager {
	return r.orch.cfg.Checkpoints
}

// Wait blocks until every started run has finished. Intended for shutdown.
func (r *Runner) Wait() {
	r.wg.Wait()
}
