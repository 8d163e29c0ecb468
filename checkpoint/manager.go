package checkpoint

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hypatia-ai/hypatia"
)

// Mode controls how the manager gates stages.
type Mode string

const (
	// ModeDisabled skips checkpoints entirely; gates approve immediately.
	ModeDisabled Mode = "disabled"

	// ModeAdvisory raises checkpoints but auto-approves unresolved ones
	// after a grace period.
	ModeAdvisory Mode = "advisory"

	// ModeBlocking suspends the run until resolution or timeout; timeout
	// falls through to the default policy.
	ModeBlocking Mode = "blocking"
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	return string(m)
}

// IsValid checks if the mode is a recognized value.
func (m Mode) IsValid() bool {
	switch m {
	case ModeDisabled, ModeAdvisory, ModeBlocking:
		return true
	default:
		return false
	}
}

// ParseMode parses a string into a Mode, tolerating case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disabled":
		return ModeDisabled, nil
	case "advisory":
		return ModeAdvisory, nil
	case "blocking":
		return ModeBlocking, nil
	default:
		return "", fmt.Errorf("invalid checkpoint mode: %s", s)
	}
}

// Default manager tuning.
const (
	// DefaultTimeout bounds a blocking wait.
	DefaultTimeout = 5 * time.Minute

	// DefaultAdvisoryGrace is how long an advisory checkpoint stays open.
	DefaultAdvisoryGrace = 10 * time.Second
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Mode selects the gating behavior. Default: ModeDisabled.
	Mode Mode

	// Timeout bounds blocking waits. Default: DefaultTimeout.
	Timeout time.Duration

	// AdvisoryGrace is the advisory-mode auto-approve window.
	// Default: DefaultAdvisoryGrace.
	AdvisoryGrace time.Duration

	// DefaultPolicy decides timed-out blocking checkpoints. When nil,
	// timeouts reject.
	DefaultPolicy *Policy

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// pending pairs a record with the continuation channel its waiter blocks on.
type pending struct {
	record *Record
	ch     chan Resolution
}

// Manager tracks checkpoints across runs and hands resolutions to suspended
// waiters. Safe for concurrent use. The mutex covers only map and record
// bookkeeping; no lock is held while a waiter is suspended.
type Manager struct {
	mode          Mode
	timeout       time.Duration
	advisoryGrace time.Duration
	defaultPolicy *Policy
	logger        *slog.Logger

	mu      sync.Mutex
	pending map[string]*pending
	history []*Record
}

// NewManager creates a Manager from the given configuration.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	mode := cfg.Mode
	if mode == "" {
		mode = ModeDisabled
	}
	if !mode.IsValid() {
		return nil, hypatia.NewConfigurationError("checkpoint.NewManager",
			fmt.Errorf("%w: invalid mode %q", hypatia.ErrInvalidConfig, cfg.Mode))
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	grace := cfg.AdvisoryGrace
	if grace <= 0 {
		grace = DefaultAdvisoryGrace
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		mode:          mode,
		timeout:       timeout,
		advisoryGrace: grace,
		defaultPolicy: cfg.DefaultPolicy,
		logger:        logger,
		pending:       make(map[string]*pending),
	}, nil
}

// Mode returns the manager's gating mode.
func (m *Manager) Mode() Mode {
	return m.mode
}

func checkpointKey(runID, stage string) string {
	return runID + "/" + stage
}

// Create raises a pending checkpoint for the given run and stage. A second
// pending checkpoint for the same pair is a contract violation.
func (m *Manager) Create(runID, stage string, confidence float64, payload any) (*Record, error) {
	const op = "checkpoint.Manager.Create"

	m.mu.Lock()
	defer m.mu.Unlock()

	key := checkpointKey(runID, stage)
	if _, exists := m.pending[key]; exists {
		return nil, hypatia.NewValidationError(op,
			fmt.Errorf("%w: run %s stage %s", hypatia.ErrDuplicateCheckpoint, runID, stage))
	}

	rec := newRecord(runID, stage, confidence, payload, time.Now())
	m.pending[key] = &pending{
		record: rec,
		ch:     make(chan Resolution, 1),
	}
	m.history = append(m.history, rec)

	m.logger.Info("checkpoint raised",
		"checkpoint_id", rec.ID, "run_id", runID, "stage", stage, "confidence", confidence)
	return rec, nil
}

// Resolve delivers a reviewer's verdict to the pending checkpoint for the
// given run and stage. Resolving an unknown or already settled checkpoint
// returns ErrCheckpointNotFound.
func (m *Manager) Resolve(runID, stage string, res Resolution) error {
	const op = "checkpoint.Manager.Resolve"

	if err := res.Validate(); err != nil {
		return hypatia.NewValidationError(op, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := checkpointKey(runID, stage)
	p, ok := m.pending[key]
	if !ok {
		return hypatia.NewNotFoundError(op,
			fmt.Errorf("%w: run %s stage %s", hypatia.ErrCheckpointNotFound, runID, stage))
	}

	m.settleLocked(key, p, StatusResolved, res)
	p.ch <- res

	m.logger.Info("checkpoint resolved",
		"checkpoint_id", p.record.ID, "run_id", runID, "stage", stage, "action", res.Action)
	return nil
}

// settleLocked finalizes a pending checkpoint. Caller holds m.mu.
func (m *Manager) settleLocked(key string, p *pending, status Status, res Resolution) {
	now := time.Now()
	p.record.Status = status
	p.record.Resolution = &res
	p.record.ResolvedAt = &now
	delete(m.pending, key)
}

// Wait suspends until the checkpoint for the given run and stage is resolved,
// the timeout elapses, or ctx is cancelled. On timeout the checkpoint flips
// to TIMED_OUT and the default policy decides the outcome; the policy runs
// exactly once even if a resolution races the timer.
func (m *Manager) Wait(ctx context.Context, runID, stage string, timeout time.Duration) (Resolution, error) {
	return m.wait(ctx, runID, stage, timeout, m.defaultResolution)
}

// wait implements the suspension. The fallback decides the outcome when the
// timer fires before a resolution arrives; it runs exactly once, under the
// manager lock, so it never races a concurrent Resolve.
func (m *Manager) wait(ctx context.Context, runID, stage string, timeout time.Duration, fallback func(stage string, confidence float64) Resolution) (Resolution, error) {
	const op = "checkpoint.Manager.Wait"

	m.mu.Lock()
	key := checkpointKey(runID, stage)
	p, ok := m.pending[key]
	if !ok {
		// A resolution may have arrived before this waiter did; the
		// settled record still carries it.
		rec := m.latestLocked(runID, stage)
		m.mu.Unlock()
		if rec != nil && rec.Resolution != nil {
			return *rec.Resolution, nil
		}
		return Resolution{}, hypatia.NewNotFoundError(op,
			fmt.Errorf("%w: run %s stage %s", hypatia.ErrCheckpointNotFound, runID, stage))
	}
	m.mu.Unlock()

	if timeout <= 0 {
		timeout = m.timeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-p.ch:
		return res, nil

	case <-ctx.Done():
		m.mu.Lock()
		defer m.mu.Unlock()
		// A resolution may have landed between wakeup and lock.
		select {
		case res := <-p.ch:
			return res, nil
		default:
		}
		m.settleLocked(key, p, StatusTimedOut, Resolution{Action: ActionReject, Notes: "run cancelled"})
		return Resolution{}, hypatia.NewExecutionError(op, ctx.Err())

	case <-timer.C:
		m.mu.Lock()
		defer m.mu.Unlock()
		select {
		case res := <-p.ch:
			return res, nil
		default:
		}
		res := fallback(stage, p.record.Confidence)
		m.settleLocked(key, p, StatusTimedOut, res)
		m.logger.Warn("checkpoint timed out",
			"checkpoint_id", p.record.ID, "run_id", runID, "stage", stage, "action", res.Action)
		return res, nil
	}
}

// defaultResolution evaluates the default policy for a timed-out checkpoint.
// With no policy configured, or a policy that fails, timeouts reject.
func (m *Manager) defaultResolution(stage string, confidence float64) Resolution {
	if m.defaultPolicy == nil {
		return Resolution{Action: ActionReject, Notes: "timed out with no default policy"}
	}
	action, err := m.defaultPolicy.Evaluate(stage, confidence)
	if err != nil {
		m.logger.Error("default policy evaluation failed", "stage", stage, "error", err)
		return Resolution{Action: ActionReject, Notes: "timed out; default policy failed"}
	}
	return Resolution{Action: action, Notes: "timed out; default policy applied"}
}

// Gate is the orchestrator entry point: it raises a checkpoint for the stage
// output and blocks per the manager's mode. Disabled mode approves without
// raising anything; advisory mode auto-approves after the grace window.
func (m *Manager) Gate(ctx context.Context, runID, stage string, confidence float64, payload any) (Resolution, error) {
	if m.mode == ModeDisabled {
		return Resolution{Action: ActionApprove}, nil
	}

	if _, err := m.Create(runID, stage, confidence, payload); err != nil {
		return Resolution{}, err
	}

	// Advisory gates never block progress: an unresolved grace window
	// approves instead of consulting the default policy.
	if m.mode == ModeAdvisory {
		return m.wait(ctx, runID, stage, m.advisoryGrace, func(string, float64) Resolution {
			return Resolution{Action: ActionApprove, Notes: "advisory grace elapsed"}
		})
	}
	return m.wait(ctx, runID, stage, m.timeout, m.defaultResolution)
}

// record returns the most recent record for the given run and stage, or nil.
func (m *Manager) record(runID, stage string) *Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latestLocked(runID, stage)
}

// latestLocked is record without the locking. Caller holds m.mu.
func (m *Manager) latestLocked(runID, stage string) *Record {
	for i := len(m.history) - 1; i >= 0; i-- {
		if m.history[i].RunID == runID && m.history[i].Stage == stage {
			return m.history[i]
		}
	}
	return nil
}

// Get returns the most recent checkpoint record for the given run and stage.
func (m *Manager) Get(runID, stage string) (*Record, error) {
	rec := m.record(runID, stage)
	if rec == nil {
		return nil, hypatia.NewNotFoundError("checkpoint.Manager.Get",
			fmt.Errorf("%w: run %s stage %s", hypatia.ErrCheckpointNotFound, runID, stage))
	}
	return rec, nil
}

// Pending lists all pending checkpoints, ordered by creation time then id.
func (m *Manager) Pending() []*Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Record, 0, len(m.pending))
	for _, p := range m.pending {
		out = append(out, p.record)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
