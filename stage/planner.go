package stage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hypatia-ai/hypatia"
	"github.com/hypatia-ai/hypatia/graph"
)

// PlannerOutput is the Planner's structured payload: the graph context the
// rest of the pipeline reasons over.
type PlannerOutput struct {
	// Subgraph is the extracted node/edge subset.
	Subgraph *graph.Subgraph `json:"subgraph"`

	// Rationale explains how the subgraph was selected.
	Rationale string `json:"rationale"`

	// Degraded is true when the requested concepts could not be connected
	// and hub-seeded exploration produced the subgraph instead.
	Degraded bool `json:"degraded"`
}

// Validate checks the payload against its fixed schema.
func (o *PlannerOutput) Validate() error {
	if o.Subgraph == nil || o.Subgraph.IsEmpty() {
		return fmt.Errorf("planner output has no subgraph")
	}
	if o.Rationale == "" {
		return fmt.Errorf("planner output has no rationale")
	}
	return nil
}

// PlannerConfig configures the Planner stage.
type PlannerConfig struct {
	// Index is the graph index to plan over. Required.
	Index *graph.Index

	// Strategy selects path ranking. Default: graph.StrategyShortest.
	Strategy graph.Strategy

	// BalancedWeight is the strength weight for graph.StrategyBalanced.
	BalancedWeight float64

	// MaxPaths bounds the number of paths extracted.
	// Default: graph.DefaultMaxPaths.
	MaxPaths int

	// HubSeeds is how many hub nodes seed exploration when the requested
	// pair cannot be connected. Default: 3.
	HubSeeds int

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Planner selects the subgraph between the two requested concepts. It never
// raises for recoverable conditions: unknown concepts or a disconnected pair
// degrade to hub-seeded exploration, and only an empty graph context yields
// a zero-confidence soft failure, so the orchestrator can decide whether to
// abort.
type Planner struct {
	cfg    PlannerConfig
	finder *graph.Finder
	logger *slog.Logger
}

// NewPlanner creates a Planner stage.
func NewPlanner(cfg PlannerConfig) (*Planner, error) {
	if cfg.Index == nil {
		return nil, hypatia.NewConfigurationError("stage.NewPlanner",
			fmt.Errorf("%w: graph index is required", hypatia.ErrInvalidConfig))
	}
	if cfg.Strategy == "" {
		cfg.Strategy = graph.StrategyShortest
	}
	if cfg.BalancedWeight == 0 {
		cfg.BalancedWeight = graph.DefaultBalancedWeight
	}
	if cfg.MaxPaths <= 0 {
		cfg.MaxPaths = graph.DefaultMaxPaths
	}
	if cfg.HubSeeds <= 0 {
		cfg.HubSeeds = 3
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{
		cfg:    cfg,
		finder: graph.NewFinder(cfg.Index),
		logger: logger,
	}, nil
}

// Name returns the stage's identity.
func (p *Planner) Name() Name {
	return NamePlanner
}

// Run extracts the subgraph between concept_a and concept_b from state.
func (p *Planner) Run(ctx context.Context, state State) (Result, error) {
	conceptA := state.String(KeyConceptA)
	conceptB := state.String(KeyConceptB)
	if conceptA == "" || conceptB == "" {
		return Result{}, hypatia.NewContractError("Planner.Run",
			fmt.Errorf("state is missing %s/%s", KeyConceptA, KeyConceptB))
	}

	paths, err := p.finder.FindPaths(conceptA, conceptB,
		graph.WithStrategy(p.cfg.Strategy),
		graph.WithBalancedWeight(p.cfg.BalancedWeight),
		graph.WithMaxPaths(p.cfg.MaxPaths),
	)

	switch {
	case err != nil && errors.Is(err, hypatia.ErrNodeNotFound):
		p.logger.Info("planner degrading to hub-seeded exploration",
			"concept_a", conceptA, "concept_b", conceptB, "reason", "unknown concept")
		return p.hubSeeded(conceptA, conceptB), nil
	case err != nil:
		return softFailure(NamePlanner, err), nil
	case len(paths) == 0:
		p.logger.Info("planner degrading to hub-seeded exploration",
			"concept_a", conceptA, "concept_b", conceptB, "reason", "disconnected")
		return p.hubSeeded(conceptA, conceptB), nil
	}

	sub := graph.FromPaths(p.cfg.Index.Graph(), paths)
	out := &PlannerOutput{
		Subgraph: sub,
		Rationale: fmt.Sprintf(
			"selected %d %s path(s) from %q to %q spanning %d nodes (best avg strength %.2f)",
			len(paths), p.cfg.Strategy, conceptA, conceptB, len(sub.Nodes), paths[0].AverageStrength),
	}
	return Result{Stage: NamePlanner, Output: out, Confidence: paths[0].AverageStrength}, nil
}

// hubSeeded explores outward from the top hub nodes toward whichever of the
// requested concepts exist, collecting whatever connected context is
// available. An empty result is the Planner's one genuine soft failure.
func (p *Planner) hubSeeded(conceptA, conceptB string) Result {
	var paths []graph.Path
	hubs := p.cfg.Index.HubNodes(p.cfg.HubSeeds)

	for _, hub := range hubs {
		for _, target := range []string{conceptA, conceptB} {
			if hub == target || !p.cfg.Index.Has(target) {
				continue
			}
			found, err := p.finder.FindPaths(hub, target,
				graph.WithStrategy(p.cfg.Strategy),
				graph.WithBalancedWeight(p.cfg.BalancedWeight),
				graph.WithMaxPaths(1),
			)
			if err == nil {
				paths = append(paths, found...)
			}
		}
	}

	// No reachable concept: fall back to the hubs' own neighborhoods.
	if len(paths) == 0 {
		for _, hub := range hubs {
			for _, e := range p.cfg.Index.Outgoing(hub) {
				paths = append(paths, graph.Path{
					Nodes:           []string{e.Source, e.Target},
					Edges:           []graph.Edge{e},
					AverageStrength: e.Confidence,
				})
			}
		}
	}

	if len(paths) == 0 {
		return softFailure(NamePlanner,
			fmt.Errorf("no graph context reachable for %q and %q", conceptA, conceptB))
	}

	sub := graph.FromPaths(p.cfg.Index.Graph(), paths)
	out := &PlannerOutput{
		Subgraph: sub,
		Rationale: fmt.Sprintf(
			"hub-seeded exploration from %d hub(s) covering %d nodes; requested pair %q-%q was not directly connected",
			len(hubs), len(sub.Nodes), conceptA, conceptB),
		Degraded: true,
	}
	// Degraded context is usable but earns reduced confidence.
	return Result{Stage: NamePlanner, Output: out, Confidence: 0.4}
}
