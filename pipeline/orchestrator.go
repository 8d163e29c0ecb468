package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/hypatia-ai/hypatia"
	"github.com/hypatia-ai/hypatia/cache"
	"github.com/hypatia-ai/hypatia/checkpoint"
	"github.com/hypatia-ai/hypatia/graph"
	"github.com/hypatia-ai/hypatia/llm"
	"github.com/hypatia-ai/hypatia/retrieval"
	"github.com/hypatia-ai/hypatia/stage"
)

// instrumentationName identifies spans and metrics emitted by this package.
const instrumentationName = "github.com/hypatia-ai/hypatia/pipeline"

// DefaultMaxIterations bounds the revise loop.
const DefaultMaxIterations = 3

// OrchestratorConfig configures an Orchestrator.
type OrchestratorConfig struct {
	// Graphs loads and caches knowledge graphs. Required.
	Graphs *cache.GraphCache

	// LLM is the client configuration shared by all stages. The provider
	// is required; each run gets its own client with a fresh token tracker
	// over this configuration.
	LLM llm.ClientConfig

	// Checkpoints gates stage outputs. Nil behaves as a disabled manager.
	Checkpoints *checkpoint.Manager

	// GatedStages lists the stages whose outputs pass through the
	// checkpoint gate. Empty means no stage is gated.
	GatedStages []stage.Name

	// Strategy selects path ranking for the Planner.
	Strategy graph.Strategy

	// BalancedWeight is the strength weight for the balanced strategy.
	BalancedWeight float64

	// MaxPaths bounds path extraction.
	MaxPaths int

	// MaxIterations bounds the revise loop. Default: DefaultMaxIterations.
	MaxIterations int

	// Literature optionally enables citation search in the Expander.
	Literature retrieval.LiteratureSearcher

	// LiteratureRefs caps citations fetched per pass.
	LiteratureRefs int

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Orchestrator drives one run through the five stages, the revise loop, and
// the checkpoint gates. It owns no run state between calls; everything about
// a run lives in its Run record and the per-run pipeline state.
type Orchestrator struct {
	cfg           OrchestratorConfig
	gated         map[stage.Name]bool
	maxIterations int
	logger        *slog.Logger
	tracer        trace.Tracer
	stageRuns     metric.Int64Counter
	stageLatency  metric.Float64Histogram
}

// NewOrchestrator creates an Orchestrator from the given configuration.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	const op = "pipeline.NewOrchestrator"

	if cfg.Graphs == nil {
		return nil, hypatia.NewConfigurationError(op,
			fmt.Errorf("%w: graph cache is required", hypatia.ErrInvalidConfig))
	}
	if cfg.LLM.Provider == nil {
		return nil, hypatia.NewConfigurationError(op,
			fmt.Errorf("%w: llm provider is required", hypatia.ErrInvalidConfig))
	}

	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	gated := make(map[stage.Name]bool, len(cfg.GatedStages))
	for _, name := range cfg.GatedStages {
		if !name.IsValid() {
			return nil, hypatia.NewConfigurationError(op,
				fmt.Errorf("%w: unknown gated stage %q", hypatia.ErrInvalidConfig, name))
		}
		gated[name] = true
	}

	meter := otel.Meter(instrumentationName)
	stageRuns, err := meter.Int64Counter("pipeline.stage.runs",
		metric.WithDescription("Stage executions by stage and outcome"))
	if err != nil {
		return nil, hypatia.NewInternalError(op, err)
	}
	stageLatency, err := meter.Float64Histogram("pipeline.stage.duration",
		metric.WithDescription("Stage execution latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, hypatia.NewInternalError(op, err)
	}

	return &Orchestrator{
		cfg:           cfg,
		gated:         gated,
		maxIterations: maxIterations,
		logger:        logger,
		tracer:        otel.Tracer(instrumentationName),
		stageRuns:     stageRuns,
		stageLatency:  stageLatency,
	}, nil
}

// Execute drives the run to a terminal status, calling persist after every
// phase change. The run must be RUNNING; terminal runs are never re-entered.
func (o *Orchestrator) Execute(ctx context.Context, run *Run, persist func(*Run)) error {
	const op = "Orchestrator.Execute"

	if run.Status.IsTerminal() || run.Phase.IsTerminal() {
		return hypatia.NewContractError(op,
			fmt.Errorf("run %s is already terminal (%s)", run.ID, run.Status))
	}
	if persist == nil {
		persist = func(*Run) {}
	}

	ctx, span := o.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", run.ID),
		attribute.String("run.concept_a", run.Request.ConceptA),
		attribute.String("run.concept_b", run.Request.ConceptB),
	))
	defer span.End()

	maxIterations := o.maxIterations
	if run.Request.MaxIterations > 0 {
		maxIterations = run.Request.MaxIterations
	}

	tracker := llm.NewTokenTracker()
	stages, err := o.buildStages(ctx, run, tracker)
	if err != nil {
		run.finish(StatusAborted, err.Error())
		persist(run)
		span.SetStatus(codes.Error, err.Error())
		return nil
	}

	state := stage.NewState(map[string]any{
		stage.KeyObjective: run.Request.Objective,
		stage.KeyConceptA:  run.Request.ConceptA,
		stage.KeyConceptB:  run.Request.ConceptB,
		stage.KeyIteration: 0,
	})

	idx := 0
	for {
		if err := ctx.Err(); err != nil {
			run.finish(StatusAborted, "cancelled: "+err.Error())
			persist(run)
			span.SetStatus(codes.Error, "cancelled")
			return nil
		}

		st := stages[idx]
		if err := o.enterPhase(run, phaseFor(st.Name()), persist); err != nil {
			run.finish(StatusAborted, err.Error())
			persist(run)
			return nil
		}

		result, done := o.runStage(ctx, run, st, state, tracker, persist)
		if done {
			return nil
		}

		res, gateErr := o.gate(ctx, run, st.Name(), result)
		if gateErr != nil {
			run.finish(StatusAborted, gateErr.Error())
			persist(run)
			return nil
		}
		switch res.Action {
		case checkpoint.ActionReject:
			run.finish(StatusAborted, fmt.Sprintf("checkpoint rejected at %s: %s", st.Name(), res.Notes))
			persist(run)
			return nil
		case checkpoint.ActionModify:
			substituted, err := substituteOutput(st.Name(), res.Content)
			if err != nil {
				run.finish(StatusAborted, err.Error())
				persist(run)
				return nil
			}
			result.Output = substituted
		}

		state = state.With(st.Name().String(), result.Output)

		if st.Name() != stage.NameCritic {
			idx++
			continue
		}

		verdict, ok := result.Output.(*stage.CriticOutput)
		if !ok {
			run.finish(StatusAborted, "critic produced no verdict")
			persist(run)
			return nil
		}

		switch verdict.Decision {
		case stage.DecisionApprove:
			o.complete(run, state, tracker, persist)
			return nil

		case stage.DecisionReject:
			o.snapshotUsage(run, tracker)
			run.finish(StatusRejected, verdict.Rationale)
			persist(run)
			return nil

		case stage.DecisionRevise:
			// The cap bounds re-entries, not critiques: a run re-enters
			// the hypothesis phase maxIterations times before a further
			// REVISE forces completion with the flag set.
			if run.Iterations >= maxIterations {
				run.MaxIterationsReached = true
				o.complete(run, state, tracker, persist)
				return nil
			}
			run.Iterations++
			state = state.
				With(stage.KeyGuidance, verdict.Guidance).
				With(stage.KeyIteration, run.Iterations).
				Without(stage.NameCritic.String()).
				Without(stage.NameExpander.String())
			idx = stageIndex(stages, stage.NameScientist)
			o.logger.Info("revise loop re-entering hypothesis phase",
				"run_id", run.ID, "iteration", run.Iterations)

		default:
			run.finish(StatusAborted, fmt.Sprintf("unknown critic decision %q", verdict.Decision))
			persist(run)
			return nil
		}
	}
}

// buildStages constructs the per-run stage sequence: the Planner binds to the
// run's graph index, the reasoning stages to a per-run client sharing the
// orchestrator's provider and cache.
func (o *Orchestrator) buildStages(ctx context.Context, run *Run, tracker llm.TokenTracker) ([]stage.Stage, error) {
	g, err := o.cfg.Graphs.Load(ctx, run.Request.GraphPath)
	if err != nil {
		return nil, fmt.Errorf("loading graph %s: %w", run.Request.GraphPath, err)
	}

	clientCfg := o.cfg.LLM
	clientCfg.Tracker = tracker
	client, err := llm.NewClient(clientCfg)
	if err != nil {
		return nil, err
	}

	strategy := o.cfg.Strategy
	if run.Request.Strategy != "" {
		parsed, err := graph.ParseStrategy(run.Request.Strategy)
		if err != nil {
			return nil, err
		}
		strategy = parsed
	}

	planner, err := stage.NewPlanner(stage.PlannerConfig{
		Index:          graph.BuildIndex(g),
		Strategy:       strategy,
		BalancedWeight: o.cfg.BalancedWeight,
		MaxPaths:       o.cfg.MaxPaths,
		Logger:         o.logger,
	})
	if err != nil {
		return nil, err
	}

	var expanderOpts []stage.ExpanderOption
	if o.cfg.Literature != nil {
		expanderOpts = append(expanderOpts, stage.WithLiterature(o.cfg.Literature, o.cfg.LiteratureRefs))
	}
	expanderOpts = append(expanderOpts, stage.WithExpanderLogger(o.logger))

	return []stage.Stage{
		planner,
		stage.NewOntologist(client),
		stage.NewScientist(client),
		stage.NewExpander(client, expanderOpts...),
		stage.NewCritic(client),
	}, nil
}

// enterPhase transitions the run's phase and persists.
func (o *Orchestrator) enterPhase(run *Run, to Phase, persist func(*Run)) error {
	if run.Phase == to {
		return nil
	}
	if err := transition(run.Phase, to); err != nil {
		return err
	}
	run.Phase = to
	persist(run)
	return nil
}

// runStage executes one stage, records its confidence sample and metrics,
// and converts failures into terminal run states. The bool return reports
// whether the run has finished.
func (o *Orchestrator) runStage(ctx context.Context, run *Run, st stage.Stage, state stage.State, tracker llm.TokenTracker, persist func(*Run)) (stage.Result, bool) {
	name := st.Name()

	ctx, span := o.tracer.Start(ctx, "pipeline.stage."+name.String(), trace.WithAttributes(
		attribute.String("run.id", run.ID),
		attribute.Int("run.iteration", run.Iterations),
	))
	defer span.End()

	start := time.Now()
	result, err := st.Run(ctx, state)
	elapsed := time.Since(start)

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case result.Failed():
		outcome = "soft_failure"
	}
	attrs := metric.WithAttributes(
		attribute.String("stage", name.String()),
		attribute.String("outcome", outcome),
	)
	o.stageRuns.Add(ctx, 1, attrs)
	o.stageLatency.Record(ctx, elapsed.Seconds(), attrs)

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		o.snapshotUsage(run, tracker)
		run.finish(StatusAborted, fmt.Sprintf("stage %s: %v", name, err))
		persist(run)
		return stage.Result{}, true
	}

	run.ConfidenceTrace = append(run.ConfidenceTrace, ConfidenceSample{
		Stage:      name.String(),
		Iteration:  run.Iterations,
		Confidence: result.Confidence,
	})

	if result.Failed() {
		span.SetStatus(codes.Error, result.Err.Error())
		o.snapshotUsage(run, tracker)
		status := StatusAborted
		if errors.Is(result.Err, hypatia.ErrExternalCallTimeout) {
			status = StatusTimedOut
		}
		run.finish(status, fmt.Sprintf("stage %s failed: %v", name, result.Err))
		persist(run)
		return stage.Result{}, true
	}

	if err := result.Validate(); err != nil {
		o.snapshotUsage(run, tracker)
		run.finish(StatusAborted, fmt.Sprintf("stage %s: %v", name, err))
		persist(run)
		return stage.Result{}, true
	}

	persist(run)
	return result, false
}

// gate passes a stage result through the checkpoint manager when the stage
// is configured for review.
func (o *Orchestrator) gate(ctx context.Context, run *Run, name stage.Name, result stage.Result) (checkpoint.Resolution, error) {
	if o.cfg.Checkpoints == nil || !o.gated[name] {
		return checkpoint.Resolution{Action: checkpoint.ActionApprove}, nil
	}
	return o.cfg.Checkpoints.Gate(ctx, run.ID, name.String(), result.Confidence, result.Output)
}

// substituteOutput validates reviewer-edited content before it replaces a
// stage output in pipeline state.
func substituteOutput(name stage.Name, content any) (stage.Output, error) {
	out, ok := content.(stage.Output)
	if !ok {
		return nil, fmt.Errorf("checkpoint modification for %s is not a stage output (%T)", name, content)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("checkpoint modification for %s invalid: %w", name, err)
	}
	return out, nil
}

// complete finalizes an approved (or iteration-capped) run.
func (o *Orchestrator) complete(run *Run, state stage.State, tracker llm.TokenTracker, persist func(*Run)) {
	o.snapshotUsage(run, tracker)
	run.Hypothesis = finalHypothesis(state)
	run.finish(StatusCompleted, "")
	persist(run)
}

// snapshotUsage copies the per-run tracker into the run record.
func (o *Orchestrator) snapshotUsage(run *Run, tracker llm.TokenTracker) {
	stages := tracker.Stages()
	if len(stages) == 0 {
		return
	}
	if run.TokenUsage == nil {
		run.TokenUsage = make(map[string]llm.TokenUsage, len(stages))
	}
	for _, name := range stages {
		run.TokenUsage[name] = tracker.ByStage(name)
	}
}

// finalHypothesis pulls the latest hypothesis out of pipeline state.
func finalHypothesis(state stage.State) *stage.Hypothesis {
	for _, key := range []string{stage.NameExpander.String(), stage.NameScientist.String()} {
		if v, ok := state.Get(key); ok {
			if h, ok := v.(*stage.Hypothesis); ok {
				return h
			}
		}
	}
	return nil
}

// stageIndex locates a stage by name in the sequence.
func stageIndex(stages []stage.Stage, name stage.Name) int {
	for i, st := range stages {
		if st.Name() == name {
			return i
		}
	}
	return 0
}
