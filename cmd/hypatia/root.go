package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hypatia-ai/hypatia/cache"
	"github.com/hypatia-ai/hypatia/checkpoint"
	"github.com/hypatia-ai/hypatia/config"
	"github.com/hypatia-ai/hypatia/graph"
	"github.com/hypatia-ai/hypatia/llm"
	"github.com/hypatia-ai/hypatia/pipeline"
	"github.com/hypatia-ai/hypatia/stage"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "hypatia",
	Short: "Hypatia - graph-grounded hypothesis generation",
	Long: `Hypatia coordinates a multi-stage reasoning workflow over a typed
knowledge graph to produce and iteratively refine scientific hypotheses,
with optional human checkpoints between stages.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with signal handling.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "hypatia.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resolveCmd)
}

// newLogger builds the process logger honoring --verbose.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// app bundles the wired components a command needs.
type app struct {
	cfg         config.Config
	runner      *pipeline.Runner
	checkpoints *checkpoint.Manager
	store       pipeline.RunStore
	logger      *slog.Logger
}

// buildApp wires the full pipeline from the configuration file.
func buildApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := newLogger()

	provider, err := buildProvider(cfg.Model)
	if err != nil {
		return nil, err
	}

	var persisted cache.PersistedTier
	if cfg.Cache.RedisURL != "" {
		tier, err := cache.NewRedisTier(cache.RedisOptions{
			URL:       cfg.Cache.RedisURL,
			KeyPrefix: cfg.Cache.RedisKeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		persisted = tier
	}

	graphs := cache.NewGraphCache(cache.GraphCacheConfig{
		MaxSize:   cfg.Cache.GraphMaxSize,
		TTL:       cfg.Cache.GraphTTL.Std(),
		Persisted: persisted,
		Logger:    logger,
	})
	responses := cache.NewResponseCache(cache.ResponseCacheConfig{
		MaxSize:   cfg.Cache.ResponseMaxSize,
		TTL:       cfg.Cache.ResponseTTL.Std(),
		Persisted: persisted,
		Logger:    logger,
	})

	var policy *checkpoint.Policy
	if cfg.Checkpoint.DefaultPolicy != "" {
		policy, err = checkpoint.NewPolicy(cfg.Checkpoint.DefaultPolicy)
		if err != nil {
			return nil, err
		}
	}
	mode, err := checkpoint.ParseMode(cfg.Checkpoint.Mode)
	if err != nil {
		return nil, err
	}
	checkpoints, err := checkpoint.NewManager(checkpoint.ManagerConfig{
		Mode:          mode,
		Timeout:       cfg.Checkpoint.Timeout.Std(),
		AdvisoryGrace: cfg.Checkpoint.AdvisoryGrace.Std(),
		DefaultPolicy: policy,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	gated := make([]stage.Name, 0, len(cfg.Checkpoint.GatedStages))
	for _, name := range cfg.Checkpoint.GatedStages {
		gated = append(gated, stage.Name(name))
	}

	strategy, err := graph.ParseStrategy(cfg.Graph.Strategy)
	if err != nil {
		return nil, err
	}

	orch, err := pipeline.NewOrchestrator(pipeline.OrchestratorConfig{
		Graphs: graphs,
		LLM: llm.ClientConfig{
			Provider:          provider,
			Model:             cfg.Model.ID,
			Cache:             responses,
			CallTimeout:       cfg.Model.CallTimeout.Std(),
			MaxRetries:        cfg.Model.MaxRetries,
			RequestsPerSecond: cfg.Model.RequestsPerSecond,
			Logger:            logger,
		},
		Checkpoints:    checkpoints,
		GatedStages:    gated,
		Strategy:       strategy,
		BalancedWeight: cfg.Graph.BalancedWeight,
		MaxPaths:       cfg.Graph.MaxPaths,
		MaxIterations:  cfg.Pipeline.MaxIterations,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	store, err := buildStore(cfg.Pipeline)
	if err != nil {
		return nil, err
	}

	runner, err := pipeline.NewRunner(pipeline.RunnerConfig{
		Orchestrator: orch,
		Store:        store,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:         cfg,
		runner:      runner,
		checkpoints: checkpoints,
		store:       store,
		logger:      logger,
	}, nil
}

// buildProvider selects the provider implementation.
func buildProvider(cfg config.ModelConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "", "ollama":
		return llm.NewOllamaProvider(llm.OllamaConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.ID,
		})
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

// buildStore selects run persistence: etcd when configured, memory otherwise.
func buildStore(cfg config.PipelineConfig) (pipeline.RunStore, error) {
	if len(cfg.EtcdEndpoints) == 0 {
		return pipeline.NewMemoryRunStore(), nil
	}
	return pipeline.NewEtcdRunStore(pipeline.EtcdConfig{
		Endpoints: cfg.EtcdEndpoints,
		Namespace: cfg.EtcdNamespace,
	})
}
