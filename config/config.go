// Package config loads and validates the YAML configuration for the
// hypothesis pipeline: graph and path-finding settings, model and call
// limits, cache tiers, checkpoint behavior, and run persistence.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hypatia-ai/hypatia"
	"github.com/hypatia-ai/hypatia/checkpoint"
	"github.com/hypatia-ai/hypatia/graph"
)

// Config is the full pipeline configuration.
type Config struct {
	// Graph configures path finding over the knowledge graph.
	Graph GraphConfig `yaml:"graph"`

	// Model configures the external reasoning model.
	Model ModelConfig `yaml:"model"`

	// Cache configures the graph and response caches.
	Cache CacheConfig `yaml:"cache"`

	// Checkpoint configures human review gates.
	Checkpoint CheckpointConfig `yaml:"checkpoint"`

	// Pipeline configures the revise loop and run persistence.
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// GraphConfig configures graph loading and path extraction.
type GraphConfig struct {
	// Path is the knowledge graph source document.
	Path string `yaml:"path"`

	// Strategy is the path ranking strategy: shortest, strongest, balanced.
	Strategy string `yaml:"strategy"`

	// BalancedWeight is the strength weight for the balanced strategy.
	BalancedWeight float64 `yaml:"balanced_weight"`

	// MaxPaths bounds the number of extracted paths.
	MaxPaths int `yaml:"max_paths"`
}

// ModelConfig configures the external reasoning model.
type ModelConfig struct {
	// Provider selects the provider implementation. Default: "ollama".
	Provider string `yaml:"provider"`

	// BaseURL points at the provider server. Empty uses the provider's
	// own default.
	BaseURL string `yaml:"base_url"`

	// ID is the model identifier passed to the provider.
	ID string `yaml:"id"`

	// CallTimeout bounds each provider call.
	CallTimeout Duration `yaml:"call_timeout"`

	// MaxRetries bounds retries after transient failures.
	MaxRetries int `yaml:"max_retries"`

	// RequestsPerSecond throttles outbound calls. Zero disables limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// CacheConfig configures the cache tiers.
type CacheConfig struct {
	// GraphMaxSize bounds the in-memory graph cache. Zero means unbounded.
	GraphMaxSize int `yaml:"graph_max_size"`

	// GraphTTL expires cached graphs. Zero disables expiry.
	GraphTTL Duration `yaml:"graph_ttl"`

	// ResponseMaxSize bounds the in-memory response cache.
	ResponseMaxSize int `yaml:"response_max_size"`

	// ResponseTTL expires cached responses.
	ResponseTTL Duration `yaml:"response_ttl"`

	// RedisURL enables the persisted tier when set (e.g.,
	// "redis://localhost:6379").
	RedisURL string `yaml:"redis_url"`

	// RedisKeyPrefix namespaces persisted keys. Default: "hypatia".
	RedisKeyPrefix string `yaml:"redis_key_prefix"`
}

// CheckpointConfig configures human review gates.
type CheckpointConfig struct {
	// Mode is disabled, advisory, or blocking.
	Mode string `yaml:"mode"`

	// Timeout bounds blocking waits.
	Timeout Duration `yaml:"timeout"`

	// AdvisoryGrace is the advisory auto-approve window.
	AdvisoryGrace Duration `yaml:"advisory_grace"`

	// DefaultPolicy is a CEL expression over {stage, confidence} deciding
	// timed-out checkpoints.
	DefaultPolicy string `yaml:"default_policy"`

	// GatedStages lists the stages whose outputs require review.
	GatedStages []string `yaml:"gated_stages"`
}

// PipelineConfig configures the revise loop and run persistence.
type PipelineConfig struct {
	// MaxIterations bounds the revise loop.
	MaxIterations int `yaml:"max_iterations"`

	// EtcdEndpoints enables the durable run store when set.
	EtcdEndpoints []string `yaml:"etcd_endpoints"`

	// EtcdNamespace prefixes run keys. Default: "hypatia".
	EtcdNamespace string `yaml:"etcd_namespace"`
}

// Default returns a configuration with every tunable at its default.
func Default() Config {
	return Config{
		Graph: GraphConfig{
			Strategy:       graph.StrategyShortest.String(),
			BalancedWeight: graph.DefaultBalancedWeight,
			MaxPaths:       graph.DefaultMaxPaths,
		},
		Model: ModelConfig{
			Provider:    "ollama",
			CallTimeout: Duration(60 * time.Second),
			MaxRetries:  1,
		},
		Cache: CacheConfig{
			ResponseMaxSize: 1024,
			RedisKeyPrefix:  "hypatia",
		},
		Checkpoint: CheckpointConfig{
			Mode:          checkpoint.ModeDisabled.String(),
			Timeout:       Duration(checkpoint.DefaultTimeout),
			AdvisoryGrace: Duration(checkpoint.DefaultAdvisoryGrace),
		},
		Pipeline: PipelineConfig{
			MaxIterations: 3,
			EtcdNamespace: "hypatia",
		},
	}
}

// Load reads a YAML configuration file over the defaults and validates it.
func Load(path string) (Config, error) {
	const op = "config.Load"

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, hypatia.NewNotFoundError(op, fmt.Errorf("reading config %q: %w", path, err))
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, hypatia.NewValidationError(op,
			fmt.Errorf("%w: decoding config: %v", hypatia.ErrInvalidConfig, err))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration's internal consistency.
func (c Config) Validate() error {
	const op = "config.Validate"
	fail := func(err error) error {
		return hypatia.NewConfigurationError(op, fmt.Errorf("%w: %v", hypatia.ErrInvalidConfig, err))
	}

	if c.Graph.Path == "" {
		return fail(fmt.Errorf("graph.path is required"))
	}
	if _, err := graph.ParseStrategy(c.Graph.Strategy); err != nil {
		return fail(err)
	}
	if c.Graph.BalancedWeight < 0 || c.Graph.BalancedWeight > 1 {
		return fail(fmt.Errorf("graph.balanced_weight %v outside [0,1]", c.Graph.BalancedWeight))
	}
	if c.Graph.MaxPaths <= 0 {
		return fail(fmt.Errorf("graph.max_paths must be positive"))
	}

	if c.Model.ID == "" {
		return fail(fmt.Errorf("model.id is required"))
	}
	if c.Model.CallTimeout <= 0 {
		return fail(fmt.Errorf("model.call_timeout must be positive"))
	}
	if c.Model.MaxRetries < 0 {
		return fail(fmt.Errorf("model.max_retries cannot be negative"))
	}
	if c.Model.RequestsPerSecond < 0 {
		return fail(fmt.Errorf("model.requests_per_second cannot be negative"))
	}

	mode, err := checkpoint.ParseMode(c.Checkpoint.Mode)
	if err != nil {
		return fail(err)
	}
	if mode != checkpoint.ModeDisabled && c.Checkpoint.Timeout <= 0 {
		return fail(fmt.Errorf("checkpoint.timeout must be positive when gating is enabled"))
	}
	if c.Checkpoint.DefaultPolicy != "" {
		if _, err := checkpoint.NewPolicy(c.Checkpoint.DefaultPolicy); err != nil {
			return fail(fmt.Errorf("checkpoint.default_policy: %v", err))
		}
	}

	if c.Pipeline.MaxIterations <= 0 {
		return fail(fmt.Errorf("pipeline.max_iterations must be positive"))
	}

	return nil
}
