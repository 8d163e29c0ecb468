package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/hypatia-ai/hypatia"
	"github.com/hypatia-ai/hypatia/cache"
)

// instrumentationName identifies spans emitted by this package.
const instrumentationName = "github.com/hypatia-ai/hypatia/llm"

// Default client tuning.
const (
	// DefaultCallTimeout bounds a single provider call.
	DefaultCallTimeout = 60 * time.Second

	// DefaultMaxRetries is the bounded retry count for transient failures.
	DefaultMaxRetries = 1

	// DefaultRetryBackoff is the base delay between retry attempts.
	DefaultRetryBackoff = 500 * time.Millisecond
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// Provider is the external LLM collaborator. Required.
	Provider Provider

	// Model is the default model identifier for requests that do not set one.
	Model string

	// Cache is the optional response cache consulted before every call.
	Cache *cache.ResponseCache

	// Tracker optionally accumulates token usage per stage.
	Tracker TokenTracker

	// CallTimeout bounds each provider attempt. Default: DefaultCallTimeout.
	CallTimeout time.Duration

	// MaxRetries is the number of retries after a transient failure.
	// Default: DefaultMaxRetries.
	MaxRetries int

	// RetryBackoff is the base backoff, scaled linearly per attempt.
	// Default: DefaultRetryBackoff.
	RetryBackoff time.Duration

	// RequestsPerSecond throttles outbound calls. Zero disables limiting.
	RequestsPerSecond float64

	// Burst is the limiter burst size. Defaults to 1 when limiting is on.
	Burst int

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client wraps a Provider with response caching, per-call timeouts, bounded
// retries with backoff, rate limiting, and token accounting. Safe for
// concurrent use.
type Client struct {
	provider Provider
	model    string
	cache    *cache.ResponseCache
	tracker  TokenTracker
	timeout  time.Duration
	retries  int
	backoff  time.Duration
	limiter  *rate.Limiter
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewClient creates a Client from the given configuration.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Provider == nil {
		return nil, hypatia.NewConfigurationError("llm.NewClient",
			fmt.Errorf("%w: provider is required", hypatia.ErrInvalidConfig))
	}

	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = DefaultMaxRetries
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = DefaultRetryBackoff
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		provider: cfg.Provider,
		model:    cfg.Model,
		cache:    cfg.Cache,
		tracker:  cfg.Tracker,
		timeout:  timeout,
		retries:  retries,
		backoff:  backoff,
		limiter:  limiter,
		logger:   logger,
		tracer:   otel.Tracer(instrumentationName),
	}, nil
}

// CallOption configures a single Complete call.
type CallOption func(*callConfig)

type callConfig struct {
	stateKey string
	stage    string
	noCache  bool
}

// WithStateKey supplies the serialized pipeline state the request was built
// from. It becomes part of the cache fingerprint so identical stage inputs
// share one external call.
func WithStateKey(key string) CallOption {
	return func(c *callConfig) {
		c.stateKey = key
	}
}

// WithStage attributes the call's token usage to a stage name.
func WithStage(stage string) CallOption {
	return func(c *callConfig) {
		c.stage = stage
	}
}

// WithoutCache bypasses the response cache for this call.
func WithoutCache() CallOption {
	return func(c *callConfig) {
		c.noCache = true
	}
}

// Complete executes a completion request through the cache, rate limiter,
// timeout, and retry policy. Cache hits return without an external call and
// without recording token usage.
func (c *Client) Complete(ctx context.Context, req *CompletionRequest, opts ...CallOption) (*CompletionResponse, error) {
	const op = "llm.Client.Complete"

	var cc callConfig
	for _, opt := range opts {
		opt(&cc)
	}

	model := req.Model
	if model == "" {
		model = c.model
	}

	ctx, span := c.tracer.Start(ctx, "llm.complete", trace.WithAttributes(
		attribute.String("llm.model", model),
		attribute.String("llm.stage", cc.stage),
	))
	defer span.End()

	var fingerprint string
	if c.cache != nil && !cc.noCache {
		prompt, err := json.Marshal(req.Messages)
		if err != nil {
			return nil, hypatia.NewInternalError(op, fmt.Errorf("serializing messages: %w", err))
		}
		fingerprint = cache.Fingerprint(string(prompt), cc.stateKey, model)

		if data, ok := c.cache.Get(ctx, fingerprint); ok {
			var resp CompletionResponse
			if err := json.Unmarshal(data, &resp); err == nil {
				span.SetAttributes(attribute.Bool("llm.cache_hit", true))
				return &resp, nil
			}
			c.logger.Warn("cached response undecodable, refetching", "fingerprint", fingerprint)
		}
	}
	span.SetAttributes(attribute.Bool("llm.cache_hit", false))

	resp, err := c.completeWithRetry(ctx, req, model)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if c.tracker != nil && cc.stage != "" {
		c.tracker.Add(cc.stage, resp.Usage)
	}

	if fingerprint != "" {
		if data, err := json.Marshal(resp); err == nil {
			c.cache.Set(ctx, fingerprint, data)
		}
	}

	return resp, nil
}

// completeWithRetry drives the bounded retry loop. The parent context aborts
// the loop immediately; a per-attempt timeout classifies slow calls.
func (c *Client) completeWithRetry(ctx context.Context, req *CompletionRequest, model string) (*CompletionResponse, error) {
	const op = "llm.Client.Complete"

	attempt := *req
	attempt.Model = model

	var lastErr error
	for i := 0; i <= c.retries; i++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, hypatia.NewExecutionError(op,
					fmt.Errorf("%w: rate limiter: %v", hypatia.ErrExternalCallFailure, err))
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.provider.Complete(callCtx, &attempt)
		cancel()

		if err == nil {
			return resp, nil
		}
		lastErr = err

		// Parent cancellation is not retryable.
		if ctx.Err() != nil {
			return nil, hypatia.NewExecutionError(op,
				fmt.Errorf("%w: %v", hypatia.ErrExternalCallFailure, ctx.Err()))
		}

		if errors.Is(err, context.DeadlineExceeded) {
			lastErr = fmt.Errorf("%w: attempt %d: %v", hypatia.ErrExternalCallTimeout, i+1, err)
		} else {
			lastErr = fmt.Errorf("%w: attempt %d: %v", hypatia.ErrExternalCallFailure, i+1, err)
		}

		if i < c.retries {
			c.logger.Debug("llm call failed, retrying",
				"attempt", i+1, "backoff", c.backoff*time.Duration(i+1), "error", err)
			select {
			case <-time.After(c.backoff * time.Duration(i+1)):
			case <-ctx.Done():
				return nil, hypatia.NewExecutionError(op,
					fmt.Errorf("%w: %v", hypatia.ErrExternalCallFailure, ctx.Err()))
			}
		}
	}

	if errors.Is(lastErr, hypatia.ErrExternalCallTimeout) {
		return nil, hypatia.NewTimeoutError(op, lastErr)
	}
	return nil, hypatia.NewExecutionError(op, lastErr)
}
