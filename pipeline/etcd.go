package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/hypatia-ai/hypatia"
)

// EtcdConfig configures an EtcdRunStore.
type EtcdConfig struct {
	// Endpoints lists the etcd cluster members. Required.
	Endpoints []string

	// Namespace prefixes all keys. Default: "hypatia".
	Namespace string

	// DialTimeout bounds the initial connection. Default: 5s.
	DialTimeout time.Duration
}

// EtcdRunStore persists run records in etcd so job state survives process
// restarts. Keys are <namespace>/runs/<id>, values are the JSON-encoded Run.
//
// Thread-safety: all methods are safe for concurrent use.
type EtcdRunStore struct {
	client    *clientv3.Client
	namespace string
}

// NewEtcdRunStore connects to etcd and verifies connectivity.
func NewEtcdRunStore(cfg EtcdConfig) (*EtcdRunStore, error) {
	const op = "pipeline.NewEtcdRunStore"

	if len(cfg.Endpoints) == 0 {
		return nil, hypatia.NewConfigurationError(op,
			fmt.Errorf("%w: etcd endpoints cannot be empty", hypatia.ErrInvalidConfig))
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "hypatia"
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, hypatia.NewExecutionError(op, fmt.Errorf("creating etcd client: %w", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := cli.Get(ctx, namespace+"/health-check"); err != nil && err != context.DeadlineExceeded {
		cli.Close()
		return nil, hypatia.NewExecutionError(op, fmt.Errorf("etcd health check failed: %w", err))
	}

	return &EtcdRunStore{client: cli, namespace: namespace}, nil
}

func (s *EtcdRunStore) runKey(id string) string {
	return s.namespace + "/runs/" + id
}

// Save writes or overwrites the run record.
func (s *EtcdRunStore) Save(ctx context.Context, run *Run) error {
	const op = "EtcdRunStore.Save"

	if run == nil || run.ID == "" {
		return hypatia.NewValidationError(op, fmt.Errorf("run id is required"))
	}
	data, err := json.Marshal(run)
	if err != nil {
		return hypatia.NewInternalError(op, fmt.Errorf("encoding run %s: %w", run.ID, err))
	}
	if _, err := s.client.Put(ctx, s.runKey(run.ID), string(data)); err != nil {
		return hypatia.NewExecutionError(op, fmt.Errorf("writing run %s: %w", run.ID, err))
	}
	return nil
}

// Get returns the run with the given id.
func (s *EtcdRunStore) Get(ctx context.Context, id string) (*Run, error) {
	const op = "EtcdRunStore.Get"

	resp, err := s.client.Get(ctx, s.runKey(id))
	if err != nil {
		return nil, hypatia.NewExecutionError(op, fmt.Errorf("reading run %s: %w", id, err))
	}
	if len(resp.Kvs) == 0 {
		return nil, hypatia.NewNotFoundError(op, fmt.Errorf("%w: %s", hypatia.ErrRunNotFound, id))
	}

	var run Run
	if err := json.Unmarshal(resp.Kvs[0].Value, &run); err != nil {
		return nil, hypatia.NewInternalError(op, fmt.Errorf("decoding run %s: %w", id, err))
	}
	return &run, nil
}

// List returns all runs, ordered by start time then id.
func (s *EtcdRunStore) List(ctx context.Context) ([]*Run, error) {
	const op = "EtcdRunStore.List"

	resp, err := s.client.Get(ctx, s.namespace+"/runs/", clientv3.WithPrefix())
	if err != nil {
		return nil, hypatia.NewExecutionError(op, fmt.Errorf("listing runs: %w", err))
	}

	out := make([]*Run, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var run Run
		if err := json.Unmarshal(kv.Value, &run); err != nil {
			return nil, hypatia.NewInternalError(op,
				fmt.Errorf("decoding run at %s: %w", string(kv.Key), err))
		}
		out = append(out, &run)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Close releases the etcd connection.
func (s *EtcdRunStore) Close() error {
	return s.client.Close()
}

var _ RunStore = (*EtcdRunStore)(nil)
var _ RunStore = (*MemoryRunStore)(nil)
