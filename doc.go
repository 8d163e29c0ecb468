// Package hypatia coordinates a multi-stage reasoning workflow over a typed
// knowledge graph to produce and iteratively refine scientific hypotheses.
//
// # Core Concepts
//
// The module is organized around several key concepts:
//
//   - Knowledge graph: an immutable typed graph of concepts loaded from a
//     persisted document, indexed for adjacency and hub lookup (package graph)
//   - Stages: the five ordered reasoning steps of the pipeline: Planner,
//     Ontologist, Scientist, Expander, Critic (package stage)
//   - Pipeline: the orchestrator that drives stages sequentially and owns the
//     revise/approve/reject loop (package pipeline)
//   - Checkpoints: human-in-the-loop gates that pause a run at a stage
//     boundary until resolved or timed out (package checkpoint)
//   - Caches: TTL/LRU caches for loaded graphs and LLM responses, with an
//     optional Redis persisted tier (package cache)
//
// External collaborators, namely the LLM provider and literature search, are
// reached through narrow interfaces (packages llm and retrieval); their
// internals are out of scope for this module.
//
// # Getting Started
//
// Start a run through the pipeline runner:
//
//	orch, err := pipeline.NewOrchestrator(pipeline.OrchestratorConfig{
//		Graphs:      cache.NewGraphCache(cache.GraphCacheConfig{}),
//		LLM:         llm.ClientConfig{Provider: provider, Model: "llama3"},
//		Checkpoints: checkpoints,
//	})
//	runner, err := pipeline.NewRunner(pipeline.RunnerConfig{
//		Orchestrator: orch,
//	})
//	runID, err := runner.Start(ctx, pipeline.RunRequest{
//		GraphPath: "materials.yaml",
//		Objective: "Link silk nanostructure to low-energy processing",
//		ConceptA:  "silk",
//		ConceptB:  "energy_efficiency",
//	})
//
// Poll with runner.Status and collect the final hypothesis with
// runner.Result once the run reaches a terminal status.
package hypatia
