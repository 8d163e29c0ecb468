// Package stage implements the five ordered reasoning stages of the
// pipeline: Planner, Ontologist, Scientist, Expander, and Critic.
//
// Each stage is a pure function of the immutable pipeline State and at most
// one external LLM call: it never mutates its input and returns a Result
// carrying a typed, schema-validated output payload plus a confidence score.
// External-call failures are soft: the Result records the error with
// confidence zero and the orchestrator decides whether to abort. The Planner
// additionally degrades to hub-seeded exploration before giving up.
//
// The Critic closes the loop by emitting an APPROVE/REVISE/REJECT decision;
// on REVISE it attaches structured revision guidance that the next
// Scientist/Expander pass consumes from state.
package stage
