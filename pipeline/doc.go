// Package pipeline drives the five-stage hypothesis workflow: a phase state
// machine with a bounded revise loop, run records with confidence traces and
// token accounting, checkpoint gating, and a Runner that executes concurrent
// runs against a pluggable RunStore.
package pipeline
