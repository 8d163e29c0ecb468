// Package llm defines the narrow contract with the hosted language-model
// collaborator and the client the reasoning stages call through.
//
// The Provider interface is the external boundary: it accepts an ordered
// list of role/content messages plus a model identifier and returns generated
// text, optionally streamed chunk by chunk. Its internals, such as prompt
// composition and model behavior, are out of scope here.
//
// Client wraps a Provider with the infrastructure the pipeline requires:
// a response cache keyed by a deterministic fingerprint of the call inputs,
// a per-call timeout, a bounded retry with backoff, and a rate limiter.
// Timeouts and exhausted retries surface as errors wrapping
// hypatia.ErrExternalCallTimeout / hypatia.ErrExternalCallFailure so stages
// can degrade softly instead of crashing the run.
package llm
