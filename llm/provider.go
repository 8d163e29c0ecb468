package llm

import "context"

// Provider is the external LLM collaborator boundary. Implementations talk
// to a hosted model; the pipeline only ever depends on this contract.
type Provider interface {
	// Complete generates a response for the given request. The context
	// carries the per-call timeout set by the client.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}

// StreamingProvider is implemented by providers that can deliver the
// response token by token.
type StreamingProvider interface {
	Provider

	// Stream generates a response as a sequence of chunks. The returned
	// channel is closed after the final chunk or when ctx is cancelled.
	Stream(ctx context.Context, req *CompletionRequest) (<-chan StreamChunk, error)
}

// ProviderFunc adapts a plain function to the Provider interface.
// Useful for tests and small scripted providers.
type ProviderFunc func(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

// Complete calls f.
func (f ProviderFunc) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	return f(ctx, req)
}
