package llm

// StreamChunk represents a chunk of data received during streaming completion.
type StreamChunk struct {
	// Delta contains the incremental text content for this chunk.
	// Append deltas in order to build the full response.
	Delta string

	// FinishReason indicates why the generation stopped.
	// Only set on the final chunk.
	FinishReason string

	// Usage contains token usage statistics.
	// Typically only set on the final chunk.
	Usage *TokenUsage

	// Err reports a mid-stream failure. The channel closes after an
	// error chunk.
	Err error
}

// IsFinal returns true if this is the final chunk in the stream.
func (c *StreamChunk) IsFinal() bool {
	return c.FinishReason != ""
}

// HasContent returns true if this chunk contains text content.
func (c *StreamChunk) HasContent() bool {
	return c.Delta != ""
}

// StreamAccumulator accumulates chunks from a streaming response.
type StreamAccumulator struct {
	// Content holds the accumulated text content.
	Content string

	// FinishReason holds the final reason for completion.
	FinishReason string

	// Usage holds the final token usage statistics.
	Usage *TokenUsage
}

// NewStreamAccumulator creates a new accumulator for streaming responses.
func NewStreamAccumulator() *StreamAccumulator {
	return &StreamAccumulator{}
}

// Add incorporates a chunk into the accumulated state.
func (a *StreamAccumulator) Add(chunk StreamChunk) {
	a.Content += chunk.Delta
	if chunk.FinishReason != "" {
		a.FinishReason = chunk.FinishReason
	}
	if chunk.Usage != nil {
		a.Usage = chunk.Usage
	}
}

// Response converts the accumulated state into a CompletionResponse.
func (a *StreamAccumulator) Response() *CompletionResponse {
	resp := &CompletionResponse{
		Content:      a.Content,
		FinishReason: a.FinishReason,
	}
	if a.Usage != nil {
		resp.Usage = *a.Usage
	}
	return resp
}
