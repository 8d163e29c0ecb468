package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/hypatia-ai/hypatia"
)

// OllamaConfig configures an OllamaProvider.
type OllamaConfig struct {
	// BaseURL is the Ollama server. Default: http://localhost:11434.
	BaseURL string

	// Model is the default model served.
	Model string
}

// OllamaProvider implements Provider against a local Ollama server. It is
// the reference provider shipped with the CLI; production deployments plug
// in their own Provider.
type OllamaProvider struct {
	client *ollama.LLM
}

// NewOllamaProvider connects to an Ollama server.
func NewOllamaProvider(cfg OllamaConfig) (*OllamaProvider, error) {
	const op = "llm.NewOllamaProvider"

	serverURL := cfg.BaseURL
	if serverURL == "" {
		serverURL = "http://localhost:11434"
	}

	opts := []ollama.Option{ollama.WithServerURL(serverURL)}
	if cfg.Model != "" {
		opts = append(opts, ollama.WithModel(cfg.Model))
	}

	client, err := ollama.New(opts...)
	if err != nil {
		return nil, hypatia.NewConfigurationError(op,
			fmt.Errorf("connecting to ollama at %s: %w", serverURL, err))
	}
	return &OllamaProvider{client: client}, nil
}

// Complete generates a response for the given request.
func (p *OllamaProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	resp, err := p.client.GenerateContent(ctx, toLangchainMessages(req.Messages), buildCallOptions(req)...)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama: %v", hypatia.ErrExternalCallFailure, err)
	}
	return fromLangchainResponse(resp), nil
}

// Stream generates a response as a sequence of chunks.
func (p *OllamaProvider) Stream(ctx context.Context, req *CompletionRequest) (<-chan StreamChunk, error) {
	chunks := make(chan StreamChunk, 10)

	opts := buildCallOptions(req)
	opts = append(opts, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunks <- StreamChunk{Delta: string(chunk)}:
			return nil
		}
	}))

	go func() {
		defer close(chunks)
		resp, err := p.client.GenerateContent(ctx, toLangchainMessages(req.Messages), opts...)
		if err != nil {
			chunks <- StreamChunk{Err: fmt.Errorf("%w: ollama: %v", hypatia.ErrExternalCallFailure, err)}
			return
		}
		final := fromLangchainResponse(resp)
		chunks <- StreamChunk{FinishReason: final.FinishReason, Usage: &final.Usage}
	}()

	return chunks, nil
}

// toLangchainMessages converts messages to langchaingo content.
func toLangchainMessages(messages []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		role := llms.ChatMessageTypeHuman
		switch msg.Role {
		case RoleSystem:
			role = llms.ChatMessageTypeSystem
		case RoleAssistant:
			role = llms.ChatMessageTypeAI
		}
		out = append(out, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(msg.Content)},
		})
	}
	return out
}

// buildCallOptions maps request tuning onto langchaingo call options.
func buildCallOptions(req *CompletionRequest) []llms.CallOption {
	var opts []llms.CallOption
	if req.Model != "" {
		opts = append(opts, llms.WithModel(req.Model))
	}
	if req.Temperature != nil {
		opts = append(opts, llms.WithTemperature(*req.Temperature))
	}
	if req.MaxTokens != nil {
		opts = append(opts, llms.WithMaxTokens(*req.MaxTokens))
	}
	if len(req.Stop) > 0 {
		opts = append(opts, llms.WithStopWords(req.Stop))
	}
	return opts
}

// fromLangchainResponse converts a langchaingo response.
func fromLangchainResponse(resp *llms.ContentResponse) *CompletionResponse {
	out := &CompletionResponse{FinishReason: "stop"}
	if resp == nil || len(resp.Choices) == 0 {
		return out
	}

	choice := resp.Choices[0]
	out.Content = choice.Content
	if choice.StopReason != "" {
		out.FinishReason = choice.StopReason
	}
	out.Usage = usageFromGenerationInfo(choice.GenerationInfo)
	return out
}

// usageFromGenerationInfo pulls token counts out of the provider-specific
// generation metadata, tolerating absent or oddly typed entries.
func usageFromGenerationInfo(info map[string]any) TokenUsage {
	asInt := func(key string) int {
		switch v := info[key].(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		default:
			return 0
		}
	}
	usage := TokenUsage{
		InputTokens:  asInt("PromptTokens"),
		OutputTokens: asInt("CompletionTokens"),
	}
	usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	return usage
}

var _ StreamingProvider = (*OllamaProvider)(nil)
