package llm

import "context"

// Provider defines the interface for LLM backends. The routing engine only
// ever sends short classification prompts through this interface; the
// response is free text that callers must decode defensively.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}
