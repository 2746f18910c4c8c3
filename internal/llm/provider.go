package llm

import "context"

// Provider defines the interface for LLM providers.
type Provider interface {
	// Complete sends a single-shot completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}

// DeltaFunc receives generated text as it arrives. Returning an error stops
// the stream.
type DeltaFunc func(delta string) error

// StreamingProvider is implemented by providers that can deliver the
// completion incrementally.
type StreamingProvider interface {
	Provider
	// CompleteStream calls onDelta for each text fragment in order and
	// returns the assembled response once the backend finishes.
	CompleteStream(ctx context.Context, req CompletionRequest, onDelta DeltaFunc) (*CompletionResponse, error)
}
