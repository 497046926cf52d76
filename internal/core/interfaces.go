package core

import "context"

// Provider is one external chat-completion API. Implementations validate
// input before any network call, make exactly one upstream attempt, and
// return *UpstreamError on failure. No retries at this layer.
type Provider interface {
	// Name returns the provider identifier ("openai", "anthropic", ...).
	Name() string

	// Call translates the internal request into the provider's wire format,
	// executes it, and maps the response back to a ChatResult.
	Call(ctx context.Context, req *ChatRequest) (*ChatResult, error)
}

// ImageService synthesizes up to remaining image URLs for a prompt. Every
// failure is recoverable by the fallback orchestrator, never fatal.
type ImageService interface {
	// Name identifies the service in results and logs.
	Name() string

	// Generate returns candidate URLs. Returning fewer than remaining
	// (or an error) is allowed; the orchestrator decides what to do.
	Generate(ctx context.Context, prompt string, width, height, remaining int) ([]string, error)
}
