// Package llm provides the text-generation clients the draft pipeline calls.
// Providers implement the blocking Client interface; streaming and
// structured output are optional capabilities callers discover by type
// assertion.
package llm

import (
	"context"
	"fmt"

	"pagecraft/internal/config"
)

// Client is the blocking generation interface every provider implements.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// StreamingClient delivers the completion as text fragments. fn is called
// once per fragment in arrival order; a non-nil return aborts the stream.
// The full accumulated text is returned either way.
type StreamingClient interface {
	GenerateStream(ctx context.Context, prompt string, fn func(fragment string) error) (string, error)
}

// StructuredClient returns the completion as an already-parsed object
// constrained by a JSON schema.
type StructuredClient interface {
	GenerateStructured(ctx context.Context, prompt string, schema map[string]any) (map[string]any, error)
}

// New builds the provider named by the configuration.
func New(cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiClient(cfg)
	case "openai":
		return NewOpenAIClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
