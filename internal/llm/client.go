// Package llm wraps the external text-generation service. The core only
// ever needs one operation from it: prompt in, free-form text out.
package llm

import "context"

// Client is the text-generation interface the pipeline depends on.
// Implementations must be safe for concurrent use.
type Client interface {
	// Generate sends a prompt and returns the raw response text.
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenerateFunc adapts a function to the Client interface. Used by tests.
type GenerateFunc func(ctx context.Context, prompt string) (string, error)

// Generate implements Client.
func (f GenerateFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
