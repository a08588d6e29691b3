package llm

import (
	"context"
)

// Request is a single-turn completion request.
type Request struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

type LLMClient interface {
	Generate(ctx context.Context, req Request) (string, error)
}
