package llm

import "context"

// Client is a minimal LLM interface to allow pluggable providers.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GenerateFunc is the function form of Client.Complete.
type GenerateFunc func(ctx context.Context, prompt string) (string, error)
