package llm

import (
	"context"
)

// Client generates a free-text completion for a prompt. Structured
// completions are layered on top via Complete.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder produces a fixed-length embedding vector for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Reranker reorders documents by relevance to a query.
type Reranker interface {
	Rank(ctx context.Context, query string, documents []string) ([]int, error)
}
