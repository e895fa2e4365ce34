package domain

import "context"

type usageKey struct{}

// Usage collects token usage for a single request.
// The handler puts a mutable pointer into the context before calling the service;
// providers write after each call; the handler reads it for response headers.
type Usage struct {
	EmbeddingTokens  int
	GenerationTokens int
	Embedded         bool // true if embedding was called, even on a cache hit with 0 tokens
	Generated        bool
}

// NewContextWithUsage returns a context with a usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *Usage) {
	u := &Usage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *Usage {
	u, _ := ctx.Value(usageKey{}).(*Usage)
	return u
}

// AddEmbeddingTokens records consumed embedding tokens.
func (u *Usage) AddEmbeddingTokens(n int) {
	if u != nil {
		u.EmbeddingTokens += n
		u.Embedded = true
	}
}

// AddGenerationTokens records consumed chat completion tokens.
func (u *Usage) AddGenerationTokens(n int) {
	if u != nil {
		u.GenerationTokens += n
		u.Generated = true
	}
}
