package rag

import (
	"context"

	"github.com/kailas-cloud/museumrag/internal/domain"
)

// Index is the read side of the vector index.
type Index interface {
	Query(ctx context.Context, q domain.Query, k int) ([]domain.RetrievedChunk, error)
}

// Embedder vectorizes the question in caller mode.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Generator produces the answer text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (domain.GenerationResult, error)
}
