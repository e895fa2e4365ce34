package index

import (
	"context"

	"github.com/kailas-cloud/museumrag/internal/domain"
)

// Writer is the write side of the vector index.
type Writer interface {
	Upsert(ctx context.Context, chunks []domain.Chunk) error
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
}

// Embedder vectorizes chunk texts in caller mode.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
