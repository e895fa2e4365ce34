package chunk

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/museumrag/internal/domain"
)

// VectorIndex is an index that only accepts precomputed vectors.
type VectorIndex interface {
	Upsert(ctx context.Context, chunks []domain.Chunk) error
	Query(ctx context.Context, q domain.Query, k int) ([]domain.RetrievedChunk, error)
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
}

// EmbeddingIndex gives a vector-only index the index-embeds-text mode:
// chunks and text queries are embedded here before delegating.
type EmbeddingIndex struct {
	VectorIndex
	embedder domain.Embedder
}

// WithEmbedder wraps idx so it accepts raw text.
func WithEmbedder(idx VectorIndex, e domain.Embedder) *EmbeddingIndex {
	return &EmbeddingIndex{VectorIndex: idx, embedder: e}
}

// Upsert embeds chunks lacking a vector, then delegates.
func (x *EmbeddingIndex) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	var texts []string
	var idx []int
	for i := range chunks {
		if len(chunks[i].Vector) == 0 {
			texts = append(texts, chunks[i].Text)
			idx = append(idx, i)
		}
	}

	if len(texts) > 0 {
		res, err := domain.EmbedAll(ctx, x.embedder, texts)
		if err != nil {
			return fmt.Errorf("embed chunks: %w", err)
		}
		embedded := make([]domain.Chunk, len(chunks))
		copy(embedded, chunks)
		for j, i := range idx {
			embedded[i].Vector = res.Embeddings[j]
		}
		chunks = embedded
	}

	return x.VectorIndex.Upsert(ctx, chunks)
}

// Query embeds a text query, then delegates.
func (x *EmbeddingIndex) Query(ctx context.Context, q domain.Query, k int) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		return nil, domain.ErrInvalidK
	}
	if !q.HasVector() {
		res, err := x.embedder.Embed(ctx, q.Text)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		q = domain.Query{Vector: res.Embedding}
	}
	return x.VectorIndex.Query(ctx, q, k)
}
