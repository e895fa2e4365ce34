// Package index populates and resets the vector index from a corpus.
package index

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/museumrag/internal/domain"
	"github.com/kailas-cloud/museumrag/internal/domain/corpus"
	"github.com/kailas-cloud/museumrag/internal/logger"
	"github.com/kailas-cloud/museumrag/internal/metrics"
)

// Service writes corpus chunks into the index.
type Service struct {
	index  Writer
	embed  Embedder // nil when the index embeds internally
	logger *zap.Logger
}

// New creates a population service. Pass a nil embedder when the index
// computes vectors itself.
func New(index Writer, embed Embedder, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{index: index, embed: embed, logger: log}
}

// Populate upserts every document. Existing records with the same ID are
// overwritten, so repeated calls leave the index unchanged.
func (s *Service) Populate(ctx context.Context, docs []domain.Document) (int, error) {
	if err := corpus.Validate(docs); err != nil {
		return 0, err
	}

	chunks := corpus.Chunks(docs)
	if s.embed != nil {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		res, err := domain.EmbedAll(ctx, s.embed, texts)
		if err != nil {
			return 0, domain.NewRetrievalError(fmt.Errorf("embed corpus: %w", err))
		}
		for i := range chunks {
			chunks[i].Vector = res.Embeddings[i]
		}
	}

	if err := s.index.Upsert(ctx, chunks); err != nil {
		return 0, domain.NewRetrievalError(fmt.Errorf("upsert chunks: %w", err))
	}

	n, err := s.index.Count(ctx)
	if err != nil {
		return 0, domain.NewRetrievalError(fmt.Errorf("count chunks: %w", err))
	}
	metrics.IndexedChunks.Set(float64(n))

	logger.FromContext(ctx, s.logger).Info("index populated",
		zap.Int("documents", len(docs)),
		zap.Int("indexed", n),
		zap.Bool("caller_vectors", s.embed != nil),
	)
	return n, nil
}

// Reset drops the collection and repopulates it from docs.
func (s *Service) Reset(ctx context.Context, docs []domain.Document) (int, error) {
	if err := corpus.Validate(docs); err != nil {
		return 0, err
	}
	if err := s.index.Reset(ctx); err != nil {
		return 0, domain.NewRetrievalError(fmt.Errorf("reset index: %w", err))
	}
	logger.FromContext(ctx, s.logger).Warn("index reset")
	return s.Populate(ctx, docs)
}
