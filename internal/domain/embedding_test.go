package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	calls []string
	err   error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.calls = append(s.calls, text)
	if s.err != nil {
		return EmbeddingResult{}, s.err
	}
	return EmbeddingResult{Embedding: []float32{float32(len(text))}, PromptTokens: 1, TotalTokens: 1}, nil
}

type stubBatchEmbedder struct {
	stubEmbedder
	batchCalls int
	short      bool
}

func (s *stubBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	s.batchCalls++
	n := len(texts)
	if s.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(i)}
	}
	return BatchEmbeddingResult{Embeddings: out, TotalTokens: n}, nil
}

func TestBatchFallback_SumsUsage(t *testing.T) {
	inner := &stubEmbedder{}
	res, err := BatchFallback(context.Background(), inner, []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(res.Embeddings))
	}
	if res.Embeddings[2][0] != 3 {
		t.Errorf("expected order preserved, got %v", res.Embeddings)
	}
	if res.TotalTokens != 3 || res.PromptTokens != 3 {
		t.Errorf("expected 3 tokens, got prompt=%d total=%d", res.PromptTokens, res.TotalTokens)
	}
}

func TestBatchFallback_ErrorPropagation(t *testing.T) {
	innerErr := errors.New("provider down")
	_, err := BatchFallback(context.Background(), &stubEmbedder{err: innerErr}, []string{"a"})
	if !errors.Is(err, innerErr) {
		t.Fatalf("expected wrapped inner error, got %v", err)
	}
}

func TestEmbedAll_PrefersBatch(t *testing.T) {
	inner := &stubBatchEmbedder{}
	res, err := EmbedAll(context.Background(), inner, []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.batchCalls != 1 {
		t.Errorf("expected 1 batch call, got %d", inner.batchCalls)
	}
	if len(inner.calls) != 0 {
		t.Errorf("expected no single calls, got %d", len(inner.calls))
	}
	if len(res.Embeddings) != 2 {
		t.Errorf("expected 2 vectors, got %d", len(res.Embeddings))
	}
}

func TestEmbedAll_ShortBatchIsProviderError(t *testing.T) {
	inner := &stubBatchEmbedder{short: true}
	_, err := EmbedAll(context.Background(), inner, []string{"a", "b"})
	if !errors.Is(err, ErrEmbeddingProvider) {
		t.Fatalf("expected ErrEmbeddingProvider, got %v", err)
	}
}

func TestEmbedAll_FallsBackToSingle(t *testing.T) {
	inner := &stubEmbedder{}
	if _, err := EmbedAll(context.Background(), inner, []string{"a", "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.calls) != 2 {
		t.Errorf("expected 2 single calls, got %d", len(inner.calls))
	}
}
