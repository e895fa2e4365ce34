package domain

import (
	"context"
	"errors"
	"testing"
)

func TestInvalidK_IsValidation(t *testing.T) {
	if !errors.Is(ErrInvalidK, ErrValidation) {
		t.Fatal("ErrInvalidK must match ErrValidation")
	}
}

func TestStageError_MatchesKindAndCause(t *testing.T) {
	err := NewRetrievalError(context.DeadlineExceeded)

	if !errors.Is(err, ErrRetrieval) {
		t.Error("expected ErrRetrieval")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected cause to be preserved")
	}
	if errors.Is(err, ErrGeneration) {
		t.Error("retrieval error must not match ErrGeneration")
	}
	if err.Error() != "retrieval failed: context deadline exceeded" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestUsage_NilSafe(t *testing.T) {
	var u *Usage
	u.AddEmbeddingTokens(5)
	u.AddGenerationTokens(5)

	ctx, got := NewContextWithUsage(context.Background())
	got.AddEmbeddingTokens(3)
	got.AddGenerationTokens(7)
	if UsageFromContext(ctx) != got {
		t.Fatal("expected the same collector from context")
	}
	if !got.Embedded || !got.Generated || got.EmbeddingTokens != 3 || got.GenerationTokens != 7 {
		t.Errorf("unexpected usage %+v", *got)
	}
	if UsageFromContext(context.Background()) != nil {
		t.Error("expected nil without collector")
	}
}
