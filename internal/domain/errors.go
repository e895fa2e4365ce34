package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals a caller-level input problem (blank question, bad corpus).
	ErrValidation = errors.New("validation failed")
	// ErrInvalidK signals a retrieval depth outside the supported range.
	ErrInvalidK = fmt.Errorf("k out of range: %w", ErrValidation)
	// ErrConfiguration signals a missing or invalid credential or setting.
	ErrConfiguration = errors.New("configuration error")

	// ErrRetrieval signals a failed embedding or vector index call.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrGeneration signals a failed chat completion call.
	ErrGeneration = errors.New("generation failed")

	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrGenerationProvider signals a chat completion provider failure.
	ErrGenerationProvider = errors.New("generation provider error")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
)

// StageError records which pipeline stage failed. Unwrap yields both the
// stage sentinel (ErrRetrieval / ErrGeneration) and the underlying cause.
type StageError struct {
	Kind  error
	Cause error
}

func (e *StageError) Error() string {
	return e.Kind.Error() + ": " + e.Cause.Error()
}

func (e *StageError) Unwrap() []error { return []error{e.Kind, e.Cause} }

// NewRetrievalError wraps cause as a retrieval failure.
func NewRetrievalError(cause error) error {
	return &StageError{Kind: ErrRetrieval, Cause: cause}
}

// NewGenerationError wraps cause as a generation failure.
func NewGenerationError(cause error) error {
	return &StageError{Kind: ErrGeneration, Cause: cause}
}
