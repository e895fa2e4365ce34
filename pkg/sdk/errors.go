package museumrag

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by APIError through errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrConfiguration = errors.New("server is not configured")
	ErrRetrieval     = errors.New("retrieval failed")
	ErrGeneration    = errors.New("generation failed")
	ErrUnauthorized  = errors.New("unauthorized")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("museumrag: http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("museumrag: %s (http %d): %s", e.Code, e.StatusCode, e.Message)
}

// Is maps server error codes to the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Code == "validation_failed"
	case ErrConfiguration:
		return e.Code == "configuration_error"
	case ErrRetrieval:
		return e.Code == "retrieval_failed"
	case ErrGeneration:
		return e.Code == "generation_failed"
	case ErrUnauthorized:
		return e.StatusCode == 401
	}
	return false
}
