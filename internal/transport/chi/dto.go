package chi

import "github.com/kailas-cloud/museumrag/internal/domain"

// ErrorCode is the machine-readable error kind in API responses.
type ErrorCode string

// API error codes.
const (
	CodeBadRequest         ErrorCode = "bad_request"
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeValidationFailed   ErrorCode = "validation_failed"
	CodeConfigurationError ErrorCode = "configuration_error"
	CodeRetrievalFailed    ErrorCode = "retrieval_failed"
	CodeGenerationFailed   ErrorCode = "generation_failed"
	CodeInternalError      ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// AskRequest is the body of POST /api/v1/ask. A missing or zero K means the default depth.
type AskRequest struct {
	Question string `json:"question"`
	K        *int   `json:"k,omitempty"`
}

// AskResponse carries the answer and the context it was generated from.
type AskResponse struct {
	Answer   string          `json:"answer"`
	Question string          `json:"question"`
	K        int             `json:"k"`
	Context  string          `json:"context"`
	Chunks   []ChunkResponse `json:"chunks"`
}

// ChunkResponse is one retrieved chunk.
type ChunkResponse struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Section string  `json:"section"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
}

// DocumentResponse is one corpus document.
type DocumentResponse struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Section string `json:"section"`
	Text    string `json:"text"`
}

// DocumentListResponse lists the loaded corpus.
type DocumentListResponse struct {
	Items []DocumentResponse `json:"items"`
	Total int                `json:"total"`
}

// HealthResponse reports component health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func answerToResponse(a domain.Answer) AskResponse {
	chunks := make([]ChunkResponse, len(a.Chunks))
	for i, c := range a.Chunks {
		chunks[i] = ChunkResponse{
			ID:      c.ID,
			Title:   c.Title,
			Section: c.Section,
			Text:    c.Text,
			Score:   c.Score,
		}
	}
	return AskResponse{
		Answer:   a.Text,
		Question: a.Question,
		K:        a.K,
		Context:  a.Context,
		Chunks:   chunks,
	}
}

func documentsToResponse(docs []domain.Document) DocumentListResponse {
	items := make([]DocumentResponse, len(docs))
	for i, d := range docs {
		items[i] = DocumentResponse{ID: d.ID, Title: d.Title, Section: d.Section, Text: d.Text}
	}
	return DocumentListResponse{Items: items, Total: len(items)}
}
