package museumrag

// Answer is the result of one question/answer cycle.
type Answer struct {
	Answer   string  `json:"answer"`
	Question string  `json:"question"`
	K        int     `json:"k"`
	Context  string  `json:"context"`
	Chunks   []Chunk `json:"chunks"`

	// Token usage reported by the server, zero when the provider was not called.
	EmbeddingTokens  int `json:"-"`
	GenerationTokens int `json:"-"`
}

// Chunk is one retrieved context passage. Score is cosine similarity.
type Chunk struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Section string  `json:"section"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
}

// Document is one corpus record.
type Document struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Section string `json:"section"`
	Text    string `json:"text"`
}

type askRequest struct {
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
}

type documentList struct {
	Items []Document `json:"items"`
	Total int        `json:"total"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
