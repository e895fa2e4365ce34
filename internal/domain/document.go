package domain

// Document is one record of the searchable corpus.
type Document struct {
	ID      string
	Title   string
	Section string
	Text    string
}

// Chunk is the indexed form of a Document. Vector is empty when the index
// computes embeddings itself.
type Chunk struct {
	ID      string
	Text    string
	Title   string
	Section string
	Vector  []float32
}

// Query selects nearest chunks either by raw text (the index embeds it) or by
// a caller-supplied vector.
type Query struct {
	Text   string
	Vector []float32
}

// HasVector reports whether the query carries a precomputed vector.
func (q Query) HasVector() bool { return len(q.Vector) > 0 }

// RetrievedChunk is a single query hit. Score is cosine similarity, higher is closer.
type RetrievedChunk struct {
	ID      string
	Text    string
	Title   string
	Section string
	Score   float64
}

// Answer is the result of one question/answer cycle.
type Answer struct {
	Question string
	K        int
	Text     string
	Context  string
	Chunks   []RetrievedChunk
}
