// Package chromem is the embedded vector index, in memory or persisted to disk.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/kailas-cloud/museumrag/internal/domain"
)

const (
	metaTitle   = "title"
	metaSection = "section"

	// addConcurrency bounds parallel EmbeddingFunc calls when the index embeds.
	addConcurrency = 4
)

var errCallerMode = errors.New("index expects caller-supplied vectors")

// Config selects storage and embedding behaviour.
type Config struct {
	Collection string
	// Path enables on-disk persistence; empty keeps everything in memory.
	Path     string
	Compress bool
	// Embedder, when set, makes the index embed raw text itself.
	// Nil means callers supply vectors for chunks and queries.
	Embedder domain.Embedder
}

// Repo is a chromem-go backed vector index over one collection.
type Repo struct {
	db   *chromem.DB
	name string
	ef   chromem.EmbeddingFunc

	mu  sync.RWMutex
	col *chromem.Collection
}

// New opens (or creates) the database and the collection.
func New(cfg Config) (*Repo, error) {
	var db *chromem.DB
	if cfg.Path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("open chromem db %s: %w", cfg.Path, err)
		}
	}

	r := &Repo{db: db, name: cfg.Collection, ef: embeddingFunc(cfg.Embedder)}
	col, err := db.GetOrCreateCollection(r.name, nil, r.ef)
	if err != nil {
		return nil, fmt.Errorf("get or create collection %s: %w", r.name, err)
	}
	r.col = col
	return r, nil
}

// embeddingFunc adapts domain.Embedder to chromem. Without an embedder the
// function fails, so a chunk or query without a vector never reaches the
// library's default OpenAI embedder.
func embeddingFunc(e domain.Embedder) chromem.EmbeddingFunc {
	if e == nil {
		return func(_ context.Context, _ string) ([]float32, error) {
			return nil, errCallerMode
		}
	}
	return func(ctx context.Context, text string) ([]float32, error) {
		res, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		return res.Embedding, nil
	}
}

// Upsert adds chunks; an existing ID is overwritten.
func (r *Repo) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]chromem.Document, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		docs[i] = chromem.Document{
			ID:        c.ID,
			Content:   c.Text,
			Metadata:  map[string]string{metaTitle: c.Title, metaSection: c.Section},
			Embedding: c.Vector,
		}
	}

	if err := r.collection().AddDocuments(ctx, docs, addConcurrency); err != nil {
		return fmt.Errorf("add documents to %s: %w", r.name, err)
	}
	return nil
}

// Query returns up to k nearest chunks, best first. k above Count yields every record.
func (r *Repo) Query(ctx context.Context, q domain.Query, k int) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		return nil, domain.ErrInvalidK
	}

	col := r.collection()
	// chromem rejects nResults above the document count.
	n := min(k, col.Count())
	if n == 0 {
		return []domain.RetrievedChunk{}, nil
	}

	var (
		results []chromem.Result
		err     error
	)
	if q.HasVector() {
		results, err = col.QueryEmbedding(ctx, q.Vector, n, nil, nil)
	} else {
		results, err = col.Query(ctx, q.Text, n, nil, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.name, err)
	}

	out := make([]domain.RetrievedChunk, len(results))
	for i, res := range results {
		out[i] = domain.RetrievedChunk{
			ID:      res.ID,
			Text:    res.Content,
			Title:   res.Metadata[metaTitle],
			Section: res.Metadata[metaSection],
			Score:   float64(res.Similarity),
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// Count returns the number of stored chunks.
func (r *Repo) Count(_ context.Context) (int, error) {
	return r.collection().Count(), nil
}

// Reset deletes the collection (and its files when persistent) and recreates it empty.
func (r *Repo) Reset(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.db.DeleteCollection(r.name); err != nil {
		return fmt.Errorf("delete collection %s: %w", r.name, err)
	}
	col, err := r.db.GetOrCreateCollection(r.name, nil, r.ef)
	if err != nil {
		return fmt.Errorf("recreate collection %s: %w", r.name, err)
	}
	r.col = col
	return nil
}

// Ping always succeeds: the index lives in process.
func (r *Repo) Ping(_ context.Context) error {
	return nil
}

func (r *Repo) collection() *chromem.Collection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.col
}
