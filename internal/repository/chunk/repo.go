// Package chunk stores indexed chunks as Redis hashes under an FT vector index.
package chunk

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/museumrag/internal/db"
	"github.com/kailas-cloud/museumrag/internal/domain"
)

// Hash field names.
const (
	fieldContent = "__content"
	fieldTitle   = "title"
	fieldSection = "section"
	fieldVector  = "__vector"
)

// store is the consumer interface for the chunk index (ISP).
type store interface {
	Ping(ctx context.Context) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Config describes the collection layout.
type Config struct {
	KeyPrefix   string
	Collection  string
	Dimensions  int
	HNSWM       int
	HNSWEFConst int
}

// Repo is a caller-vector index over Redis search. Queries must carry a vector.
type Repo struct {
	store store
	cfg   Config
}

// New creates a chunk repository.
func New(s store, cfg Config) *Repo {
	return &Repo{store: s, cfg: cfg}
}

// EnsureIndex creates the FT index unless it already exists.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.indexName())
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.indexName(), err)
	}
	if exists {
		return nil
	}
	return r.createIndex(ctx)
}

func (r *Repo) createIndex(ctx context.Context) error {
	def, err := db.NewIndex(r.indexName()).
		Prefix(r.keyPrefix()).
		Text(fieldTitle).
		Text(fieldSection).
		VectorHNSW(fieldVector, r.cfg.Dimensions, db.DistanceCosine, r.cfg.HNSWM, r.cfg.HNSWEFConst).
		Build()
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return nil
}

// Upsert writes chunks with overwrite semantics: HSET replaces every field of an existing key.
func (r *Repo) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := r.EnsureIndex(ctx); err != nil {
		return err
	}

	items := make([]db.HashSetItem, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if len(c.Vector) == 0 {
			return fmt.Errorf("chunk %s has no vector: %w", c.ID, domain.ErrEmbeddingProvider)
		}
		if len(c.Vector) != r.cfg.Dimensions {
			return fmt.Errorf("chunk %s: got %d dimensions, want %d: %w",
				c.ID, len(c.Vector), r.cfg.Dimensions, domain.ErrVectorDimMismatch)
		}
		items = append(items, db.HashSetItem{
			Key: r.chunkKey(c.ID),
			Fields: map[string]string{
				fieldContent: c.Text,
				fieldTitle:   c.Title,
				fieldSection: c.Section,
				fieldVector:  string(db.VectorToBytes(c.Vector)),
			},
		})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset chunks: %w", err)
	}
	return nil
}

// Query returns the k nearest chunks. k above the record count returns every record.
func (r *Repo) Query(ctx context.Context, q domain.Query, k int) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		return nil, domain.ErrInvalidK
	}
	if !q.HasVector() {
		return nil, fmt.Errorf("redis index requires a query vector: %w", domain.ErrConfiguration)
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(),
		VectorField:  fieldVector,
		Vector:       q.Vector,
		K:            k,
		ReturnFields: []string{fieldContent, fieldTitle, fieldSection},
	})
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	out := make([]domain.RetrievedChunk, 0, len(res.Entries))
	for _, e := range res.Entries {
		out = append(out, domain.RetrievedChunk{
			ID:      strings.TrimPrefix(e.Key, r.keyPrefix()),
			Text:    e.Fields[fieldContent],
			Title:   e.Fields[fieldTitle],
			Section: e.Fields[fieldSection],
			Score:   e.Score,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// Count returns the number of indexed chunks; a missing index counts as empty.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.indexName(), "*")
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("search count %s: %w", r.cfg.Collection, err)
	}
	return n, nil
}

// Reset drops the index together with its hashes and recreates it empty.
func (r *Repo) Reset(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.indexName(), true); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", r.indexName(), err)
	}
	return r.createIndex(ctx)
}

// Ping checks store connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

func (r *Repo) keyPrefix() string {
	return fmt.Sprintf("%s%s:", r.cfg.KeyPrefix, r.cfg.Collection)
}

func (r *Repo) chunkKey(id string) string {
	return r.keyPrefix() + id
}

func (r *Repo) indexName() string {
	return fmt.Sprintf("%s%s:idx", r.cfg.KeyPrefix, r.cfg.Collection)
}
