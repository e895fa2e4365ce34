// Package qdrant is the vector index backed by a Qdrant server over gRPC.
package qdrant

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/museumrag/internal/domain"
)

// Payload keys.
const (
	payloadID      = "id"
	payloadText    = "text"
	payloadTitle   = "title"
	payloadSection = "section"
)

// client is the consumer interface over *qdrant.Client (ISP).
type client interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error
	DeleteCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Count(ctx context.Context, req *qdrant.CountPoints) (uint64, error)
	HealthCheck(ctx context.Context) (*qdrant.HealthCheckReply, error)
}

// Config holds connection and collection settings.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	Dimensions int
}

// Repo is a caller-vector index over one Qdrant collection.
type Repo struct {
	client     client
	collection string
	dimensions int
}

// Dial connects to Qdrant. The returned close func releases the connection.
func Dial(cfg Config) (*Repo, func() error, error) {
	c, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect qdrant %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return New(c, cfg.Collection, cfg.Dimensions), c.Close, nil
}

// New wraps an existing client.
func New(c client, collection string, dimensions int) *Repo {
	return &Repo{client: c, collection: collection, dimensions: dimensions}
}

// EnsureCollection creates the collection (cosine distance) when absent.
func (r *Repo) EnsureCollection(ctx context.Context) error {
	exists, err := r.client.CollectionExists(ctx, r.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", r.collection, err)
	}
	if exists {
		return nil
	}
	return r.create(ctx)
}

func (r *Repo) create(ctx context.Context) error {
	err := r.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(r.dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", r.collection, err)
	}
	return nil
}

// Upsert writes points keyed by a UUIDv5 of the chunk ID, so repeated seeding overwrites.
func (r *Repo) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := r.EnsureCollection(ctx); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if len(c.Vector) != r.dimensions {
			return fmt.Errorf("chunk %s: got %d dimensions, want %d: %w",
				c.ID, len(c.Vector), r.dimensions, domain.ErrVectorDimMismatch)
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointID(c.ID)),
			Vectors: qdrant.NewVectors(c.Vector...),
			Payload: map[string]*qdrant.Value{
				payloadID:      stringValue(c.ID),
				payloadText:    stringValue(c.Text),
				payloadTitle:   stringValue(c.Title),
				payloadSection: stringValue(c.Section),
			},
		}
	}

	_, err := r.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: r.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upsert into %s: %w", r.collection, err)
	}
	return nil
}

// Query returns up to k nearest chunks, best first.
func (r *Repo) Query(ctx context.Context, q domain.Query, k int) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		return nil, domain.ErrInvalidK
	}
	if !q.HasVector() {
		return nil, fmt.Errorf("qdrant index requires a query vector: %w", domain.ErrConfiguration)
	}

	points, err := r.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: r.collection,
		Query:          qdrant.NewQuery(q.Vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.collection, err)
	}

	out := make([]domain.RetrievedChunk, 0, len(points))
	for _, p := range points {
		pl := p.GetPayload()
		out = append(out, domain.RetrievedChunk{
			ID:      pl[payloadID].GetStringValue(),
			Text:    pl[payloadText].GetStringValue(),
			Title:   pl[payloadTitle].GetStringValue(),
			Section: pl[payloadSection].GetStringValue(),
			Score:   float64(p.GetScore()),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// Count returns the exact number of points; a missing collection counts as empty.
func (r *Repo) Count(ctx context.Context) (int, error) {
	exists, err := r.client.CollectionExists(ctx, r.collection)
	if err != nil {
		return 0, fmt.Errorf("check collection %s: %w", r.collection, err)
	}
	if !exists {
		return 0, nil
	}
	n, err := r.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: r.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.collection, err)
	}
	return int(n), nil
}

// Reset deletes the collection if present and recreates it.
func (r *Repo) Reset(ctx context.Context) error {
	exists, err := r.client.CollectionExists(ctx, r.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", r.collection, err)
	}
	if exists {
		if err := r.client.DeleteCollection(ctx, r.collection); err != nil {
			return fmt.Errorf("delete collection %s: %w", r.collection, err)
		}
	}
	return r.create(ctx)
}

// Ping runs the server health check.
func (r *Repo) Ping(ctx context.Context) error {
	if _, err := r.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	return nil
}

// PointID derives the stable point UUID for a chunk ID.
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("museumrag:"+chunkID)).String()
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}
