package qdrant

import (
	"context"
	"errors"
	"testing"

	"github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/museumrag/internal/domain"
)

// mockClient implements the consumer interface for tests.
type mockClient struct {
	exists   bool
	created  int
	deleted  int
	upserts  []*qdrant.UpsertPoints
	queryReq *qdrant.QueryPoints
	points   []*qdrant.ScoredPoint
	count    uint64
	err      error
}

func (m *mockClient) CollectionExists(_ context.Context, _ string) (bool, error) {
	return m.exists, m.err
}

func (m *mockClient) CreateCollection(_ context.Context, _ *qdrant.CreateCollection) error {
	m.created++
	m.exists = true
	return m.err
}

func (m *mockClient) DeleteCollection(_ context.Context, _ string) error {
	m.deleted++
	m.exists = false
	return m.err
}

func (m *mockClient) Upsert(_ context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
	m.upserts = append(m.upserts, req)
	return &qdrant.UpdateResult{}, m.err
}

func (m *mockClient) Query(_ context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
	m.queryReq = req
	return m.points, m.err
}

func (m *mockClient) Count(_ context.Context, _ *qdrant.CountPoints) (uint64, error) {
	return m.count, m.err
}

func (m *mockClient) HealthCheck(_ context.Context) (*qdrant.HealthCheckReply, error) {
	return &qdrant.HealthCheckReply{}, m.err
}

func scored(id, title string, score float32) *qdrant.ScoredPoint {
	return &qdrant.ScoredPoint{
		Score: score,
		Payload: map[string]*qdrant.Value{
			payloadID:    stringValue(id),
			payloadTitle: stringValue(title),
			payloadText:  stringValue("text " + id),
		},
	}
}

func TestUpsert_CreatesCollectionAndUsesStableIDs(t *testing.T) {
	mc := &mockClient{}
	r := New(mc, "dali_museum", 2)
	chunks := []domain.Chunk{{ID: "5", Text: "t", Title: "Location", Vector: []float32{1, 0}}}

	if err := r.Upsert(context.Background(), chunks); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := r.Upsert(context.Background(), chunks); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if mc.created != 1 {
		t.Errorf("collection created %d times, want 1", mc.created)
	}
	a := mc.upserts[0].Points[0].GetId().GetUuid()
	b := mc.upserts[1].Points[0].GetId().GetUuid()
	if a == "" || a != b {
		t.Errorf("point IDs must be stable: %q vs %q", a, b)
	}
	if a != PointID("5") {
		t.Errorf("point ID = %q, want %q", a, PointID("5"))
	}
	if got := mc.upserts[0].Points[0].GetPayload()[payloadTitle].GetStringValue(); got != "Location" {
		t.Errorf("title payload = %q", got)
	}
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	r := New(&mockClient{exists: true}, "dali_museum", 3)
	err := r.Upsert(context.Background(), []domain.Chunk{{ID: "1", Vector: []float32{1}}})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestQuery_MapsPayloadAndOrders(t *testing.T) {
	mc := &mockClient{points: []*qdrant.ScoredPoint{
		scored("3", "Tickets and Hours", 0.2),
		scored("5", "Location", 0.8),
	}}
	r := New(mc, "dali_museum", 2)

	got, err := r.Query(context.Background(), domain.Query{Vector: []float32{1, 0}}, 4)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if mc.queryReq.GetLimit() != 4 {
		t.Errorf("limit = %d, want 4", mc.queryReq.GetLimit())
	}
	if len(got) != 2 || got[0].ID != "5" || got[0].Title != "Location" || got[0].Text != "text 5" {
		t.Errorf("results = %+v", got)
	}
}

func TestQuery_Rejects(t *testing.T) {
	r := New(&mockClient{}, "dali_museum", 2)
	if _, err := r.Query(context.Background(), domain.Query{Vector: []float32{1, 0}}, 0); !errors.Is(err, domain.ErrInvalidK) {
		t.Errorf("expected ErrInvalidK, got %v", err)
	}
	if _, err := r.Query(context.Background(), domain.Query{Text: "q"}, 1); err == nil {
		t.Error("expected error for text query")
	}
}

func TestCount(t *testing.T) {
	mc := &mockClient{}
	r := New(mc, "dali_museum", 2)

	n, err := r.Count(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("missing collection: %d, %v", n, err)
	}

	mc.exists, mc.count = true, 5
	n, err = r.Count(context.Background())
	if err != nil || n != 5 {
		t.Fatalf("Count = %d, %v; want 5", n, err)
	}
}

func TestReset(t *testing.T) {
	mc := &mockClient{exists: true}
	r := New(mc, "dali_museum", 2)

	if err := r.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if mc.deleted != 1 || mc.created != 1 {
		t.Errorf("deleted=%d created=%d", mc.deleted, mc.created)
	}
}

func TestPing_Error(t *testing.T) {
	r := New(&mockClient{err: errors.New("unavailable")}, "dali_museum", 2)
	if err := r.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
