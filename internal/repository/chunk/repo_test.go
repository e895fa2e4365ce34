package chunk

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/museumrag/internal/db"
	"github.com/kailas-cloud/museumrag/internal/domain"
)

func TestUpsert_WritesHashes(t *testing.T) {
	r, ms := newTestRepo(t)

	var got []db.HashSetItem
	ms.hsetMultiFn = func(_ context.Context, items []db.HashSetItem) error {
		got = items
		return nil
	}

	err := r.Upsert(context.Background(), []domain.Chunk{
		{ID: "5", Text: "1 Dalí Boulevard", Title: "Location", Section: "location", Vector: []float32{1, 0}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	if got[0].Key != "museumrag:dali_museum:5" {
		t.Errorf("key = %q", got[0].Key)
	}
	f := got[0].Fields
	if f[fieldContent] != "1 Dalí Boulevard" || f[fieldTitle] != "Location" || f[fieldSection] != "location" {
		t.Errorf("fields = %v", f)
	}
	if len(f[fieldVector]) != 8 {
		t.Errorf("vector blob length = %d, want 8", len(f[fieldVector]))
	}
}

func TestUpsert_CreatesMissingIndex(t *testing.T) {
	r, ms := newTestRepo(t)

	ms.indexExistsFn = func(_ context.Context, _ string) (bool, error) { return false, nil }
	var created *db.IndexDefinition
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		created = def
		return nil
	}

	err := r.Upsert(context.Background(), []domain.Chunk{{ID: "1", Text: "t", Vector: []float32{1, 0}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created == nil || created.Name != "museumrag:dali_museum:idx" {
		t.Fatalf("index not created: %+v", created)
	}
	if created.Prefixes[0] != "museumrag:dali_museum:" {
		t.Errorf("prefix = %v", created.Prefixes)
	}
}

func TestUpsert_RejectsMissingOrWrongVector(t *testing.T) {
	r, _ := newTestRepo(t)

	err := r.Upsert(context.Background(), []domain.Chunk{{ID: "1", Text: "t"}})
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Errorf("expected ErrEmbeddingProvider, got %v", err)
	}

	err = r.Upsert(context.Background(), []domain.Chunk{{ID: "1", Text: "t", Vector: []float32{1, 2, 3}}})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestQuery_MapsAndOrders(t *testing.T) {
	r, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.K != 3 || q.VectorField != fieldVector || q.IndexName != "museumrag:dali_museum:idx" {
			t.Errorf("unexpected query: %+v", q)
		}
		return &db.SearchResult{Total: 2, Entries: []db.SearchEntry{
			{Key: "museumrag:dali_museum:3", Score: 0.4, Fields: map[string]string{fieldTitle: "Tickets and Hours"}},
			{Key: "museumrag:dali_museum:5", Score: 0.9, Fields: map[string]string{
				fieldTitle: "Location", fieldSection: "location", fieldContent: "St. Petersburg, Florida",
			}},
		}}, nil
	}

	got, err := r.Query(context.Background(), domain.Query{Vector: []float32{1, 0}}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(got))
	}
	if got[0].ID != "5" || got[0].Title != "Location" || got[0].Text != "St. Petersburg, Florida" {
		t.Errorf("first = %+v", got[0])
	}
	if got[0].Score < got[1].Score {
		t.Error("scores must be non-increasing")
	}
}

func TestQuery_RejectsBadInput(t *testing.T) {
	r, _ := newTestRepo(t)

	if _, err := r.Query(context.Background(), domain.Query{Vector: []float32{1, 0}}, 0); !errors.Is(err, domain.ErrInvalidK) {
		t.Errorf("k=0: expected ErrInvalidK, got %v", err)
	}
	if _, err := r.Query(context.Background(), domain.Query{Text: "where?"}, 1); err == nil {
		t.Error("expected error for text query without vector")
	}
}

func TestCount_MissingIndexIsEmpty(t *testing.T) {
	r, ms := newTestRepo(t)

	ms.searchCountFn = func(_ context.Context, _, _ string) (int, error) { return 0, db.ErrIndexNotFound }
	n, err := r.Count(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("Count = %d, %v; want 0, nil", n, err)
	}

	ms.searchCountFn = func(_ context.Context, _, _ string) (int, error) { return 0, errStore }
	if _, err := r.Count(context.Background()); !errors.Is(err, errStore) {
		t.Errorf("expected store error, got %v", err)
	}
}

func TestReset_DropsWithDocsAndRecreates(t *testing.T) {
	r, ms := newTestRepo(t)

	var dropped, created bool
	ms.dropIndexFn = func(_ context.Context, _ string, deleteDocs bool) error {
		if !deleteDocs {
			t.Error("reset must delete documents")
		}
		dropped = true
		return db.ErrIndexNotFound // first run: nothing to drop
	}
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		created = true
		return nil
	}

	if err := r.Reset(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dropped || !created {
		t.Errorf("dropped=%v created=%v", dropped, created)
	}
}

func TestWithEmbedder(t *testing.T) {
	r, ms := newTestRepo(t)
	emb := &fakeEmbedder{}
	idx := WithEmbedder(r, emb)

	var stored []db.HashSetItem
	ms.hsetMultiFn = func(_ context.Context, items []db.HashSetItem) error {
		stored = items
		return nil
	}
	chunks := []domain.Chunk{{ID: "1", Text: "abc"}, {ID: "2", Text: "de", Vector: []float32{9, 9}}}
	if err := idx.Upsert(context.Background(), chunks); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if emb.calls != 1 {
		t.Errorf("expected 1 embed call (vector-less chunk only), got %d", emb.calls)
	}
	if len(chunks[0].Vector) != 0 {
		t.Error("input chunks must not be mutated")
	}
	if len(stored) != 2 {
		t.Fatalf("stored %d items", len(stored))
	}

	var gotVec []float32
	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		gotVec = q.Vector
		return &db.SearchResult{}, nil
	}
	if _, err := idx.Query(context.Background(), domain.Query{Text: "where?"}, 2); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(gotVec) != 2 || gotVec[0] != 6 {
		t.Errorf("query vector = %v", gotVec)
	}
}

func TestWithEmbedder_EmbedError(t *testing.T) {
	r, _ := newTestRepo(t)
	idx := WithEmbedder(r, &fakeEmbedder{err: domain.ErrEmbeddingProvider})

	_, err := idx.Query(context.Background(), domain.Query{Text: "q"}, 1)
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Fatalf("expected ErrEmbeddingProvider, got %v", err)
	}
}
