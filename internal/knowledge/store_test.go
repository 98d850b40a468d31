package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"

	"github.com/docchat/docchat/internal/log"
)

// mockEmbedder implements ai.Embedder for testing.
type mockEmbedder struct {
	delay         time.Duration
	embedErr      error
	returnEmpty   bool
	embeddings    []float32
	callCount     int
	lastInputText string
}

func (m *mockEmbedder) Name() string { return "mock-embedder" }

func (m *mockEmbedder) Register(_ api.Registry) {}

func (m *mockEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.callCount++
	if len(req.Input) > 0 && len(req.Input[0].Content) > 0 {
		m.lastInputText = req.Input[0].Content[0].Text
	}

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if m.returnEmpty {
		return &ai.EmbedResponse{Embeddings: []*ai.Embedding{{Embedding: []float32{}}}}, nil
	}

	emb := m.embeddings
	if emb == nil {
		emb = []float32{0.1, 0.2, 0.3}
	}
	return &ai.EmbedResponse{Embeddings: []*ai.Embedding{{Embedding: emb}}}, nil
}

// mockQuerier implements Querier for testing.
type mockQuerier struct {
	upserted   []UpsertDocumentParams
	upsertErr  error
	searchArgs []SearchDocumentsParams
	searchRows []SearchDocumentsRow
	searchErr  error
	countVal   int64
	countErr   error
	deletedIDs []string
	deleteErr  error
	sources    []SourceSummary
	sourcesErr error
}

func (m *mockQuerier) UpsertDocument(_ context.Context, arg UpsertDocumentParams) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, arg)
	return nil
}

func (m *mockQuerier) SearchDocuments(_ context.Context, arg SearchDocumentsParams) ([]SearchDocumentsRow, error) {
	m.searchArgs = append(m.searchArgs, arg)
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchRows, nil
}

func (m *mockQuerier) CountDocuments(_ context.Context, _ []byte) (int64, error) {
	return m.countVal, m.countErr
}

func (m *mockQuerier) DeleteDocument(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedIDs = append(m.deletedIDs, id)
	return nil
}

func (m *mockQuerier) DeleteDocumentsBySource(_ context.Context, _ string) (int64, error) {
	return 0, nil
}

func (m *mockQuerier) ListSources(_ context.Context) ([]SourceSummary, error) {
	return m.sources, m.sourcesErr
}

func searchRow(t *testing.T, id, content string, meta map[string]string, similarity float64) SearchDocumentsRow {
	t.Helper()
	data, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("marshal metadata: %v", err)
	}
	return SearchDocumentsRow{ID: id, Content: content, Metadata: data, Similarity: similarity}
}

func TestStore_Add(t *testing.T) {
	q := &mockQuerier{}
	e := &mockEmbedder{}
	store := New(q, e, log.NewNop())

	doc := Document{
		ID:       "guide-p1-c0",
		Content:  "Chapter one.",
		Metadata: map[string]string{MetaSource: "guide.md", MetaPage: "1"},
	}
	if err := store.Add(context.Background(), doc); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if e.callCount != 1 {
		t.Errorf("embedder called %d times, want 1", e.callCount)
	}
	if e.lastInputText != "Chapter one." {
		t.Errorf("embedded %q, want document content", e.lastInputText)
	}
	if len(q.upserted) != 1 {
		t.Fatalf("upserted %d rows, want 1", len(q.upserted))
	}

	var meta map[string]string
	if err := json.Unmarshal(q.upserted[0].Metadata, &meta); err != nil {
		t.Fatalf("unmarshal stored metadata: %v", err)
	}
	if meta[MetaSource] != "guide.md" || meta[MetaPage] != "1" {
		t.Errorf("stored metadata = %v", meta)
	}
}

func TestStore_Add_EmbedError(t *testing.T) {
	wantErr := errors.New("quota exceeded")
	store := New(&mockQuerier{}, &mockEmbedder{embedErr: wantErr}, log.NewNop())

	err := store.Add(context.Background(), Document{ID: "x", Content: "y"})
	if !errors.Is(err, wantErr) {
		t.Errorf("Add error = %v, want wrapped %v", err, wantErr)
	}
}

func TestStore_Add_EmptyEmbedding(t *testing.T) {
	store := New(&mockQuerier{}, &mockEmbedder{returnEmpty: true}, log.NewNop())

	if err := store.Add(context.Background(), Document{ID: "x", Content: "y"}); err == nil {
		t.Error("expected error for empty embedding")
	}
}

func TestStore_Search(t *testing.T) {
	q := &mockQuerier{
		searchRows: []SearchDocumentsRow{
			searchRow(t, "a", "first", map[string]string{MetaSource: "a.md", MetaPage: "1"}, 0.91),
			searchRow(t, "b", "second", map[string]string{MetaSource: "b.md", MetaPage: "2"}, 0.80),
		},
	}
	store := New(q, &mockEmbedder{}, log.NewNop())

	results, err := store.Search(context.Background(), "question", WithTopK(2))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Document.ID != "a" || results[0].Similarity != 0.91 {
		t.Errorf("unexpected first result: %+v", results[0])
	}
	if results[1].Document.Metadata[MetaSource] != "b.md" {
		t.Errorf("metadata not round-tripped: %+v", results[1].Document.Metadata)
	}
	if got := q.searchArgs[0].ResultLimit; got != 2 {
		t.Errorf("limit = %d, want 2", got)
	}
	if q.searchArgs[0].FilterMetadata != nil {
		t.Errorf("expected nil filter, got %s", q.searchArgs[0].FilterMetadata)
	}
}

func TestStore_Search_WithFilter(t *testing.T) {
	q := &mockQuerier{}
	store := New(q, &mockEmbedder{}, log.NewNop())

	if _, err := store.Search(context.Background(), "q", WithFilter(MetaSource, "a.md")); err != nil {
		t.Fatalf("Search: %v", err)
	}

	var filter map[string]string
	if err := json.Unmarshal(q.searchArgs[0].FilterMetadata, &filter); err != nil {
		t.Fatalf("unmarshal filter: %v", err)
	}
	if filter[MetaSource] != "a.md" {
		t.Errorf("filter = %v", filter)
	}
}

func TestStore_Search_EmbedTimeout(t *testing.T) {
	e := &mockEmbedder{delay: 200 * time.Millisecond}
	store := New(&mockQuerier{}, e, log.NewNop())

	_, err := store.Search(context.Background(), "q", WithTimeout(10*time.Millisecond))
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want DeadlineExceeded", err)
	}
}

func TestStore_Search_QueryError(t *testing.T) {
	wantErr := errors.New("connection refused")
	store := New(&mockQuerier{searchErr: wantErr}, &mockEmbedder{}, log.NewNop())

	_, err := store.Search(context.Background(), "q")
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want wrapped %v", err, wantErr)
	}
}

func TestStore_Search_BadMetadataRows(t *testing.T) {
	q := &mockQuerier{
		searchRows: []SearchDocumentsRow{
			{ID: "bad", Content: "text", Metadata: []byte("{not json"), Similarity: 0.5},
		},
	}
	store := New(q, &mockEmbedder{}, log.NewNop())

	results, err := store.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	// Malformed metadata degrades to an empty map rather than failing the search.
	if results[0].Document.Metadata == nil || len(results[0].Document.Metadata) != 0 {
		t.Errorf("metadata = %v, want empty map", results[0].Document.Metadata)
	}
}

func TestStore_Count(t *testing.T) {
	store := New(&mockQuerier{countVal: 42}, &mockEmbedder{}, log.NewNop())

	n, err := store.Count(context.Background(), nil)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 42 {
		t.Errorf("count = %d, want 42", n)
	}
}

func TestStore_Sources(t *testing.T) {
	q := &mockQuerier{sources: []SourceSummary{
		{Source: "a.md", Pages: 3},
		{Source: "b.txt", Pages: 1},
	}}
	store := New(q, &mockEmbedder{}, log.NewNop())

	sources, err := store.Sources(context.Background())
	if err != nil {
		t.Fatalf("Sources: %v", err)
	}
	if len(sources) != 2 || sources[0].Source != "a.md" || sources[0].Pages != 3 {
		t.Errorf("sources = %+v", sources)
	}
}

func TestStore_Delete(t *testing.T) {
	q := &mockQuerier{}
	store := New(q, &mockEmbedder{}, log.NewNop())

	if err := store.Delete(context.Background(), "doc-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(q.deletedIDs) != 1 || q.deletedIDs[0] != "doc-1" {
		t.Errorf("deleted = %v", q.deletedIDs)
	}
}
