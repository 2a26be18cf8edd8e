package retrieve

import (
	"context"
	"errors"
	"testing"

	"github.com/ragkit-ai/go-ragkit/pkg/rag"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls = append(f.calls, text)
	return f.vector, f.err
}

type fakeStore struct {
	result    *SearchResult
	err       error
	lastQuery SearchQuery
}

func (f *fakeStore) Search(_ context.Context, q SearchQuery) (*SearchResult, error) {
	f.lastQuery = q
	return f.result, f.err
}
func (f *fakeStore) Store(context.Context, []Document) error        { return nil }
func (f *fakeStore) Delete(context.Context, string, []string) error { return nil }
func (f *fakeStore) Health(context.Context) error                   { return nil }
func (f *fakeStore) Close() error                                   { return nil }

func TestNewRetriever_RequiresCollaborators(t *testing.T) {
	if _, err := NewRetriever(nil, &fakeEmbedder{}); err == nil {
		t.Error("expected error for nil store")
	}
	if _, err := NewRetriever(&fakeStore{}, nil); err == nil {
		t.Error("expected error for nil embedder")
	}
}

func TestRetrieve_EmbedsAndSearches(t *testing.T) {
	store := &fakeStore{result: &SearchResult{
		Documents: []Document{
			{ID: "a", Content: "first", Score: 0.9, Metadata: map[string]any{"lang": "go"}},
			{ID: "b", Content: "second", Score: 0.8},
		},
		Total: 2,
	}}
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2}}

	r, err := NewRetriever(store, embedder)
	if err != nil {
		t.Fatalf("NewRetriever() error = %v", err)
	}

	filters := rag.RetrievalFilters{
		DocumentIDs: []string{"a"},
		Metadata:    map[string]string{"lang": "go"},
	}
	docs, err := r.Retrieve(context.Background(), "acme", "what is go", 5, 0.7, filters)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	if len(embedder.calls) != 1 || embedder.calls[0] != "what is go" {
		t.Errorf("embedder calls = %v, want [what is go]", embedder.calls)
	}
	if store.lastQuery.TenantID != "acme" {
		t.Errorf("search tenant = %q, want acme", store.lastQuery.TenantID)
	}
	if store.lastQuery.Limit != 5 || store.lastQuery.Threshold != 0.7 {
		t.Errorf("search query = %+v, want limit 5 threshold 0.7", store.lastQuery)
	}
	if len(store.lastQuery.Vector) != 2 {
		t.Errorf("search vector length = %d, want 2", len(store.lastQuery.Vector))
	}
	if len(store.lastQuery.DocumentIDs) != 1 || store.lastQuery.DocumentIDs[0] != "a" {
		t.Errorf("document filter = %v, want [a]", store.lastQuery.DocumentIDs)
	}
	if store.lastQuery.Metadata["lang"] != "go" {
		t.Errorf("metadata filter = %v, want lang=go", store.lastQuery.Metadata)
	}

	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	if docs[0].ID != "a" || docs[0].Score != 0.9 {
		t.Errorf("docs[0] = %+v, want id a score 0.9", docs[0])
	}
	if docs[0].Metadata["lang"] != "go" {
		t.Errorf("metadata not carried over: %v", docs[0].Metadata)
	}
}

func TestRetrieve_EmbedError(t *testing.T) {
	embedErr := errors.New("model offline")
	r, err := NewRetriever(&fakeStore{}, &fakeEmbedder{err: embedErr})
	if err != nil {
		t.Fatalf("NewRetriever() error = %v", err)
	}

	if _, err := r.Retrieve(context.Background(), "acme", "q", 3, 0.5, rag.RetrievalFilters{}); !errors.Is(err, embedErr) {
		t.Errorf("Retrieve() error = %v, want wrapped %v", err, embedErr)
	}
}

func TestRetrieve_SearchError(t *testing.T) {
	searchErr := errors.New("connection refused")
	r, err := NewRetriever(&fakeStore{err: searchErr}, &fakeEmbedder{vector: []float32{1}})
	if err != nil {
		t.Fatalf("NewRetriever() error = %v", err)
	}

	if _, err := r.Retrieve(context.Background(), "acme", "q", 3, 0.5, rag.RetrievalFilters{}); !errors.Is(err, searchErr) {
		t.Errorf("Retrieve() error = %v, want %v", err, searchErr)
	}
}
