// Package retrieve defines the document retrieval contracts the
// orchestrator depends on, plus an adapter joining a vector store and an
// embedder into a rag.Retriever. Concrete vector store backends live in
// subpackages (pgvector).
package retrieve

import (
	"context"
	"fmt"
	"time"

	"github.com/ragkit-ai/go-ragkit/pkg/rag"
)

// Document is one stored fragment with optional metadata and timestamps.
// Every document belongs to exactly one tenant.
type Document struct {
	ID       string         `json:"id"`
	TenantID string         `json:"tenantId"`
	Content  string         `json:"content"`
	Score    float64        `json:"score,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Created  time.Time      `json:"created,omitempty"`
	Updated  time.Time      `json:"updated,omitempty"`
}

// SearchQuery describes one similarity search. TenantID is required;
// backends must never return another tenant's documents. DocumentIDs and
// Metadata further narrow the candidate set when non-empty.
type SearchQuery struct {
	TenantID    string
	Text        string
	Vector      []float32
	Limit       int
	Threshold   float64
	DocumentIDs []string
	Metadata    map[string]string
}

// SearchResult holds matched documents, most similar first.
type SearchResult struct {
	Documents []Document
	Total     int
}

// Embedder turns text into a vector. Generation of embeddings is out of
// scope here; implementations typically wrap a model API.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore is a similarity-searchable document store. All operations
// are tenant-scoped.
type VectorStore interface {
	Search(ctx context.Context, query SearchQuery) (*SearchResult, error)
	Store(ctx context.Context, documents []Document) error
	Delete(ctx context.Context, tenantID string, ids []string) error
	Health(ctx context.Context) error
	Close() error
}

// Retriever joins a VectorStore and an Embedder into the orchestrator's
// retrieval contract.
type Retriever struct {
	store    VectorStore
	embedder Embedder
}

// Verify it implements the orchestrator contract
var _ rag.Retriever = (*Retriever)(nil)

// NewRetriever creates a Retriever over store and embedder.
func NewRetriever(store VectorStore, embedder Embedder) (*Retriever, error) {
	if store == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	return &Retriever{store: store, embedder: embedder}, nil
}

// Retrieve implements rag.Retriever: embed the query, search the tenant's
// documents, convert.
func (r *Retriever) Retrieve(ctx context.Context, tenantID, query string, limit int, threshold float64, filters rag.RetrievalFilters) ([]rag.SourceDocument, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	result, err := r.store.Search(ctx, SearchQuery{
		TenantID:    tenantID,
		Text:        query,
		Vector:      vector,
		Limit:       limit,
		Threshold:   threshold,
		DocumentIDs: filters.DocumentIDs,
		Metadata:    filters.Metadata,
	})
	if err != nil {
		return nil, err
	}

	docs := make([]rag.SourceDocument, len(result.Documents))
	for i, doc := range result.Documents {
		docs[i] = rag.SourceDocument{
			ID:       doc.ID,
			Content:  doc.Content,
			Score:    doc.Score,
			Metadata: doc.Metadata,
		}
	}
	return docs, nil
}
