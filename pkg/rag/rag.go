// Package rag contains the core types and the query orchestrator for
// retrieval-augmented generation.
//
// The orchestrator coordinates five collaborators, each declared here as a
// small interface and implemented in its own subpackage: query optimization
// (optimize), response caching (respcache), conversation history
// (conversation), context assembly (assemble) and answer generation
// (generate). Document retrieval is an external collaborator behind the
// Retriever interface; a pgvector-backed implementation lives in
// pkg/retrieve/pgvector.
package rag

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// MaxQueryLength is the upper bound on raw query size accepted by Validate.
const MaxQueryLength = 4000

// QueryRequest identifies a single question from a tenant, optionally bound
// to an ongoing conversation. DocumentIDs and Filters narrow retrieval to a
// subset of the tenant's documents; both empty means search everything the
// tenant owns.
type QueryRequest struct {
	TenantID       string            `json:"tenantId"`
	ConversationID string            `json:"conversationId,omitempty"`
	Query          string            `json:"query"`
	DocumentIDs    []string          `json:"documentIds,omitempty"`
	Filters        map[string]string `json:"filters,omitempty"`
}

// Validate rejects malformed requests before any pipeline work happens.
func (r QueryRequest) Validate() error {
	if strings.TrimSpace(r.TenantID) == "" {
		return NewErr(CategoryValidation, "tenant id is required")
	}
	if strings.TrimSpace(r.Query) == "" {
		return NewErr(CategoryValidation, "query must not be empty").
			Tag(slog.String("tenant", r.TenantID))
	}
	if len(r.Query) > MaxQueryLength {
		return NewErr(CategoryValidation, "query exceeds maximum length").
			Tags(slog.String("tenant", r.TenantID), slog.Int("length", len(r.Query)))
	}
	return nil
}

// SourceDocument is one retrieved fragment with its relevance score.
type SourceDocument struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Intent classifies what kind of answer a query is after.
type Intent string

const (
	IntentGeneral    Intent = "general"
	IntentDefinition Intent = "definition"
	IntentProcedural Intent = "procedural"
	IntentCausal     Intent = "causal"
	IntentComparison Intent = "comparison"
)

// Complexity buckets a query by structure, used for logging and for
// callers that route complex queries to larger models.
type Complexity string

const (
	ComplexitySimple      Complexity = "simple"
	ComplexityModerate    Complexity = "moderate"
	ComplexityComplex     Complexity = "complex"
	ComplexityVeryComplex Complexity = "very_complex"
)

// OptimizedQuery is the result of query optimization. All fields are
// derived deterministically from Original.
type OptimizedQuery struct {
	Original   string     `json:"original"`
	Normalized string     `json:"normalized"`
	Expanded   string     `json:"expanded"`
	Intent     Intent     `json:"intent"`
	Complexity Complexity `json:"complexity"`
	Keywords   []string   `json:"keywords,omitempty"`
}

// AssembledContext is the rendered context block handed to generation.
type AssembledContext struct {
	Text          string           `json:"text"`
	Included      []SourceDocument `json:"included"`
	TokenEstimate int              `json:"tokenEstimate"`
	Dropped       int              `json:"dropped"`
}

// Status reports how a query concluded. Empty retrieval is a normal
// outcome with its own status, not a failure.
type Status string

const (
	StatusSuccess Status = "success"
	StatusEmpty   Status = "empty"
)

// QueryResponse is the complete answer to one query.
type QueryResponse struct {
	Answer    string           `json:"answer"`
	Status    Status           `json:"status"`
	Sources   []SourceDocument `json:"sources,omitempty"`
	Provider  string           `json:"provider"`
	Cached    bool             `json:"cached"`
	Optimized OptimizedQuery   `json:"optimized"`
	Duration  time.Duration    `json:"duration"`
}

// Chunk is one streamed piece of an answer. The final chunk has Done set
// and carries the assembled QueryResponse; Err is set instead when the
// stream failed.
type Chunk struct {
	Text     string
	Done     bool
	Response *QueryResponse
	Err      error
}

// Result pairs a response with its error for async delivery.
type Result struct {
	Response *QueryResponse
	Err      error
}

// Optimizer rewrites raw queries for retrieval and prompts for generation.
type Optimizer interface {
	Optimize(query string) OptimizedQuery
	OptimizePrompt(prompt string) string
}

// ResponseCache stores complete responses keyed by tenant and query.
// Implementations must treat backend failures as misses on Get.
type ResponseCache interface {
	Get(ctx context.Context, tenantID, query string) (*QueryResponse, bool)
	Put(ctx context.Context, tenantID, query string, resp *QueryResponse, ttl time.Duration) error
}

// ConversationStore keeps bounded per-conversation history and rewrites
// follow-up queries with recent context.
type ConversationStore interface {
	Contextualize(ctx context.Context, tenantID, conversationID, query string, window int) (string, error)
	Append(ctx context.Context, tenantID, conversationID, question, answer string) error
}

// RetrievalFilters narrows a search to specific documents or to documents
// whose metadata carries the given key/value pairs. The zero value matches
// everything the tenant owns.
type RetrievalFilters struct {
	DocumentIDs []string
	Metadata    map[string]string
}

// Retriever finds documents relevant to a query. Results must be scoped to
// the given tenant; a tenant can never see another tenant's documents.
// Implementations decide how threshold interacts with their similarity
// metric; the assembler re-applies it regardless.
type Retriever interface {
	Retrieve(ctx context.Context, tenantID, query string, limit int, threshold float64, filters RetrievalFilters) ([]SourceDocument, error)
}

// Assembler renders retrieved documents into a budgeted context block.
type Assembler interface {
	Assemble(docs []SourceDocument, opts Options) (*AssembledContext, error)
}

// Generator produces an answer from a fully built prompt.
// The provider name of the model that answered is returned alongside.
type Generator interface {
	Generate(ctx context.Context, prompt string) (answer, provider string, err error)
	GenerateStream(ctx context.Context, prompt string, fn func(chunk string) error) (provider string, err error)
}

// Metrics is the subset of a metrics provider the orchestrator records to.
// The prometheus-backed implementation lives in pkg/metrics.
type Metrics interface {
	Counter(ctx context.Context, name string, value int64, labels map[string]string)
	RecordDuration(ctx context.Context, name string, duration time.Duration, labels map[string]string)
}
