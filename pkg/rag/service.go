package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ragkit-ai/go-ragkit/pkg/logger"
)

const systemPrompt = "You are a helpful assistant that answers questions " +
	"based on the provided context. If the context does not contain the " +
	"answer, say so rather than guessing."

// emptyAnswer is returned when retrieval matched nothing for the tenant.
const emptyAnswer = "No relevant documents were found for your question. " +
	"Try rephrasing it or broadening the terms."

// Config wires the orchestrator's collaborators.
//
// Optimizer, Retriever, Assembler and Generator are required. Cache and
// Conversations are optional; a nil Cache disables caching and a nil
// Conversations disables history. Log and Metrics default to no-ops.
type Config struct {
	Optimizer     Optimizer
	Cache         ResponseCache
	Conversations ConversationStore
	Retriever     Retriever
	Assembler     Assembler
	Generator     Generator

	Log     logger.Adapter
	Metrics Metrics
}

// Service runs the query pipeline: optimize, cache lookup, retrieve,
// assemble, generate, record. It is safe for concurrent use.
type Service struct {
	optimizer     Optimizer
	cache         ResponseCache
	conversations ConversationStore
	retriever     Retriever
	assembler     Assembler
	generator     Generator

	log     logger.Adapter
	metrics Metrics
	stats   *statsRegistry
}

// New creates a Service from cfg.
func New(cfg Config) (*Service, error) {
	if cfg.Optimizer == nil {
		return nil, fmt.Errorf("optimizer is required")
	}
	if cfg.Retriever == nil {
		return nil, fmt.Errorf("retriever is required")
	}
	if cfg.Assembler == nil {
		return nil, fmt.Errorf("assembler is required")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}

	log := cfg.Log
	if log == nil {
		log = logger.NewNop()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}

	return &Service{
		optimizer:     cfg.Optimizer,
		cache:         cfg.Cache,
		conversations: cfg.Conversations,
		retriever:     cfg.Retriever,
		assembler:     cfg.Assembler,
		generator:     cfg.Generator,
		log:           log,
		metrics:       metrics,
		stats:         newStatsRegistry(),
	}, nil
}

// ProcessQuery runs the full pipeline for one query and blocks until the
// answer is ready.
//
// Cache failures never fail the query: a read error is a miss and a write
// error is logged and dropped. A query no document matched returns a
// StatusEmpty response with a canned answer, not an error. Every other
// stage error is returned as a categorized *Error with the first failing
// stage winning.
func (s *Service) ProcessQuery(ctx context.Context, req QueryRequest, opts Options) (*QueryResponse, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		s.recordFailure(ctx, req.TenantID, err)
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		s.recordFailure(ctx, req.TenantID, err)
		return nil, err
	}

	counters := s.stats.forTenant(req.TenantID)
	counters.queries.Add(1)
	s.metrics.Counter(ctx, "rag_queries_total", 1, map[string]string{"tenant": req.TenantID})

	optimized := s.optimizer.Optimize(req.Query)

	if resp, ok := s.cacheLookup(ctx, req, optimized, counters); ok {
		resp.Duration = time.Since(start)
		if !opts.IncludeSources {
			resp.Sources = nil
		}
		s.recordDuration(ctx, req.TenantID, counters, resp.Duration)
		return resp, nil
	}

	assembled, prompt, err := s.prepare(ctx, req, optimized, opts)
	if err != nil {
		if IsRetrievalEmpty(err) {
			resp := s.emptyResponse(ctx, req, optimized)
			resp.Duration = time.Since(start)
			s.recordDuration(ctx, req.TenantID, counters, resp.Duration)
			return resp, nil
		}
		s.recordFailure(ctx, req.TenantID, err)
		return nil, err
	}
	counters.addRelevance(assembled.Included)

	answer, provider, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.recordFailure(ctx, req.TenantID, err)
		return nil, err
	}

	resp := s.finish(ctx, req, optimized, opts, assembled, answer, provider)
	resp.Duration = time.Since(start)
	s.recordDuration(ctx, req.TenantID, counters, resp.Duration)

	s.log.Log(ctx, logger.InfoLevel, "query processed",
		logger.Attr("tenant", req.TenantID),
		logger.Attr("provider", provider),
		logger.Attr("sources", len(assembled.Included)),
		logger.Attr("duration", resp.Duration))

	return resp, nil
}

// ProcessQueryAsync runs ProcessQuery on its own goroutine and delivers
// the result on the returned channel. The channel is buffered; the result
// is never lost if the caller is slow to receive.
func (s *Service) ProcessQueryAsync(ctx context.Context, req QueryRequest, opts Options) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		resp, err := s.ProcessQuery(ctx, req, opts)
		out <- Result{Response: resp, Err: err}
	}()
	return out
}

// ProcessQueryStreaming runs the pipeline and streams the answer as it is
// generated. The final chunk has Done set and carries the complete
// response; errors arrive as a chunk with Err set and close the channel.
// A cache hit replays the cached answer as a single chunk.
func (s *Service) ProcessQueryStreaming(ctx context.Context, req QueryRequest, opts Options) <-chan Chunk {
	out := make(chan Chunk, 8)
	go func() {
		defer close(out)
		s.streamQuery(ctx, req, opts, out)
	}()
	return out
}

func (s *Service) streamQuery(ctx context.Context, req QueryRequest, opts Options, out chan<- Chunk) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		s.recordFailure(ctx, req.TenantID, err)
		send(ctx, out, Chunk{Err: err})
		return
	}
	if err := opts.Validate(); err != nil {
		s.recordFailure(ctx, req.TenantID, err)
		send(ctx, out, Chunk{Err: err})
		return
	}

	counters := s.stats.forTenant(req.TenantID)
	counters.queries.Add(1)
	s.metrics.Counter(ctx, "rag_queries_total", 1, map[string]string{"tenant": req.TenantID})

	optimized := s.optimizer.Optimize(req.Query)

	if resp, ok := s.cacheLookup(ctx, req, optimized, counters); ok {
		resp.Duration = time.Since(start)
		if !opts.IncludeSources {
			resp.Sources = nil
		}
		s.recordDuration(ctx, req.TenantID, counters, resp.Duration)
		if send(ctx, out, Chunk{Text: resp.Answer}) {
			send(ctx, out, Chunk{Done: true, Response: resp})
		}
		return
	}

	assembled, prompt, err := s.prepare(ctx, req, optimized, opts)
	if err != nil {
		if IsRetrievalEmpty(err) {
			resp := s.emptyResponse(ctx, req, optimized)
			resp.Duration = time.Since(start)
			s.recordDuration(ctx, req.TenantID, counters, resp.Duration)
			if send(ctx, out, Chunk{Text: resp.Answer}) {
				send(ctx, out, Chunk{Done: true, Response: resp})
			}
			return
		}
		s.recordFailure(ctx, req.TenantID, err)
		send(ctx, out, Chunk{Err: err})
		return
	}
	counters.addRelevance(assembled.Included)

	var full strings.Builder
	provider, err := s.generator.GenerateStream(ctx, prompt, func(chunk string) error {
		full.WriteString(chunk)
		if !send(ctx, out, Chunk{Text: chunk}) {
			return ctx.Err()
		}
		return nil
	})
	if err != nil {
		s.recordFailure(ctx, req.TenantID, err)
		send(ctx, out, Chunk{Err: err})
		return
	}

	resp := s.finish(ctx, req, optimized, opts, assembled, full.String(), provider)
	resp.Duration = time.Since(start)
	s.recordDuration(ctx, req.TenantID, counters, resp.Duration)

	send(ctx, out, Chunk{Done: true, Response: resp})
}

// send delivers one chunk unless the context is done. A false return means
// the consumer is gone and the stream must stop producing; without the
// context arm an abandoned stream with a full buffer would pin its
// goroutine forever.
func send(ctx context.Context, out chan<- Chunk, c Chunk) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

// Stats returns a snapshot of one tenant's counters. Unknown tenants get
// a zeroed snapshot.
func (s *Service) Stats(tenantID string) TenantStats {
	return s.stats.snapshot(tenantID)
}

// StatsAll returns snapshots for every tenant seen so far.
func (s *Service) StatsAll() []TenantStats {
	return s.stats.snapshotAll()
}

// cacheLookup checks the cache for an optimized query. It owns the
// hit/miss counters so the sync and streaming paths stay consistent.
func (s *Service) cacheLookup(ctx context.Context, req QueryRequest, optimized OptimizedQuery, counters *tenantCounters) (*QueryResponse, bool) {
	if s.cache == nil {
		return nil, false
	}

	labels := map[string]string{"tenant": req.TenantID}
	if cached, ok := s.cache.Get(ctx, req.TenantID, optimized.Normalized); ok {
		counters.cacheHits.Add(1)
		s.metrics.Counter(ctx, "rag_cache_hits_total", 1, labels)
		s.log.Log(ctx, logger.DebugLevel, "cache hit",
			logger.Attr("tenant", req.TenantID))

		resp := *cached
		resp.Status = StatusSuccess
		resp.Cached = true
		resp.Optimized = optimized
		return &resp, true
	}

	counters.cacheMisses.Add(1)
	s.metrics.Counter(ctx, "rag_cache_misses_total", 1, labels)
	return nil, false
}

// prepare runs retrieval, assembly and contextualization, returning the
// assembled context and the final prompt.
func (s *Service) prepare(ctx context.Context, req QueryRequest, optimized OptimizedQuery, opts Options) (*AssembledContext, string, error) {
	filters := RetrievalFilters{DocumentIDs: req.DocumentIDs, Metadata: req.Filters}
	docs, err := s.retriever.Retrieve(ctx, req.TenantID, optimized.Expanded, opts.MaxDocuments, opts.RelevanceThreshold, filters)
	if err != nil {
		return nil, "", WrapErr(CategoryRetrieval, err, "retrieval failed")
	}
	if len(docs) == 0 {
		return nil, "", NewErr(CategoryRetrievalEmpty, "no documents matched the query")
	}

	assembled, err := s.assembler.Assemble(docs, opts)
	if err != nil {
		return nil, "", err
	}

	question := req.Query
	if s.conversations != nil && req.ConversationID != "" {
		contextualized, cerr := s.conversations.Contextualize(ctx, req.TenantID, req.ConversationID, req.Query, opts.ConversationWindow)
		if cerr != nil {
			s.log.Log(ctx, logger.WarnLevel, "contextualization failed, using raw query",
				logger.Attr("tenant", req.TenantID),
				logger.Attr("conversation", req.ConversationID),
				logger.Attr("error", cerr))
		} else {
			question = contextualized
		}
	}

	prompt := buildPrompt(assembled.Text, question, optimized.Intent)
	prompt = s.optimizer.OptimizePrompt(prompt)
	return assembled, prompt, nil
}

// finish records the exchange and caches the response. Both are
// best-effort; the answer is already in hand.
func (s *Service) finish(ctx context.Context, req QueryRequest, optimized OptimizedQuery, opts Options, assembled *AssembledContext, answer, provider string) *QueryResponse {
	if s.conversations != nil && req.ConversationID != "" {
		if err := s.conversations.Append(ctx, req.TenantID, req.ConversationID, req.Query, answer); err != nil {
			s.log.Log(ctx, logger.WarnLevel, "failed to append conversation exchange",
				logger.Attr("tenant", req.TenantID),
				logger.Attr("conversation", req.ConversationID),
				logger.Attr("error", err))
		}
	}

	resp := &QueryResponse{
		Answer:    answer,
		Status:    StatusSuccess,
		Provider:  provider,
		Optimized: optimized,
	}
	if opts.IncludeSources {
		resp.Sources = assembled.Included
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, req.TenantID, optimized.Normalized, resp, opts.CacheTTL); err != nil {
			s.log.Log(ctx, logger.WarnLevel, "failed to cache response",
				logger.Attr("tenant", req.TenantID),
				logger.Attr("error", err))
		}
	}

	return resp
}

// emptyResponse builds the structured outcome for a query no document
// matched. This is a normal result: it never touches the failure counters,
// is logged at info level, and is not cached so the question gets a real
// answer once documents arrive.
func (s *Service) emptyResponse(ctx context.Context, req QueryRequest, optimized OptimizedQuery) *QueryResponse {
	s.metrics.Counter(ctx, "rag_empty_results_total", 1, map[string]string{"tenant": req.TenantID})
	s.log.Log(ctx, logger.InfoLevel, "no documents matched",
		logger.Attr("tenant", req.TenantID),
		logger.Attr("query", optimized.Normalized))
	return &QueryResponse{
		Answer:    emptyAnswer,
		Status:    StatusEmpty,
		Optimized: optimized,
	}
}

func (s *Service) recordFailure(ctx context.Context, tenantID string, err error) {
	if tenantID != "" {
		s.stats.forTenant(tenantID).failures.Add(1)
	}
	s.metrics.Counter(ctx, "rag_failures_total", 1, map[string]string{
		"tenant":   tenantID,
		"category": CategoryOf(err).String(),
	})
	s.log.Log(ctx, logger.ErrorLevel, "query failed",
		logger.Attr("tenant", tenantID),
		logger.Attr("category", CategoryOf(err).String()),
		logger.Attr("error", err))
}

func (s *Service) recordDuration(ctx context.Context, tenantID string, counters *tenantCounters, d time.Duration) {
	counters.durationNS.Add(int64(d))
	s.metrics.RecordDuration(ctx, "rag_query_duration_seconds", d,
		map[string]string{"tenant": tenantID})
}

// buildPrompt renders the generation prompt from the context block and
// question. Non-general intents are surfaced so the model can shape the
// answer accordingly.
func buildPrompt(contextText, question string, intent Intent) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")
	if intent != "" && intent != IntentGeneral {
		fmt.Fprintf(&b, "Intent: %s\n\n", intent)
	}
	fmt.Fprintf(&b, "Use the following context to answer the question.\n\nContext:\n%s\n\nQuestion: %s\n\nAnswer:", contextText, question)
	return b.String()
}

// nopMetrics is the default Metrics when none is configured.
type nopMetrics struct{}

func (nopMetrics) Counter(context.Context, string, int64, map[string]string)                 {}
func (nopMetrics) RecordDuration(context.Context, string, time.Duration, map[string]string) {}
