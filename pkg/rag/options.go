package rag

import (
	"log/slog"
	"time"
)

// Options is an immutable per-query tuning value. Build one with
// DefaultOptions, FastOptions or ComprehensiveOptions and adjust it with
// functional options; pass it by value so callers can never mutate a
// request already in flight.
//
// Example:
//
//	opts := rag.DefaultOptions(rag.WithMaxDocuments(3), rag.WithCacheTTL(10*time.Minute))
type Options struct {
	// MaxDocuments caps how many documents retrieval is asked for.
	MaxDocuments int

	// RelevanceThreshold drops documents scoring below it during assembly.
	RelevanceThreshold float64

	// MaxContextTokens bounds the assembled context size.
	MaxContextTokens int

	// IncludeSources controls whether the response carries source documents.
	IncludeSources bool

	// ConversationWindow is how many recent exchanges contextualization uses.
	ConversationWindow int

	// CacheTTL is how long a computed response stays cached.
	CacheTTL time.Duration
}

// Option adjusts one field of an Options value during construction.
type Option func(*Options)

// WithMaxDocuments sets the retrieval document cap.
func WithMaxDocuments(n int) Option {
	return func(o *Options) { o.MaxDocuments = n }
}

// WithRelevanceThreshold sets the assembly score cutoff.
func WithRelevanceThreshold(t float64) Option {
	return func(o *Options) { o.RelevanceThreshold = t }
}

// WithMaxContextTokens sets the assembled context token budget.
func WithMaxContextTokens(n int) Option {
	return func(o *Options) { o.MaxContextTokens = n }
}

// WithoutSources omits source documents from responses.
func WithoutSources() Option {
	return func(o *Options) { o.IncludeSources = false }
}

// WithConversationWindow sets how many exchanges contextualization sees.
func WithConversationWindow(n int) Option {
	return func(o *Options) { o.ConversationWindow = n }
}

// WithCacheTTL sets the response cache lifetime.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *Options) { o.CacheTTL = ttl }
}

// DefaultOptions returns the balanced preset.
func DefaultOptions(opts ...Option) Options {
	o := Options{
		MaxDocuments:       5,
		RelevanceThreshold: 0.7,
		MaxContextTokens:   4000,
		IncludeSources:     true,
		ConversationWindow: 5,
		CacheTTL:           time.Hour,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// FastOptions trades recall for latency: fewer documents, stricter
// threshold, smaller context.
func FastOptions(opts ...Option) Options {
	o := DefaultOptions(
		WithMaxDocuments(3),
		WithRelevanceThreshold(0.8),
		WithMaxContextTokens(2000),
		WithConversationWindow(3),
	)
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ComprehensiveOptions trades latency for recall: more documents, looser
// threshold, larger context.
func ComprehensiveOptions(opts ...Option) Options {
	o := DefaultOptions(
		WithMaxDocuments(10),
		WithRelevanceThreshold(0.5),
		WithMaxContextTokens(8000),
		WithConversationWindow(8),
	)
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Validate rejects option values the pipeline cannot honor.
func (o Options) Validate() error {
	if o.MaxDocuments <= 0 {
		return NewErr(CategoryValidation, "max documents must be positive").
			Tag(slog.Int("maxDocuments", o.MaxDocuments))
	}
	if o.RelevanceThreshold < 0 || o.RelevanceThreshold > 1 {
		return NewErr(CategoryValidation, "relevance threshold must be in [0, 1]").
			Tag(slog.Float64("relevanceThreshold", o.RelevanceThreshold))
	}
	if o.MaxContextTokens <= 0 {
		return NewErr(CategoryValidation, "max context tokens must be positive").
			Tag(slog.Int("maxContextTokens", o.MaxContextTokens))
	}
	if o.ConversationWindow < 0 {
		return NewErr(CategoryValidation, "conversation window must not be negative").
			Tag(slog.Int("conversationWindow", o.ConversationWindow))
	}
	return nil
}
