// Package generate turns prompts into answers through a chain of model
// providers with circuit-breaker fallback.
//
// Providers implement the Provider strategy interface; the Generator
// tries them in order, skips providers whose breaker is open, and tracks
// which provider answered last. Provider implementations live in
// subpackages (ollama, openai, gemini).
package generate

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/ragkit-ai/go-ragkit/pkg/logger"
	"github.com/ragkit-ai/go-ragkit/pkg/rag"
)

// Provider is one model backend. Implementations must be safe for
// concurrent use.
type Provider interface {
	// Name identifies the provider in responses, logs and metrics.
	Name() string

	// Generate returns the complete answer for a prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateStream delivers the answer incrementally through fn.
	// A non-nil error from fn aborts the stream.
	GenerateStream(ctx context.Context, prompt string, fn func(chunk string) error) error

	// Healthy reports whether the backend is currently reachable.
	Healthy(ctx context.Context) bool
}

// Generator runs a provider chain: the primary first, then each fallback
// in order until one succeeds. Every provider sits behind its own circuit
// breaker so a consistently failing backend is skipped instead of paid
// for on every query.
type Generator struct {
	providers []Provider
	breakers  []*circuitBreaker
	lastUsed  atomic.Value // string
	log       logger.Adapter
}

// Verify it implements the orchestrator contract
var _ rag.Generator = (*Generator)(nil)

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger for fallback warnings.
func WithLogger(log logger.Adapter) Option {
	return func(g *Generator) { g.log = log }
}

// New creates a Generator from a primary provider and ordered fallbacks.
func New(primary Provider, fallbacks []Provider, opts ...Option) (*Generator, error) {
	if primary == nil {
		return nil, fmt.Errorf("primary provider is required")
	}

	providers := append([]Provider{primary}, fallbacks...)
	breakers := make([]*circuitBreaker, len(providers))
	for i := range providers {
		if providers[i] == nil {
			return nil, fmt.Errorf("fallback provider %d is nil", i)
		}
		breakers[i] = newCircuitBreaker()
	}

	g := &Generator{
		providers: providers,
		breakers:  breakers,
		log:       logger.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate answers the prompt with the first provider that succeeds.
// Returns a CategoryGeneration error carrying the last cause when every
// provider fails or is skipped by its breaker.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, string, error) {
	var lastErr error
	for i, p := range g.providers {
		if !g.breakers[i].Allow() {
			continue
		}

		answer, err := p.Generate(ctx, prompt)
		if err == nil {
			g.breakers[i].RecordSuccess()
			g.lastUsed.Store(p.Name())
			return answer, p.Name(), nil
		}

		g.breakers[i].RecordFailure()
		lastErr = err
		g.log.Log(ctx, logger.WarnLevel, "provider failed, trying next",
			logger.Attr("provider", p.Name()),
			logger.Attr("error", err))
	}

	return "", "", g.allFailed(lastErr)
}

// GenerateStream answers the prompt incrementally. Fallback only engages
// while nothing has been emitted yet; once a provider has streamed a
// chunk its failure aborts the stream, since the partial output cannot be
// retracted.
func (g *Generator) GenerateStream(ctx context.Context, prompt string, fn func(chunk string) error) (string, error) {
	var lastErr error
	for i, p := range g.providers {
		if !g.breakers[i].Allow() {
			continue
		}

		emitted := false
		err := p.GenerateStream(ctx, prompt, func(chunk string) error {
			emitted = true
			return fn(chunk)
		})
		if err == nil {
			g.breakers[i].RecordSuccess()
			g.lastUsed.Store(p.Name())
			return p.Name(), nil
		}

		g.breakers[i].RecordFailure()
		if emitted {
			return "", rag.WrapErr(rag.CategoryGeneration, err, "stream failed mid-answer").
				Tag(slog.String("provider", p.Name()))
		}

		lastErr = err
		g.log.Log(ctx, logger.WarnLevel, "provider failed before streaming, trying next",
			logger.Attr("provider", p.Name()),
			logger.Attr("error", err))
	}

	return "", g.allFailed(lastErr)
}

// LastUsed returns the name of the provider behind the most recent
// successful generation, or "" before the first success.
func (g *Generator) LastUsed() string {
	if v, ok := g.lastUsed.Load().(string); ok {
		return v
	}
	return ""
}

// Status reports each provider's health, keyed by provider name.
func (g *Generator) Status(ctx context.Context) map[string]bool {
	out := make(map[string]bool, len(g.providers))
	for _, p := range g.providers {
		out[p.Name()] = p.Healthy(ctx)
	}
	return out
}

func (g *Generator) allFailed(lastErr error) error {
	if lastErr == nil {
		return rag.NewErr(rag.CategoryGeneration, "all providers skipped by open circuit breakers")
	}
	return rag.WrapErr(rag.CategoryGeneration, lastErr, "all providers failed")
}
