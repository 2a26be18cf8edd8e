// Package respcache caches complete query responses keyed by tenant and
// query hash, on top of any kv.Store backend.
//
// The cache is strictly best-effort: a backend read failure is reported as
// a miss and a write failure leaves the entry uncached. Concurrent misses
// for the same key each compute the response and race the write; the last
// write wins. There is deliberately no request coalescing: entries are
// idempotent, recomputation is correct, and the duplicated work under a
// cold-start burst costs less than serializing every miss through a
// single-flight gate.
package respcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ragkit-ai/go-ragkit/pkg/kv"
	"github.com/ragkit-ai/go-ragkit/pkg/logger"
	"github.com/ragkit-ai/go-ragkit/pkg/rag"
)

const keyPrefix = "rag:"

// DefaultTTL is how long entries live when the caller does not say.
const DefaultTTL = time.Hour

// entry is the stored JSON shape. Duration and Cached are recomputed per
// request, so only the payload fields are persisted.
type entry struct {
	Answer    string               `json:"answer"`
	Sources   []rag.SourceDocument `json:"sources,omitempty"`
	Provider  string               `json:"provider"`
	CreatedAt time.Time            `json:"createdAt"`
}

// Stats is a snapshot of cache traffic counters.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Errors int64 `json:"errors"`
}

// Cache stores query responses in a kv.Store with tenant-scoped keys.
type Cache struct {
	store      kv.Store
	defaultTTL time.Duration
	log        logger.Adapter

	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
}

// Verify it implements the orchestrator contract
var _ rag.ResponseCache = (*Cache)(nil)

// Option configures a Cache.
type Option func(*Cache)

// WithDefaultTTL overrides the fallback entry lifetime.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.defaultTTL = ttl }
}

// WithLogger sets the logger for degraded-path warnings.
func WithLogger(log logger.Adapter) Option {
	return func(c *Cache) { c.log = log }
}

// New creates a Cache over store.
func New(store kv.Store, opts ...Option) *Cache {
	c := &Cache{
		store:      store,
		defaultTTL: DefaultTTL,
		log:        logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get looks up a cached response. Backend and decode failures count as
// misses; the query never fails because the cache is unhealthy.
func (c *Cache) Get(ctx context.Context, tenantID, query string) (*rag.QueryResponse, bool) {
	key := Key(tenantID, query)

	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.errors.Add(1)
		c.misses.Add(1)
		c.log.Log(ctx, logger.WarnLevel, "cache read failed, treating as miss",
			logger.Attr("tenant", tenantID),
			logger.Attr("error", err))
		return nil, false
	}
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.errors.Add(1)
		c.misses.Add(1)
		c.log.Log(ctx, logger.WarnLevel, "cache entry corrupt, treating as miss",
			logger.Attr("tenant", tenantID),
			logger.Attr("error", err))
		return nil, false
	}

	c.hits.Add(1)
	return &rag.QueryResponse{
		Answer:   e.Answer,
		Sources:  e.Sources,
		Provider: e.Provider,
	}, true
}

// Put stores a response. A ttl <= 0 uses the cache's default. The returned
// error is categorized for callers that care; the orchestrator logs and
// drops it.
func (c *Cache) Put(ctx context.Context, tenantID, query string, resp *rag.QueryResponse, ttl time.Duration) error {
	if resp == nil {
		return rag.NewErr(rag.CategoryCache, "cannot cache a nil response")
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	data, err := json.Marshal(entry{
		Answer:    resp.Answer,
		Sources:   resp.Sources,
		Provider:  resp.Provider,
		CreatedAt: time.Now(),
	})
	if err != nil {
		c.errors.Add(1)
		return rag.WrapErr(rag.CategoryCache, err, "failed to encode cache entry")
	}

	if err := c.store.Set(ctx, Key(tenantID, query), data, ttl); err != nil {
		c.errors.Add(1)
		return rag.WrapErr(rag.CategoryCache, err, "failed to write cache entry")
	}
	return nil
}

// Invalidate deletes the tenant's entries whose query fingerprint matches
// pattern, in path.Match syntax, and returns how many were removed. Pass
// Fingerprint(query) to drop one known query, or a glob like "a1b2*" to
// drop a fingerprint range. Other tenants' entries are never touched.
func (c *Cache) Invalidate(ctx context.Context, tenantID, pattern string) (int, error) {
	prefix := tenantPrefix(tenantID)
	keys, err := c.store.List(ctx, prefix)
	if err != nil {
		return 0, rag.WrapErr(rag.CategoryCache, err, "failed to list tenant cache keys")
	}

	removed := 0
	for _, key := range keys {
		matched, err := path.Match(pattern, strings.TrimPrefix(key, prefix))
		if err != nil {
			return removed, rag.WrapErr(rag.CategoryCache, err, "invalid invalidation pattern")
		}
		if !matched {
			continue
		}
		if err := c.store.Delete(ctx, key); err != nil {
			return removed, rag.WrapErr(rag.CategoryCache, err, "failed to delete cache entry")
		}
		removed++
	}
	return removed, nil
}

// ClearTenant deletes every cached response for one tenant and returns
// how many entries were removed. Other tenants' entries are untouched.
func (c *Cache) ClearTenant(ctx context.Context, tenantID string) (int, error) {
	return c.Invalidate(ctx, tenantID, "*")
}

// Stats returns a snapshot of traffic counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Errors: c.errors.Load(),
	}
}

// Key builds the storage key for a tenant and query.
func Key(tenantID, query string) string {
	return tenantPrefix(tenantID) + Fingerprint(query)
}

// Fingerprint hashes a query into the fixed-width key segment it is stored
// under, so arbitrary text cannot collide with the key syntax.
func Fingerprint(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])
}

// The tenant segment is escaped so a tenant id containing the delimiter
// cannot alias another tenant's prefix.
func tenantPrefix(tenantID string) string {
	return fmt.Sprintf("%s%s:", keyPrefix, kv.EscapeKeySegment(tenantID))
}
