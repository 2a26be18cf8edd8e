package rag

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// TenantStats is a point-in-time snapshot of one tenant's counters.
// Counters start at zero and only ever increase. AvgRelevance is the mean
// score of every document that made it into an assembled context; zero
// until the tenant's first non-empty retrieval.
type TenantStats struct {
	TenantID      string        `json:"tenantId"`
	Queries       int64         `json:"queries"`
	CacheHits     int64         `json:"cacheHits"`
	CacheMisses   int64         `json:"cacheMisses"`
	Failures      int64         `json:"failures"`
	TotalDuration time.Duration `json:"totalDuration"`
	AvgRelevance  float64       `json:"avgRelevance"`
}

// tenantCounters is the live counter set behind a TenantStats snapshot.
// Relevance is accumulated in thousandths so it fits an atomic integer.
type tenantCounters struct {
	queries           atomic.Int64
	cacheHits         atomic.Int64
	cacheMisses       atomic.Int64
	failures          atomic.Int64
	durationNS        atomic.Int64
	relevanceSumMilli atomic.Int64
	relevanceDocs     atomic.Int64
}

func (c *tenantCounters) addRelevance(docs []SourceDocument) {
	for _, d := range docs {
		c.relevanceSumMilli.Add(int64(math.Round(d.Score * 1000)))
		c.relevanceDocs.Add(1)
	}
}

func (c *tenantCounters) snapshot(tenantID string) TenantStats {
	st := TenantStats{
		TenantID:      tenantID,
		Queries:       c.queries.Load(),
		CacheHits:     c.cacheHits.Load(),
		CacheMisses:   c.cacheMisses.Load(),
		Failures:      c.failures.Load(),
		TotalDuration: time.Duration(c.durationNS.Load()),
	}
	if docs := c.relevanceDocs.Load(); docs > 0 {
		st.AvgRelevance = float64(c.relevanceSumMilli.Load()) / 1000 / float64(docs)
	}
	return st
}

// statsRegistry holds per-tenant counters. Reads vastly outnumber the
// first write for a tenant, so lookups take the read lock.
type statsRegistry struct {
	mu      sync.RWMutex
	tenants map[string]*tenantCounters
}

func newStatsRegistry() *statsRegistry {
	return &statsRegistry{tenants: make(map[string]*tenantCounters)}
}

func (r *statsRegistry) forTenant(tenantID string) *tenantCounters {
	r.mu.RLock()
	c, ok := r.tenants[tenantID]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok = r.tenants[tenantID]; ok {
		return c
	}
	c = &tenantCounters{}
	r.tenants[tenantID] = c
	return c
}

func (r *statsRegistry) snapshot(tenantID string) TenantStats {
	r.mu.RLock()
	c, ok := r.tenants[tenantID]
	r.mu.RUnlock()
	if !ok {
		return TenantStats{TenantID: tenantID}
	}
	return c.snapshot(tenantID)
}

func (r *statsRegistry) snapshotAll() []TenantStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]TenantStats, 0, len(r.tenants))
	for id, c := range r.tenants {
		out = append(out, c.snapshot(id))
	}
	return out
}
