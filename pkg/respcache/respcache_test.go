package respcache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ragkit-ai/go-ragkit/pkg/kv"
	"github.com/ragkit-ai/go-ragkit/pkg/rag"
)

// failingStore simulates an unhealthy backend.
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("backend down")
}
func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("backend down")
}
func (failingStore) Delete(context.Context, string) error { return errors.New("backend down") }
func (failingStore) List(context.Context, string) ([]string, error) {
	return nil, errors.New("backend down")
}
func (failingStore) Close() error { return nil }

func sampleResponse() *rag.QueryResponse {
	return &rag.QueryResponse{
		Answer:   "Spring AI is an application framework for AI engineering.",
		Provider: "ollama",
		Sources: []rag.SourceDocument{
			{ID: "d1", Content: "Spring AI docs", Score: 0.92},
		},
	}
}

func TestPutThenGet(t *testing.T) {
	store := kv.NewInMemory()
	defer store.Close()
	cache := New(store)
	ctx := context.Background()

	if err := cache.Put(ctx, "tenant-a", "what is spring ai?", sampleResponse(), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := cache.Get(ctx, "tenant-a", "what is spring ai?")
	if !ok {
		t.Fatal("expected a hit")
	}
	if got.Answer != sampleResponse().Answer {
		t.Errorf("Answer = %q", got.Answer)
	}
	if got.Provider != "ollama" {
		t.Errorf("Provider = %q", got.Provider)
	}
	if len(got.Sources) != 1 || got.Sources[0].ID != "d1" {
		t.Errorf("Sources = %v", got.Sources)
	}
}

func TestGetMiss(t *testing.T) {
	store := kv.NewInMemory()
	defer store.Close()
	cache := New(store)

	_, ok := cache.Get(context.Background(), "tenant-a", "never asked")
	if ok {
		t.Error("expected a miss")
	}

	stats := cache.Stats()
	if stats.Misses != 1 || stats.Hits != 0 {
		t.Errorf("Stats = %+v", stats)
	}
}

func TestTenantIsolation(t *testing.T) {
	store := kv.NewInMemory()
	defer store.Close()
	cache := New(store)
	ctx := context.Background()

	if err := cache.Put(ctx, "tenant-a", "shared question", sampleResponse(), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if _, ok := cache.Get(ctx, "tenant-b", "shared question"); ok {
		t.Error("tenant-b saw tenant-a's cached response")
	}
	if _, ok := cache.Get(ctx, "tenant-a", "shared question"); !ok {
		t.Error("tenant-a lost its own entry")
	}
}

func TestClearTenant(t *testing.T) {
	store := kv.NewInMemory()
	defer store.Close()
	cache := New(store)
	ctx := context.Background()

	cache.Put(ctx, "tenant-a", "q1", sampleResponse(), time.Minute)
	cache.Put(ctx, "tenant-a", "q2", sampleResponse(), time.Minute)
	cache.Put(ctx, "tenant-b", "q1", sampleResponse(), time.Minute)

	removed, err := cache.ClearTenant(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("ClearTenant failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	if _, ok := cache.Get(ctx, "tenant-a", "q1"); ok {
		t.Error("tenant-a entry survived clear")
	}
	if _, ok := cache.Get(ctx, "tenant-b", "q1"); !ok {
		t.Error("ClearTenant removed another tenant's entry")
	}
}

func TestInvalidate(t *testing.T) {
	store := kv.NewInMemory()
	defer store.Close()
	cache := New(store)
	ctx := context.Background()

	cache.Put(ctx, "tenant-a", "q1", sampleResponse(), time.Minute)
	cache.Put(ctx, "tenant-a", "q2", sampleResponse(), time.Minute)

	removed, err := cache.Invalidate(ctx, "tenant-a", Fingerprint("q1"))
	if err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, ok := cache.Get(ctx, "tenant-a", "q1"); ok {
		t.Error("invalidated entry survived")
	}
	if _, ok := cache.Get(ctx, "tenant-a", "q2"); !ok {
		t.Error("unrelated entry was removed")
	}

	if _, err := cache.Invalidate(ctx, "tenant-a", "[bad"); !rag.IsCache(err) {
		t.Errorf("expected cache-categorized error for malformed pattern, got %v", err)
	}

	removed, err = cache.Invalidate(ctx, "tenant-a", "*")
	if err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want the remaining entry", removed)
	}
}

func TestClearTenantDelimiterInTenantID(t *testing.T) {
	store := kv.NewInMemory()
	defer store.Close()
	cache := New(store)
	ctx := context.Background()

	cache.Put(ctx, "a", "q1", sampleResponse(), time.Minute)
	cache.Put(ctx, "a:b", "q1", sampleResponse(), time.Minute)

	removed, err := cache.ClearTenant(ctx, "a")
	if err != nil {
		t.Fatalf("ClearTenant failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, ok := cache.Get(ctx, "a:b", "q1"); !ok {
		t.Error(`clearing tenant "a" removed tenant "a:b"'s entry`)
	}
}

func TestBackendFailureIsAMiss(t *testing.T) {
	cache := New(failingStore{})
	ctx := context.Background()

	_, ok := cache.Get(ctx, "tenant-a", "anything")
	if ok {
		t.Error("backend failure must read as a miss")
	}

	err := cache.Put(ctx, "tenant-a", "anything", sampleResponse(), time.Minute)
	if !rag.IsCache(err) {
		t.Errorf("expected cache-categorized error, got %v", err)
	}

	stats := cache.Stats()
	if stats.Errors != 2 {
		t.Errorf("Errors = %d, want 2", stats.Errors)
	}
}

func TestCorruptEntryIsAMiss(t *testing.T) {
	store := kv.NewInMemory()
	defer store.Close()
	cache := New(store)
	ctx := context.Background()

	store.Set(ctx, Key("tenant-a", "q"), []byte("{not json"), time.Minute)

	if _, ok := cache.Get(ctx, "tenant-a", "q"); ok {
		t.Error("corrupt entry must read as a miss")
	}
}

func TestPutNilResponse(t *testing.T) {
	cache := New(kv.NewInMemory())

	err := cache.Put(context.Background(), "tenant-a", "q", nil, time.Minute)
	if !rag.IsCache(err) {
		t.Errorf("expected cache-categorized error, got %v", err)
	}
}

func TestKeyShape(t *testing.T) {
	key := Key("tenant-a", "what is spring ai?")

	if !strings.HasPrefix(key, "rag:tenant-a:") {
		t.Errorf("key %q missing tenant prefix", key)
	}
	hash := strings.TrimPrefix(key, "rag:tenant-a:")
	if len(hash) != 64 {
		t.Errorf("expected 64 hex chars of hash, got %d", len(hash))
	}
	if key == Key("tenant-a", "a different query") {
		t.Error("different queries produced the same key")
	}
	if Key("tenant-a", "q") == Key("tenant-b", "q") {
		t.Error("different tenants produced the same key")
	}
}
