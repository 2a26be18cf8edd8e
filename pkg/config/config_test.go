package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ragkit-ai/go-ragkit/pkg/rag"
)

func TestParse_FullFile(t *testing.T) {
	raw := []byte(`
query:
  max_documents: 3
  relevance_threshold: 0.8
  max_context_tokens: 2000
  conversation_window: 3
  cache_ttl: 30m
optimizer:
  acronyms:
    K8S: kubernetes
  stop_words: [the, a]
assembler:
  separator: "\n===\n"
  chars_per_token: 3
providers:
  primary: openai
  openai:
    model: gpt-4o-mini
cache:
  backend: memory
logging:
  level: debug
  format: console
`)

	cfg, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	opts := cfg.Options()
	if opts.MaxDocuments != 3 {
		t.Errorf("MaxDocuments = %d, want 3", opts.MaxDocuments)
	}
	if opts.RelevanceThreshold != 0.8 {
		t.Errorf("RelevanceThreshold = %v, want 0.8", opts.RelevanceThreshold)
	}
	if opts.CacheTTL != 30*time.Minute {
		t.Errorf("CacheTTL = %v, want 30m", opts.CacheTTL)
	}
	if !opts.IncludeSources {
		t.Error("IncludeSources should default to true")
	}

	oc := cfg.OptimizerConfig()
	if oc == nil || oc.Acronyms["K8S"] != "kubernetes" {
		t.Errorf("OptimizerConfig() = %+v, want K8S acronym", oc)
	}

	ac := cfg.AssemblerConfig()
	if ac == nil || ac.CharsPerToken != 3 {
		t.Errorf("AssemblerConfig() = %+v, want chars_per_token 3", ac)
	}

	if cfg.Providers.Primary != "openai" || cfg.Providers.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("providers = %+v", cfg.Providers)
	}
}

func TestParse_DefaultsWhenEmpty(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	opts := cfg.Options()
	defaults := rag.DefaultOptions()
	if opts != defaults {
		t.Errorf("Options() = %+v, want defaults %+v", opts, defaults)
	}
	if cfg.OptimizerConfig() != nil {
		t.Error("OptimizerConfig() should be nil when unset")
	}
	if cfg.AssemblerConfig() != nil {
		t.Error("AssemblerConfig() should be nil when unset")
	}
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_RAGKIT_DB_URL", "postgres://localhost/ragkit")

	cfg, err := Parse([]byte("retrieval:\n  connection_string: ${TEST_RAGKIT_DB_URL}\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Retrieval.ConnectionString != "postgres://localhost/ragkit" {
		t.Errorf("ConnectionString = %q, want expanded env value", cfg.Retrieval.ConnectionString)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"unknown cache backend", "cache:\n  backend: memcached\n"},
		{"redis without addr", "cache:\n  backend: redis\n"},
		{"unknown provider", "providers:\n  primary: mistral\n"},
		{"threshold out of range", "query:\n  relevance_threshold: 1.5\n"},
		{"negative max documents", "query:\n  max_documents: -1\n"},
		{"bad ttl", "query:\n  cache_ttl: soon\n"},
		{"unknown log level", "logging:\n  level: loud\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !rag.IsValidation(err) {
				t.Errorf("error category = %v, want validation", err)
			}
		})
	}
}

func TestLoad_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ragkit.yaml")
	if err := os.WriteFile(path, []byte("query:\n  max_documents: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Options().MaxDocuments != 7 {
		t.Errorf("MaxDocuments = %d, want 7", cfg.Options().MaxDocuments)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
