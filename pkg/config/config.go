// Package config loads YAML configuration files into the option values
// the other packages consume. Environment variables referenced as ${VAR}
// in the file are expanded after a best-effort .env load, so secrets like
// connection strings and API keys stay out of the file itself.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"

	"github.com/ragkit-ai/go-ragkit/pkg/assemble"
	"github.com/ragkit-ai/go-ragkit/pkg/optimize"
	"github.com/ragkit-ai/go-ragkit/pkg/rag"
)

// Config is the root of the YAML configuration file.
//
// Example:
//
//	query:
//	  max_documents: 5
//	  relevance_threshold: 0.7
//	  max_context_tokens: 4000
//	  cache_ttl: 1h
//	providers:
//	  primary: ollama
//	  ollama:
//	    model: llama3.2
//	  openai:
//	    model: gpt-4o-mini
//	    api_key: ${OPENAI_API_KEY}
//	cache:
//	  backend: redis
//	  addr: ${REDIS_ADDR}
//	retrieval:
//	  connection_string: ${DATABASE_URL}
//	  table: documents
//	  dimension: 1536
type Config struct {
	Query     Query     `yaml:"query"`
	Optimizer Optimizer `yaml:"optimizer"`
	Assembler Assembler `yaml:"assembler"`
	Providers Providers `yaml:"providers"`
	Cache     Cache     `yaml:"cache"`
	Retrieval Retrieval `yaml:"retrieval"`
	Logging   Logging   `yaml:"logging"`
}

// Query tunes the per-query processing options. Zero fields keep the
// defaults of rag.DefaultOptions.
type Query struct {
	MaxDocuments       int           `yaml:"max_documents"`
	RelevanceThreshold float64       `yaml:"relevance_threshold"`
	MaxContextTokens   int           `yaml:"max_context_tokens"`
	ExcludeSources     bool          `yaml:"exclude_sources"`
	ConversationWindow int           `yaml:"conversation_window"`

	// CacheTTL is a Go duration string like "30m" or "1h".
	CacheTTL string `yaml:"cache_ttl"`
}

// Optimizer overrides the optimizer vocabulary.
type Optimizer struct {
	Acronyms  map[string]string `yaml:"acronyms"`
	StopWords []string          `yaml:"stop_words"`
}

// Assembler tunes context rendering.
type Assembler struct {
	Separator     string `yaml:"separator"`
	CharsPerToken int    `yaml:"chars_per_token"`
}

// Providers selects and configures the generation backends. Primary
// names one of "ollama", "openai" or "gemini"; the others become
// fallbacks in declaration order.
type Providers struct {
	Primary string         `yaml:"primary"`
	Ollama  OllamaProvider `yaml:"ollama"`
	OpenAI  OpenAIProvider `yaml:"openai"`
	Gemini  GeminiProvider `yaml:"gemini"`
}

// OllamaProvider configures the local Ollama backend.
type OllamaProvider struct {
	Model       string   `yaml:"model"`
	Host        string   `yaml:"host"`
	Temperature *float32 `yaml:"temperature"`
	MaxTokens   *int     `yaml:"max_tokens"`
}

// OpenAIProvider configures the OpenAI backend.
type OpenAIProvider struct {
	Model       string   `yaml:"model"`
	APIKey      string   `yaml:"api_key"`
	BaseURL     string   `yaml:"base_url"`
	Temperature *float32 `yaml:"temperature"`
	MaxTokens   *int     `yaml:"max_tokens"`
}

// GeminiProvider configures the Google Gemini backend.
type GeminiProvider struct {
	Model       string   `yaml:"model"`
	APIKey      string   `yaml:"api_key"`
	Temperature *float32 `yaml:"temperature"`
	MaxTokens   *int     `yaml:"max_tokens"`
}

// Cache selects the key-value backend shared by the response cache and
// conversation store.
type Cache struct {
	// Backend is "memory", "badger" or "redis". Defaults to "memory".
	Backend string `yaml:"backend"`

	// Path is the badger data directory; empty means in-memory badger.
	Path string `yaml:"path"`

	// Redis connection settings.
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Retrieval configures the pgvector document store.
type Retrieval struct {
	ConnectionString string `yaml:"connection_string"`
	Table            string `yaml:"table"`
	Dimension        int    `yaml:"dimension"`
}

// Logging selects log output.
type Logging struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level"`

	// Format is "json" or "console". Defaults to json.
	Format string `yaml:"format"`
}

// Load reads and validates the YAML file at path. A .env file in the
// working directory is loaded first if present; ${VAR} references in the
// YAML are expanded from the environment, with unset variables expanding
// to the empty string.
func Load(path string) (*Config, error) {
	// Missing .env is fine, real environments set variables directly
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(raw)
}

// Parse decodes YAML bytes after environment expansion.
func Parse(raw []byte) (*Config, error) {
	expanded := os.Expand(string(raw), os.Getenv)

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, rag.WrapErr(rag.CategoryValidation, err, "failed to parse config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that YAML decoding cannot.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "", "memory", "badger", "redis":
	default:
		return rag.NewErr(rag.CategoryValidation, fmt.Sprintf("unknown cache backend %q", c.Cache.Backend))
	}
	if c.Cache.Backend == "redis" && c.Cache.Addr == "" {
		return rag.NewErr(rag.CategoryValidation, "cache.addr is required for the redis backend")
	}

	switch c.Providers.Primary {
	case "", "ollama", "openai", "gemini":
	default:
		return rag.NewErr(rag.CategoryValidation, fmt.Sprintf("unknown primary provider %q", c.Providers.Primary))
	}

	if c.Query.RelevanceThreshold < 0 || c.Query.RelevanceThreshold > 1 {
		return rag.NewErr(rag.CategoryValidation, "query.relevance_threshold must be between 0 and 1")
	}
	if c.Query.MaxDocuments < 0 {
		return rag.NewErr(rag.CategoryValidation, "query.max_documents must not be negative")
	}
	if c.Query.MaxContextTokens < 0 {
		return rag.NewErr(rag.CategoryValidation, "query.max_context_tokens must not be negative")
	}

	if c.Query.CacheTTL != "" {
		if _, err := time.ParseDuration(c.Query.CacheTTL); err != nil {
			return rag.WrapErr(rag.CategoryValidation, err, "invalid query.cache_ttl")
		}
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return rag.NewErr(rag.CategoryValidation, fmt.Sprintf("unknown log level %q", c.Logging.Level))
	}

	return nil
}

// Options builds the per-query option value, starting from defaults and
// overriding only the fields the file sets.
func (c *Config) Options() rag.Options {
	var opts []rag.Option
	if c.Query.MaxDocuments > 0 {
		opts = append(opts, rag.WithMaxDocuments(c.Query.MaxDocuments))
	}
	if c.Query.RelevanceThreshold > 0 {
		opts = append(opts, rag.WithRelevanceThreshold(c.Query.RelevanceThreshold))
	}
	if c.Query.MaxContextTokens > 0 {
		opts = append(opts, rag.WithMaxContextTokens(c.Query.MaxContextTokens))
	}
	if c.Query.ExcludeSources {
		opts = append(opts, rag.WithoutSources())
	}
	if c.Query.ConversationWindow > 0 {
		opts = append(opts, rag.WithConversationWindow(c.Query.ConversationWindow))
	}
	if c.Query.CacheTTL != "" {
		if ttl, err := time.ParseDuration(c.Query.CacheTTL); err == nil && ttl > 0 {
			opts = append(opts, rag.WithCacheTTL(ttl))
		}
	}
	return rag.DefaultOptions(opts...)
}

// OptimizerConfig returns the optimizer vocabulary overrides, or nil when
// the file sets none so the built-in defaults apply.
func (c *Config) OptimizerConfig() *optimize.Config {
	if c.Optimizer.Acronyms == nil && c.Optimizer.StopWords == nil {
		return nil
	}
	return &optimize.Config{
		Acronyms:  c.Optimizer.Acronyms,
		StopWords: c.Optimizer.StopWords,
	}
}

// AssemblerConfig returns the assembler settings, or nil for defaults.
func (c *Config) AssemblerConfig() *assemble.Config {
	if c.Assembler.Separator == "" && c.Assembler.CharsPerToken == 0 {
		return nil
	}
	return &assemble.Config{
		Separator:     c.Assembler.Separator,
		CharsPerToken: c.Assembler.CharsPerToken,
	}
}
