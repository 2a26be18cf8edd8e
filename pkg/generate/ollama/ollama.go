// Package ollama provides a generate.Provider backed by a local Ollama
// server, for running models like Llama and Mistral without an API key.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/ragkit-ai/go-ragkit/pkg/generate"
	"github.com/ragkit-ai/go-ragkit/pkg/helpers"
)

// Config holds Ollama-specific configuration.
//
// All fields are optional with sensible defaults.
type Config struct {
	// Optional. Ollama server host (defaults to localhost:11434 or OLLAMA_HOST env)
	Host string

	// Optional. Controls randomness in token selection (0.0-2.0)
	Temperature *float32

	// Optional. Nucleus sampling parameter (0.0-1.0)
	TopP *float32

	// Optional. Maximum number of tokens in the response
	MaxTokens *int

	// Optional. Strings that stop text generation when encountered
	Stop []string

	// Optional. Controls how long the model stays loaded in memory (e.g. "5m", "1h")
	KeepAlive string
}

// Option interface for functional options pattern
type Option interface {
	Apply(*Config)
}

// configOption implements Option
type configOption struct{ config *Config }

func (o configOption) Apply(opts *Config) { *opts = *o.config }

// WithConfig sets custom Ollama configuration.
//
// Example:
//
//	config := &ollama.Config{Host: "http://remote:11434"}
//	client, _ := ollama.New("llama3.2", ollama.WithConfig(config))
func WithConfig(config *Config) Option {
	return configOption{config: config}
}

// DefaultConfig returns sensible defaults for Ollama.
//
// Sets 0.7 temperature and a 5m keep-alive; the host comes from the
// OLLAMA_HOST environment or localhost.
func DefaultConfig() *Config {
	return &Config{
		Temperature: helpers.PtrOf(float32(0.7)),
		KeepAlive:   "5m",
	}
}

// Client implements generate.Provider for Ollama.
type Client struct {
	client *api.Client
	model  string
	config *Config
}

// Verify it implements the interface
var _ generate.Provider = (*Client)(nil)

// New creates a new Ollama client with optional configuration.
//
// Requires an Ollama server running with the specified model available.
// Use 'ollama list' to see available models.
func New(model string, opts ...Option) (*Client, error) {
	if model == "" {
		model = "llama3.2" // Default model
	}

	config := DefaultConfig()
	for _, opt := range opts {
		opt.Apply(config)
	}

	var client *api.Client
	if config.Host == "" {
		// Checks the OLLAMA_HOST env var, falls back to localhost
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create client from environment: %w", err)
		}
	} else {
		u, err := url.Parse(config.Host)
		if err != nil {
			return nil, fmt.Errorf("invalid host URL: %w", err)
		}
		client = api.NewClient(u, http.DefaultClient)
	}

	return &Client{client: client, model: model, config: config}, nil
}

// Name implements generate.Provider.
func (c *Client) Name() string {
	return "ollama/" + c.model
}

// Generate implements generate.Provider with a buffered chat completion.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	req := c.buildChatRequest(prompt, false)

	var full strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		full.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to chat with ollama: %w", err)
	}
	return full.String(), nil
}

// GenerateStream implements generate.Provider, forwarding tokens as they
// arrive.
func (c *Client) GenerateStream(ctx context.Context, prompt string, fn func(chunk string) error) error {
	req := c.buildChatRequest(prompt, true)

	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		if resp.Message.Content == "" {
			return nil
		}
		return fn(resp.Message.Content)
	})
	if err != nil {
		return fmt.Errorf("failed to chat with ollama: %w", err)
	}
	return nil
}

// Healthy implements generate.Provider with the server heartbeat.
func (c *Client) Healthy(ctx context.Context) bool {
	return c.client.Heartbeat(ctx) == nil
}

// buildChatRequest creates an Ollama ChatRequest from provider config
func (c *Client) buildChatRequest(prompt string, stream bool) *api.ChatRequest {
	req := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
		Stream:  helpers.PtrOf(stream),
		Options: make(map[string]any),
	}

	if c.config.Temperature != nil {
		req.Options["temperature"] = *c.config.Temperature
	}
	if c.config.TopP != nil {
		req.Options["top_p"] = *c.config.TopP
	}
	if c.config.MaxTokens != nil {
		req.Options["num_predict"] = *c.config.MaxTokens
	}
	if len(c.config.Stop) > 0 {
		req.Options["stop"] = c.config.Stop
	}
	if c.config.KeepAlive != "" {
		req.Options["keep_alive"] = c.config.KeepAlive
	}

	return req
}
