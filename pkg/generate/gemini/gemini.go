// Package gemini provides a generate.Provider backed by Google's Gemini
// models through the GenAI SDK.
package gemini

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"

	"github.com/ragkit-ai/go-ragkit/pkg/generate"
	"github.com/ragkit-ai/go-ragkit/pkg/helpers"
)

// Config holds Gemini-specific configuration.
type Config struct {
	// Optional. API key (defaults to GOOGLE_API_KEY env)
	APIKey string

	// Optional. Controls randomness in token selection (0.0-2.0)
	Temperature *float32

	// Optional. Nucleus sampling parameter (0.0-1.0)
	TopP *float32

	// Optional. Maximum number of output tokens
	MaxTokens *int
}

// Option interface for functional options pattern
type Option interface {
	Apply(*Config)
}

// configOption implements Option
type configOption struct{ config *Config }

func (o configOption) Apply(opts *Config) { *opts = *o.config }

// WithConfig sets custom Gemini configuration.
//
// Example:
//
//	config := &gemini.Config{Temperature: helpers.PtrOf(float32(0.9))}
//	client, _ := gemini.New("gemini-2.0-flash", gemini.WithConfig(config))
func WithConfig(config *Config) Option {
	return configOption{config: config}
}

// DefaultConfig returns sensible defaults for Gemini.
//
// Sets temperature to 0.7 and reads the API key from the environment.
func DefaultConfig() *Config {
	return &Config{
		APIKey:      os.Getenv("GOOGLE_API_KEY"),
		Temperature: helpers.PtrOf(float32(0.7)),
	}
}

// Client implements generate.Provider for Gemini.
type Client struct {
	client *genai.Client
	model  string
	config *Config
}

// Verify it implements the interface
var _ generate.Provider = (*Client)(nil)

// New creates a new Gemini client with optional configuration.
//
// Requires GOOGLE_API_KEY in the environment or config.APIKey.
func New(model string, opts ...Option) (*Client, error) {
	if model == "" {
		return nil, fmt.Errorf("model name is required")
	}

	config := DefaultConfig()
	for _, opt := range opts {
		opt.Apply(config)
	}

	if config.APIKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY environment variable not set or provided in config")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: config.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Client{client: client, model: model, config: config}, nil
}

// Name implements generate.Provider.
func (c *Client) Name() string {
	return "gemini/" + c.model
}

// Generate implements generate.Provider with a single-turn chat.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	chat, err := c.client.Chats.Create(ctx, c.model, c.buildGenerateConfig(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create chat: %w", err)
	}

	result, err := chat.SendMessage(ctx, genai.Part{Text: prompt})
	if err != nil {
		return "", fmt.Errorf("failed to get response: %w", err)
	}
	return result.Text(), nil
}

// GenerateStream implements generate.Provider, forwarding text chunks as
// they arrive.
func (c *Client) GenerateStream(ctx context.Context, prompt string, fn func(chunk string) error) error {
	chat, err := c.client.Chats.Create(ctx, c.model, c.buildGenerateConfig(), nil)
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}

	for result, err := range chat.SendMessageStream(ctx, genai.Part{Text: prompt}) {
		if err != nil {
			return fmt.Errorf("failed to get response: %w", err)
		}
		if text := result.Text(); text != "" {
			if err := fn(text); err != nil {
				return err
			}
		}
	}
	return nil
}

// Healthy implements generate.Provider by fetching the model's metadata.
func (c *Client) Healthy(ctx context.Context) bool {
	_, err := c.client.Models.Get(ctx, c.model, nil)
	return err == nil
}

// buildGenerateConfig creates a GenerateContentConfig from provider config
func (c *Client) buildGenerateConfig() *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}

	if c.config.Temperature != nil {
		config.Temperature = genai.Ptr(*c.config.Temperature)
	}
	if c.config.TopP != nil {
		config.TopP = genai.Ptr(*c.config.TopP)
	}
	if c.config.MaxTokens != nil {
		config.MaxOutputTokens = int32(*c.config.MaxTokens)
	}

	return config
}
