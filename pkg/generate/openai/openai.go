// Package openai provides a generate.Provider backed by OpenAI's Chat
// Completions API.
package openai

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/ragkit-ai/go-ragkit/pkg/generate"
	"github.com/ragkit-ai/go-ragkit/pkg/helpers"
)

// Config holds OpenAI-specific configuration.
type Config struct {
	// Optional. API key (defaults to OPENAI_API_KEY env)
	APIKey string

	// Optional. Custom API endpoint for proxies and compatible servers
	BaseURL string

	// Optional. Controls randomness in token selection (0.0-2.0)
	Temperature *float32

	// Optional. Nucleus sampling parameter (0.0-1.0)
	TopP *float32

	// Optional. Maximum number of completion tokens
	MaxTokens *int

	// Optional. Strings that stop text generation when encountered
	Stop []string

	// Optional. Seed for reproducible outputs (model dependent)
	Seed *int
}

// Option interface for functional options pattern
type Option interface {
	Apply(*Config)
}

// configOption implements Option
type configOption struct{ config *Config }

func (o configOption) Apply(opts *Config) { *opts = *o.config }

// WithConfig sets custom OpenAI configuration.
//
// Example:
//
//	config := &openai.Config{Temperature: helpers.PtrOf(float32(0.2))}
//	client, _ := openai.New("gpt-4o-mini", openai.WithConfig(config))
func WithConfig(config *Config) Option {
	return configOption{config: config}
}

// DefaultConfig returns sensible defaults for OpenAI.
//
// Sets temperature to 0.7 and reads the API key from the environment.
func DefaultConfig() *Config {
	return &Config{
		APIKey:      os.Getenv("OPENAI_API_KEY"),
		Temperature: helpers.PtrOf(float32(0.7)),
	}
}

// Client implements generate.Provider for OpenAI.
type Client struct {
	client *openai.Client
	model  shared.ChatModel
	config *Config
}

// Verify it implements the interface
var _ generate.Provider = (*Client)(nil)

// New creates a new OpenAI client with optional configuration.
//
// Requires OPENAI_API_KEY in the environment or config.APIKey.
func New(model string, opts ...Option) (*Client, error) {
	if model == "" {
		return nil, fmt.Errorf("model name is required")
	}

	config := DefaultConfig()
	for _, opt := range opts {
		opt.Apply(config)
	}

	if config.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set or provided in config")
	}

	clientOptions := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		clientOptions = append(clientOptions, option.WithBaseURL(config.BaseURL))
	}

	openaiClient := openai.NewClient(clientOptions...)

	return &Client{
		client: &openaiClient,
		model:  shared.ChatModel(model),
		config: config,
	}, nil
}

// Name implements generate.Provider.
func (c *Client) Name() string {
	return "openai/" + string(c.model)
}

// Generate implements generate.Provider with a non-streaming completion.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	response, err := c.client.Chat.Completions.New(ctx, c.buildChatParams(prompt))
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return response.Choices[0].Message.Content, nil
}

// GenerateStream implements generate.Provider, forwarding deltas as they
// arrive.
func (c *Client) GenerateStream(ctx context.Context, prompt string, fn func(chunk string) error) (err error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, c.buildChatParams(prompt))
	defer func() {
		if closeErr := stream.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close stream: %w", closeErr)
		}
	}()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			if err := fn(delta); err != nil {
				return err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("openai stream failed: %w", err)
	}
	return nil
}

// Healthy implements generate.Provider by listing models, the cheapest
// authenticated call the API offers.
func (c *Client) Healthy(ctx context.Context) bool {
	_, err := c.client.Models.List(ctx)
	return err == nil
}

// buildChatParams creates chat completion parameters for a single prompt
func (c *Client) buildChatParams(prompt string) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}

	if c.config.Temperature != nil {
		params.Temperature = openai.Float(float64(*c.config.Temperature))
	}
	if c.config.TopP != nil {
		params.TopP = openai.Float(float64(*c.config.TopP))
	}
	if c.config.MaxTokens != nil {
		params.MaxCompletionTokens = openai.Int(int64(*c.config.MaxTokens))
	}
	if len(c.config.Stop) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: c.config.Stop}
	}
	if c.config.Seed != nil {
		params.Seed = openai.Int(int64(*c.config.Seed))
	}

	return params
}
