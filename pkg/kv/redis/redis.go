// Package redis provides a Redis implementation of the kv.Store interface
// for deployments where cached responses and conversation history must be
// shared across processes.
package redis

import (
	"context"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/ragkit-ai/go-ragkit/pkg/kv"
)

// Config holds Redis connection settings
type Config struct {
	// Redis server address (defaults to localhost:6379)
	Addr string

	// Optional. Password for authenticated servers
	Password string

	// Optional. Database index
	DB int

	// Optional. Connection pool size (go-redis default when zero)
	PoolSize int
}

// DefaultConfig returns sensible defaults for a local Redis server
func DefaultConfig() *Config {
	return &Config{Addr: "localhost:6379"}
}

// Store implements the kv.Store interface using Redis
type Store struct {
	client *redis.Client
}

// Verify it implements the interface
var _ kv.Store = (*Store)(nil)

// New creates a Store and verifies connectivity with a ping.
func New(ctx context.Context, config *Config) (*Store, error) {
	if config == nil {
		config = DefaultConfig()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &Store{client: client}, nil
}

// NewFromClient wraps an existing go-redis client.
// The caller keeps ownership; Close is still safe to call.
func NewFromClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Get retrieves a value by key
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set stores a value by key with TTL. A ttl <= 0 stores without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0 // go-redis treats 0 as no expiry
	}
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Delete removes a value by key
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// globEscaper neutralizes MATCH metacharacters, so a literal prefix
// containing '*', '?' or '[' cannot match keys outside the prefix.
var globEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"?", `\?`,
	"[", `\[`,
	"]", `\]`,
)

// listPattern turns a literal key prefix into the SCAN MATCH pattern.
func listPattern(prefix string) string {
	return globEscaper.Replace(prefix) + "*"
}

// List returns all keys with the given prefix using SCAN,
// so it never blocks the server the way KEYS would.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, listPattern(prefix), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// Close closes the underlying client
func (s *Store) Close() error {
	return s.client.Close()
}
