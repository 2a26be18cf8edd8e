// Package kv defines the key-value storage capability used by the response
// cache and conversation store, plus an in-memory implementation with TTL.
//
// Persistent backends live in subpackages (badger, redis) and satisfy the
// same Store interface, so callers pick a backend at wiring time without
// touching cache or conversation code.
package kv

import (
	"context"
	"strings"
	"time"
)

// Store is the minimal contract a key-value backend must provide.
//
// A ttl <= 0 means the entry never expires. Get returns (nil, false, nil)
// for missing or expired keys; an error is reserved for backend failures.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// keySegmentEscaper percent-encodes '%', the ':' delimiter and glob
// metacharacters. Escaping is injective, so two distinct segments can
// never produce the same key.
var keySegmentEscaper = strings.NewReplacer(
	"%", "%25",
	":", "%3A",
	"*", "%2A",
	"?", "%3F",
	"[", "%5B",
)

// EscapeKeySegment makes s safe to embed between ':' delimiters in a
// compound key. Without it a segment like "a:b" would alias segment "a"
// under prefix listing, letting one caller's cleanup delete another's
// entries.
func EscapeKeySegment(s string) string {
	return keySegmentEscaper.Replace(s)
}
