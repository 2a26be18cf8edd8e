// Package logger provides a minimal structured logging contract with
// pluggable backends (zerolog, slog, or none).
package logger

import "context"

// Level represents logging levels (Debug < Info < Warn < Error)
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Attribute represents a structured logging attribute for key-value pairs
type Attribute struct {
	Key   string
	Value any
}

// Attr creates an Attribute
func Attr(key string, value any) Attribute {
	return Attribute{Key: key, Value: value}
}

// Adapter defines the contract for logging backends (zerolog, slog, etc.)
type Adapter interface {
	Log(ctx context.Context, level Level, msg string, attrs ...Attribute) // Structured logging with level
	Enabled(ctx context.Context, level Level) bool                        // Performance check - skip work if disabled
}

// Nop is an Adapter that discards everything. Components default to it
// when no logger is configured.
type Nop struct{}

// NewNop creates a no-op adapter
func NewNop() Nop { return Nop{} }

// Log implements Adapter
func (Nop) Log(context.Context, Level, string, ...Attribute) {}

// Enabled implements Adapter
func (Nop) Enabled(context.Context, Level) bool { return false }
