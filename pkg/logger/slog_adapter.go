package logger

import (
	"context"
	"log/slog"
)

// SlogAdapter adapts *slog.Logger to the Adapter interface
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new adapter for slog.
// Pass nil to use slog.Default().
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

// Log implements Adapter for structured logging with slog
func (s *SlogAdapter) Log(ctx context.Context, level Level, msg string, attrs ...Attribute) {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, slog.Any(attr.Key, attr.Value))
	}
	s.logger.Log(ctx, levelToSlog(level), msg, args...)
}

// Enabled checks if the given level is enabled in slog
func (s *SlogAdapter) Enabled(ctx context.Context, level Level) bool {
	return s.logger.Enabled(ctx, levelToSlog(level))
}

// levelToSlog converts our Level to slog.Level
func levelToSlog(level Level) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case InfoLevel:
		return slog.LevelInfo
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
