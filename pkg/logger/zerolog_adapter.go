package logger

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// ZerologAdapter adapts zerolog.Logger to the Adapter interface
type ZerologAdapter struct {
	logger zerolog.Logger
}

// NewZerologAdapter creates a new adapter for an existing zerolog.Logger
func NewZerologAdapter(logger zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{logger: logger}
}

// NewZerolog creates an adapter with a JSON zerolog logger writing to w.
//
// Example:
//
//	log := logger.NewZerolog(os.Stderr, zerolog.InfoLevel)
func NewZerolog(w io.Writer, level zerolog.Level) *ZerologAdapter {
	if w == nil {
		w = os.Stderr
	}
	l := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return &ZerologAdapter{logger: l}
}

// NewZerologConsole creates an adapter with human-readable console output.
// Useful for local development.
func NewZerologConsole(level zerolog.Level) *ZerologAdapter {
	cw := zerolog.ConsoleWriter{Out: os.Stderr}
	l := zerolog.New(cw).Level(level).With().Timestamp().Logger()
	return &ZerologAdapter{logger: l}
}

// Log implements Adapter for structured logging with zerolog
func (z *ZerologAdapter) Log(_ context.Context, level Level, msg string, attrs ...Attribute) {
	var evt *zerolog.Event

	switch level {
	case DebugLevel:
		evt = z.logger.Debug()
	case InfoLevel:
		evt = z.logger.Info()
	case WarnLevel:
		evt = z.logger.Warn()
	case ErrorLevel:
		evt = z.logger.Error()
	default:
		evt = z.logger.Info()
	}

	for _, attr := range attrs {
		evt = evt.Interface(attr.Key, attr.Value)
	}

	evt.Msg(msg)
}

// Enabled checks if the given level is enabled in zerolog
func (z *ZerologAdapter) Enabled(_ context.Context, level Level) bool {
	return z.logger.GetLevel() <= levelToZerolog(level)
}

// levelToZerolog converts our Level to zerolog.Level
func levelToZerolog(level Level) zerolog.Level {
	switch level {
	case DebugLevel:
		return zerolog.DebugLevel
	case InfoLevel:
		return zerolog.InfoLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
