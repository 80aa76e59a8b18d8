package rangecache

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with rangecache-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithDirection adds a read/fetch direction field to the logger.
func (l *Logger) WithDirection(direction string) *Logger {
	return &Logger{
		Logger: l.Logger.With("direction", direction),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogAddRange logs a window merge operation.
func (l *Logger) LogAddRange(ctx context.Context, items int, isStart, isFinish bool, pages int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "add range failed",
			"items", items,
			"is_start", isStart,
			"is_finish", isFinish,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "add range completed",
			"items", items,
			"is_start", isStart,
			"is_finish", isFinish,
			"pages", pages,
		)
	}
}

// LogFetch logs one window fetch from the backing source.
func (l *Logger) LogFetch(ctx context.Context, direction string, items int, isStart, isFinish bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "fetch failed",
			"direction", direction,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "fetch completed",
			"direction", direction,
			"items", items,
			"is_start", isStart,
			"is_finish", isFinish,
		)
	}
}

// LogRead logs a read operation against the current snapshot.
func (l *Logger) LogRead(ctx context.Context, direction string, requested, returned int, complete bool) {
	l.DebugContext(ctx, "read completed",
		"direction", direction,
		"requested", requested,
		"returned", returned,
		"complete", complete,
	)
}
