package starprobe

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/starprobe/model"
)

// Logger wraps slog.Logger with starprobe-specific context.
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
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithGeneration adds a build generation field to the logger.
func (l *Logger) WithGeneration(gen uint64) *Logger {
	return &Logger{
		Logger: l.Logger.With("generation", gen),
	}
}

// WithK adds a k (neighbor count) field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{
		Logger: l.Logger.With("k", k),
	}
}

// LogBuild logs a completed or failed index build.
func (l *Logger) LogBuild(ctx context.Context, gen uint64, points int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index build failed",
			"generation", gen,
			"points", points,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index build completed",
			"generation", gen,
			"points", points,
			"duration", duration,
		)
	}
}

// LogBuildSuperseded logs a build whose result was discarded because a newer
// Initialize replaced it.
func (l *Logger) LogBuildSuperseded(ctx context.Context, gen, current uint64) {
	l.DebugContext(ctx, "index build superseded",
		"generation", gen,
		"current", current,
	)
}

// LogProbe logs a completed probe query.
func (l *Logger) LogProbe(ctx context.Context, target model.Vec3, res model.SearchResult, duration time.Duration) {
	l.DebugContext(ctx, "probe completed",
		"target", target.String(),
		"result", res.String(),
		"duration", duration,
	)
}

// LogProbeDropped logs a probe that was not dispatched.
func (l *Logger) LogProbeDropped(ctx context.Context, reason DropReason) {
	l.DebugContext(ctx, "probe dropped",
		"reason", string(reason),
	)
}

// LogKNN logs a K-nearest query. Use WithK to attach k.
func (l *Logger) LogKNN(ctx context.Context, found int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "knn search failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "knn search completed",
			"results", found,
		)
	}
}
