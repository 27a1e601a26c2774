// ABOUTME: Structured logging wrapper around slog, global level via SetLevel
// ABOUTME: Writes to stderr; component/correlation-id attributes via For/WithCorrelation

package log

import (
	"fmt"
	"log/slog"
	"os"
)

// Level constants matching slog levels.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

var levelVar = new(slog.LevelVar)

var base = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))

func init() {
	levelVar.Set(LevelInfo)
}

// SetLevel sets the global log level.
func SetLevel(l slog.Level) {
	levelVar.Set(l)
}

// GetLevel returns the current log level.
func GetLevel() slog.Level {
	return levelVar.Level()
}

// Debug logs a formatted debug message if the level allows it.
func Debug(format string, args ...any) {
	base.Debug(fmt.Sprintf(format, args...))
}

// Info logs a formatted info message if the level allows it.
func Info(format string, args ...any) {
	base.Info(fmt.Sprintf(format, args...))
}

// Warn logs a formatted warning message if the level allows it.
func Warn(format string, args ...any) {
	base.Warn(fmt.Sprintf(format, args...))
}

// Error logs a formatted error message (always emitted).
func Error(format string, args ...any) {
	base.Error(fmt.Sprintf(format, args...))
}

// For returns a child logger tagged with a component name, for call sites
// that hold a *slog.Logger reference instead of using the package-level
// helpers (constructor-injected components, per the design note that the
// process-wide state is threaded through, not ambient).
func For(component string) *slog.Logger {
	return base.With("component", component)
}

// WithCorrelation returns a child logger carrying a correlation id, so every
// line one AI request or one hotkey activation produces can be grepped
// together without inspecting payloads.
func WithCorrelation(logger *slog.Logger, id string) *slog.Logger {
	return logger.With("corr_id", id)
}
