// Package logger provides structured logging for the live studio runtime.
//
// It wraps log/slog with package-level helpers, lifts session fields from the
// context into every record, and redacts API keys before they reach the output.
// The level is read from LOG_LEVEL at init and can be changed with SetLevel,
// SetVerbose or Configure.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

var (
	// DefaultLogger is the global structured logger. It is safe for concurrent use.
	DefaultLogger *slog.Logger

	outputMu  sync.Mutex
	logOutput io.Writer = os.Stderr
)

func init() {
	level := slog.LevelInfo
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		level = ParseLevel(envLevel)
	}
	DefaultLogger = slog.New(NewContextHandler(newBaseHandler(level, false)))
}

func newBaseHandler(level slog.Level, useJSON bool) slog.Handler {
	outputMu.Lock()
	w := logOutput
	outputMu.Unlock()

	opts := &slog.HandlerOptions{Level: level}
	if useJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// SetOutput redirects log output and resets the logger to the given level.
// Tests use it to capture records.
func SetOutput(w io.Writer, level slog.Level) {
	outputMu.Lock()
	logOutput = w
	outputMu.Unlock()
	SetLevel(level)
}

// SetLevel replaces the global logger with one at the given level.
func SetLevel(level slog.Level) {
	DefaultLogger = slog.New(NewContextHandler(newBaseHandler(level, false)))
}

// SetVerbose switches between debug and info level, for command-line -v flags.
func SetVerbose(verbose bool) {
	if verbose {
		SetLevel(slog.LevelDebug)
	} else {
		SetLevel(slog.LevelInfo)
	}
}

// ParseLevel maps a level name to a slog.Level. Unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace", "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Info logs at info level. Args are key-value pairs.
func Info(msg string, args ...any) {
	DefaultLogger.Info(msg, args...)
}

// InfoContext logs at info level with context fields.
func InfoContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.InfoContext(ctx, msg, args...)
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	DefaultLogger.Debug(msg, args...)
}

// DebugContext logs at debug level with context fields.
func DebugContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.DebugContext(ctx, msg, args...)
}

// Warn logs at warn level. Use it for contained per-message failures.
func Warn(msg string, args ...any) {
	DefaultLogger.Warn(msg, args...)
}

// WarnContext logs at warn level with context fields.
func WarnContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.WarnContext(ctx, msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	DefaultLogger.Error(msg, args...)
}

// ErrorContext logs at error level with context fields.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.ErrorContext(ctx, msg, args...)
}

// Enabled reports whether records at level would be written.
func Enabled(ctx context.Context, level slog.Level) bool {
	return DefaultLogger.Enabled(ctx, level)
}

var apiKeyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`AIza[a-zA-Z0-9_-]{35}`),    // Google API keys
	regexp.MustCompile(`sk-[a-zA-Z0-9]{32,}`),      // generic secret keys
	regexp.MustCompile(`Bearer\s+[a-zA-Z0-9_.-]+`), // bearer tokens
	regexp.MustCompile(`key=[a-zA-Z0-9_-]{16,}`),   // query-string keys
}

// RedactSensitiveData replaces API keys and bearer tokens in input.
// Keys keep their first four characters so they can still be told apart.
func RedactSensitiveData(input string) string {
	result := input
	for _, pattern := range apiKeyPatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			switch {
			case strings.HasPrefix(match, "Bearer"):
				return "Bearer [REDACTED]"
			case strings.HasPrefix(match, "key="):
				return "key=[REDACTED]"
			case len(match) > 8:
				return match[:4] + "...[REDACTED]"
			default:
				return "[REDACTED]"
			}
		})
	}
	return result
}

// maxPayloadLog bounds how much of a base64 payload ends up in a log line.
const maxPayloadLog = 64

// TruncatePayload shortens large media payloads for logging.
func TruncatePayload(data string) string {
	if len(data) <= maxPayloadLog {
		return data
	}
	return data[:maxPayloadLog] + "...(" + strconv.Itoa(len(data)) + " bytes)"
}
