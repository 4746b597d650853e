// Package logger builds the slog loggers used across typhoon.
//
// Loggers write text or JSON records and mask attributes whose keys look like
// credentials (bot tokens, OAuth secrets), since the notifier configuration
// passes through the same logger as everything else.
//
// Example usage:
//
//	log, err := logger.New(os.Stderr, "info", "json")
//	if err != nil {
//	    return err
//	}
//	logger.SetDefault(log)
//
//	logger.Info("fetch finished", logger.Fields{
//	    "encoding": "Big5",
//	    "cities":   22,
//	})
//
//	logger.Error("notify failed", logger.Fields{"channel": "telegram"}, err)
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
)

// Supported output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// MaskValue replaces the value of a credential attribute.
const MaskValue = "***REDACTED***"

// Fields represents structured log fields
type Fields map[string]interface{}

// sensitiveKeywords mark attribute keys whose values are never written.
var sensitiveKeywords = []string{"token", "secret", "password", "api_key", "apikey"}

// ParseLevel converts a level name (debug, info, warn, error) to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// New creates a logger writing to w at the given level and format.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	case "", FormatText:
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	return slog.New(&redactHandler{handler: handler}), nil
}

// Discard returns a logger that drops every record. Tests use it.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OrDefault returns l, or slog.Default() when l is nil.
func OrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

// SetDefault installs l as the process-wide logger used by the package-level
// helpers and by components constructed without a logger.
func SetDefault(l *slog.Logger) {
	slog.SetDefault(l)
}

// Args flattens fields into slog key/value arguments with sorted keys, so
// records are stable between runs.
func (f Fields) Args() []any {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(f)*2)
	for _, k := range keys {
		args = append(args, k, f[k])
	}
	return args
}

// Debug logs a debug message with the default logger
func Debug(message string, fields Fields) {
	slog.Default().Debug(message, fields.Args()...)
}

// Info logs an info message with the default logger
func Info(message string, fields Fields) {
	slog.Default().Info(message, fields.Args()...)
}

// Warn logs a warning message with the default logger
func Warn(message string, fields Fields) {
	slog.Default().Warn(message, fields.Args()...)
}

// Error logs an error message with the default logger. err may be nil.
func Error(message string, fields Fields, err error) {
	args := fields.Args()
	if err != nil {
		args = append(args, "error", err.Error())
	}
	slog.Default().Error(message, args...)
}

// redactHandler masks credential-looking attributes before they reach the
// wrapped handler.
type redactHandler struct {
	handler slog.Handler
}

func (h *redactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *redactHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(redact(a))
		return true
	})
	return h.handler.Handle(ctx, clean)
}

func (h *redactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = redact(a)
	}
	return &redactHandler{handler: h.handler.WithAttrs(clean)}
}

func (h *redactHandler) WithGroup(name string) slog.Handler {
	return &redactHandler{handler: h.handler.WithGroup(name)}
}

func redact(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		clean := make([]slog.Attr, len(group))
		for i, g := range group {
			clean[i] = redact(g)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	}

	key := strings.ToLower(a.Key)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(key, kw) {
			return slog.String(a.Key, MaskValue)
		}
	}
	return a
}
