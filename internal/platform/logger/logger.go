package logger

import (
	"io"
	"log/slog"
	"strings"

	"formgate/pkg/platform/privacy"
)

// New returns a structured logger. Format "text" is meant for local
// development; anything else produces JSON. Values of sensitive keys are
// redacted before they reach the handler.
func New(format, level string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: redact,
	}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel maps a level name to slog.Level, defaulting to Info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		return a
	}
	if privacy.IsSensitiveKey(a.Key) {
		return slog.String(a.Key, privacy.Redacted)
	}
	if m, ok := a.Value.Any().(map[string]any); ok {
		return slog.Any(a.Key, privacy.RedactMap(m))
	}
	return a
}
