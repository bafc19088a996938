package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedactsSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	log := New("json", "info", &buf)

	log.Info("outbound call", "api_key", "re_live_123", "csrf_token", "abc", "service", "notifier")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "[REDACTED]", entry["api_key"])
	assert.Equal(t, "[REDACTED]", entry["csrf_token"])
	assert.Equal(t, "notifier", entry["service"])
}

func TestNewRedactsNestedMaps(t *testing.T) {
	var buf bytes.Buffer
	log := New("json", "info", &buf)

	log.Info("provider response", "body", map[string]any{"id": "rec1", "secret": "s3"})

	var entry struct {
		Body map[string]any `json:"body"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "rec1", entry.Body["id"])
	assert.Equal(t, "[REDACTED]", entry.Body["secret"])
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New("text", "warn", &buf)

	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
