package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(&buf, FormatJSON, "info")
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("fetched", "status", 200)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "fetched", entry["msg"])
	assert.Equal(t, float64(200), entry["status"])
}

func TestNewWithWriter_Text(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(&buf, FormatText, "debug")
	require.NoError(t, err)

	log.Debug("no content", "url", "http://example.test")
	assert.Contains(t, buf.String(), "no content")
	assert.Contains(t, buf.String(), "http://example.test")
}

func TestNew_Invalid(t *testing.T) {
	_, err := New("xml", "info")
	assert.Error(t, err)

	_, err = New(FormatJSON, "loud")
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
