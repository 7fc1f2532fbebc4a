package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONOutputCarriesAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "info", "json")

	l.Info("user connected", "username", "alice", "conn_id", "c-1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "user connected", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "alice", entry["username"])
	assert.Equal(t, "c-1", entry["conn_id"])
}

func TestNew_LevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "info", "json")

	l.Debug("noisy")
	assert.Empty(t, buf.String())

	l = New(&buf, "debug", "text")
	l.Debug("noisy")
	assert.Contains(t, buf.String(), "msg=noisy")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestSetup_ReplacesGlobal(t *testing.T) {
	prev := GlobalLogger
	t.Cleanup(func() {
		GlobalLogger = prev
		slog.SetDefault(prev.Slog())
	})

	var buf bytes.Buffer
	Setup(&buf, "warn", "json")

	Info("dropped")
	Warn("kept", "channel", "general")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"channel":"general"`)
}
