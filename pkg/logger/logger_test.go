package logger

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func readEntries(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	require.NoError(t, Sync())

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(string(content)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")

	t.Run("Initialize logger with valid path", func(t *testing.T) {
		require.NoError(t, Init(Options{Path: logPath}))

		// Test all log levels
		Info("info message")
		Debug("debug message")
		Warn("warn message")
		Error("error message")

		entries := readEntries(t, logPath)
		require.Len(t, entries, 4)

		logLevels := []string{"info", "debug", "warn", "error"}
		messages := []string{"info message", "debug message", "warn message", "error message"}

		for i, entry := range entries {
			assert.Equal(t, logLevels[i], entry["level"])
			assert.Equal(t, messages[i], entry["msg"])
			assert.Contains(t, entry, "timestamp")
		}
	})

	t.Run("Initialize logger with invalid path", func(t *testing.T) {
		invalidPath := filepath.Join("/proc", "nonexistent", "dir", "test.log")
		assert.Error(t, Init(Options{Path: invalidPath}))
	})

	t.Run("Initialize logger with invalid level", func(t *testing.T) {
		assert.Error(t, Init(Options{Path: logPath, Level: "loud"}))
	})

	t.Run("Log without initialization", func(t *testing.T) {
		// Reset the logger
		log = nil

		// These should not panic
		Info("test message")
		Debug("test message")
		Warn("test message")
		Error("test message")
		Fatal("test message")
		assert.NoError(t, Sync())
		assert.NotNil(t, L())
	})
}

func TestLoggerLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "level.log")
	require.NoError(t, Init(Options{Path: logPath, Level: "WARN"}))
	defer func() { log = nil }()

	Debug("hidden")
	Info("hidden")
	Warn("shown")

	entries := readEntries(t, logPath)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0]["msg"])
}

func TestFatalInTestMode(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "fatal.log")
	require.NoError(t, Init(Options{Path: logPath}))
	defer func() { log = nil }()

	SetTestMode(true)
	defer SetTestMode(false)

	Fatal("fatal message", zap.String("key", "value"))

	entries := readEntries(t, logPath)
	require.Len(t, entries, 1)
	assert.Equal(t, "error", entries[0]["level"])
	assert.Equal(t, "value", entries[0]["key"])
}

func TestCtx(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ctx.log")
	require.NoError(t, Init(Options{Path: logPath}))
	defer func() { log = nil }()

	ctx := ContextWithRequestID(context.Background(), "req-123")
	assert.Equal(t, "req-123", RequestIDFrom(ctx))
	assert.Empty(t, RequestIDFrom(context.Background()))

	Ctx(ctx).Info("with id")
	Ctx(context.Background()).Info("without id")

	entries := readEntries(t, logPath)
	require.Len(t, entries, 2)
	assert.Equal(t, "req-123", entries[0]["request_id"])
	assert.NotContains(t, entries[1], "request_id")
}
