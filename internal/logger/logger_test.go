package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

// captureOutput redirects logger output to a buffer for testing.
// Returns the buffer and a cleanup function to restore original output.
func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.Lock()
	origOutput, origColor, origFormat := output, useColor, format
	origErrOutput := errOutput
	output, useColor, errOutput = buf, false, nil
	rebuild()
	mu.Unlock()
	origLevel := level.Level()

	return buf, func() {
		level.Set(origLevel)
		mu.Lock()
		output, useColor, format = origOutput, origColor, origFormat
		errOutput = origErrOutput
		rebuild()
		mu.Unlock()
	}
}

func tracedContext(t *testing.T) context.Context {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level    string
		visible  []string
		filtered []string
	}{
		{"DEBUG", []string{"debug message", "info message", "warn message", "error message"}, nil},
		{"INFO", []string{"info message", "warn message", "error message"}, []string{"debug message"}},
		{"WARN", []string{"warn message", "error message"}, []string{"debug message", "info message"}},
		{"ERROR", []string{"error message"}, []string{"debug message", "info message", "warn message"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf, cleanup := captureOutput()
			defer cleanup()

			SetLevel(tt.level)
			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")

			out := buf.String()
			for _, s := range tt.visible {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.filtered {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestSetLevel(t *testing.T) {
	t.Run("IsCaseInsensitive", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("DeBuG")
		Debug("visible")
		assert.Contains(t, buf.String(), "visible")
	})

	t.Run("IgnoresInvalidValues", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		SetLevel("LOUD")
		Debug("hidden")
		Info("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})
}

func TestTextFormat(t *testing.T) {
	t.Run("RendersBackendAsPrefix", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetFormat("text")
		With(KeyBackend, "redis").Info("Cache connected", KeyAddr, "localhost:6379")

		line := buf.String()
		assert.Contains(t, line, "[INFO] [redis] Cache connected")
		assert.Contains(t, line, "addr=localhost:6379")
		assert.NotContains(t, line, "backend=")
	})

	t.Run("QuotesStringsWithSpaces", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		Info("failed", KeyError, errors.New("dial tcp: connection refused"))
		assert.Contains(t, buf.String(), `error="dial tcp: connection refused"`)
	})

	t.Run("PrefixesGroupedKeys", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		With().WithGroup("pool").Info("stats", "idle", 3)
		assert.Contains(t, buf.String(), "pool.idle=3")
	})
}

func TestJSONFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetFormat("json")
	Warn("Search engine ping failed", KeyBackend, "elasticsearch")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "Search engine ping failed", entry["msg"])
	assert.Equal(t, "elasticsearch", entry["backend"])
}

func TestContextLoggingAddsTraceFields(t *testing.T) {
	t.Run("Text", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetFormat("text")
		With(KeyBackend, "postgres").InfoContext(tracedContext(t), "traced")
		With(KeyBackend, "postgres").InfoContext(context.Background(), "untraced")

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], "trace_id=4bf92f3577b34da6a3ce929d0e0e4736")
		assert.Contains(t, lines[0], "span_id=00f067aa0ba902b7")
		assert.NotContains(t, lines[1], "trace_id")
	})

	t.Run("JSON", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetFormat("json")
		With(KeyComponent, "lifecycle").ErrorContext(tracedContext(t), "Required backend failed, aborting startup")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry[KeyTraceID])
		assert.Equal(t, "00f067aa0ba902b7", entry[KeySpanID])
		assert.Equal(t, "lifecycle", entry[KeyComponent])
	})
}

func TestErrorOutputReceivesOnlyErrors(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	errBuf := new(bytes.Buffer)
	mu.Lock()
	errOutput = errBuf
	rebuild()
	mu.Unlock()

	SetLevel("DEBUG")
	Debug("debug message")
	Warn("warn message")
	With(KeyBackend, "neo4j").ErrorContext(tracedContext(t), "error message")

	assert.Contains(t, buf.String(), "debug message")
	assert.Contains(t, buf.String(), "warn message")
	assert.Contains(t, buf.String(), "error message")

	lines := strings.Split(strings.TrimSpace(errBuf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "error message", entry["msg"])
	assert.Equal(t, "neo4j", entry[KeyBackend])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry[KeyTraceID])
}

func TestInitWritesToRotatedFiles(t *testing.T) {
	_, cleanup := captureOutput()
	defer cleanup()
	defer func() {
		mu.Lock()
		stale := []io.Closer{outCloser, errCloser}
		outCloser, errCloser = nil, nil
		mu.Unlock()
		for _, c := range stale {
			if c != nil {
				_ = c.Close()
			}
		}
	}()

	dir := t.TempDir()
	combined := filepath.Join(dir, "logs", "combined.log")
	errorsOnly := filepath.Join(dir, "logs", "error.log")

	require.NoError(t, Init(Config{
		Level:       "INFO",
		Format:      "json",
		Output:      combined,
		ErrorOutput: errorsOnly,
		Rotation:    Rotation{MaxSizeMB: 1, MaxAgeDays: 1, MaxBackups: 2, Compress: true},
	}))
	Info("to file")
	Error("broken")

	all, err := os.ReadFile(combined)
	require.NoError(t, err)
	assert.Contains(t, string(all), "to file")
	assert.Contains(t, string(all), "broken")

	errs, err := os.ReadFile(errorsOnly)
	require.NoError(t, err)
	assert.NotContains(t, string(errs), "to file")
	assert.Contains(t, string(errs), "broken")
}

func TestInitRejectsUnwritablePath(t *testing.T) {
	_, cleanup := captureOutput()
	defer cleanup()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	err := Init(Config{Output: filepath.Join(blocker, "nested", "backplane.log")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log")
}
