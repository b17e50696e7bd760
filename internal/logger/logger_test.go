package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/campussathi/campussathi-go/internal/ctxutil"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if idx := strings.LastIndex(line, "\n"); idx >= 0 {
		line = line[idx+1:]
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("Failed to parse log line %q: %v", line, err)
	}
	return entry
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewWithWriter_RenamesKeys(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter("debug", &buf)
	log.Warn("index stale")

	entry := decodeLine(t, &buf)
	if entry["message"] != "index stale" {
		t.Errorf("message = %v, want 'index stale'", entry["message"])
	}
	if entry["level"] != "warning" {
		t.Errorf("level = %v, want 'warning'", entry["level"])
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("Expected timestamp key")
	}
	if _, ok := entry["msg"]; ok {
		t.Error("msg key should have been renamed")
	}
}

func TestNewWithWriter_LevelFilter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter("error", &buf)
	log.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("Info should be filtered at error level, got %q", buf.String())
	}
	if log.Level() != slog.LevelError {
		t.Errorf("Level() = %v, want error", log.Level())
	}
}

func TestLogger_Fields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter("info", &buf).
		WithModule("router").
		WithError(errors.New("boom")).
		WithFields(map[string]any{"intent": "general_faq"})
	log.Infof("routed %d", 1)

	entry := decodeLine(t, &buf)
	if entry["module"] != "router" {
		t.Errorf("module = %v, want router", entry["module"])
	}
	if entry["error"] != "boom" {
		t.Errorf("error = %v, want boom", entry["error"])
	}
	if entry["intent"] != "general_faq" {
		t.Errorf("intent = %v, want general_faq", entry["intent"])
	}
	if entry["message"] != "routed 1" {
		t.Errorf("message = %v, want 'routed 1'", entry["message"])
	}
}

func TestLogger_ContextValues(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	ctx := ctxutil.WithRequestID(context.Background(), "req-9")
	ctx = ctxutil.WithStudentUID(ctx, "24MCI10030")
	ctx = ctxutil.WithChannel(ctx, ctxutil.ChannelWeb)
	log.InfoContext(ctx, "chat handled")

	entry := decodeLine(t, &buf)
	want := map[string]string{
		"request_id": "req-9",
		"uid":        "24MCI10030",
		"channel":    "web",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %s", k, entry[k], v)
		}
	}
	if _, ok := entry["line_user_id"]; ok {
		t.Error("line_user_id should be absent when not set")
	}
}

func TestLogger_ShutdownWithoutRemote(t *testing.T) {
	t.Parallel()

	log := NewWithWriter("info", &bytes.Buffer{})
	if err := log.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() = %v, want nil", err)
	}
	var nilLogger *Logger
	if err := nilLogger.Shutdown(context.Background()); err != nil {
		t.Errorf("nil Shutdown() = %v, want nil", err)
	}
}
