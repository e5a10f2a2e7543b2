package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line is not JSON: %v\n%s", err, line)
		}
		out = append(out, entry)
	}
	return out
}

// TestLogger_WithOperation verifies operation fields are bound to every line.
func TestLogger_WithOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).
		WithOperation(OpMeta{Component: "lookup", Name: "links", Target: "docs:start"})

	logger.Info(context.Background(), "fetched")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 line, got %d", len(entries))
	}
	e := entries[0]
	if e["lookup.operation"] != "links" {
		t.Errorf("lookup.operation = %v", e["lookup.operation"])
	}
	if e["lookup.target"] != "docs:start" {
		t.Errorf("lookup.target = %v", e["lookup.target"])
	}
	if e["msg"] != "fetched" || e["level"] != "info" {
		t.Errorf("unexpected entry %v", e)
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	base := NewLoggerWithWriter("debug", &buf)
	session := base.With(F("session", "abc"), F("component", "ws"))

	session.Debug(context.Background(), "expand", F("node", "a:b"))
	base.Debug(context.Background(), "plain")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(entries))
	}
	if entries[0]["session"] != "abc" || entries[0]["node"] != "a:b" {
		t.Errorf("bound fields missing: %v", entries[0])
	}
	if _, ok := entries[1]["session"]; ok {
		t.Error("With must not mutate the parent logger")
	}
}

// TestLogger_LevelFiltering verifies lines below the configured level are dropped.
func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  int
	}{
		{"debug", 4},
		{"info", 3},
		{"warn", 2},
		{"error", 1},
		{"bogus", 3},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewLoggerWithWriter(tt.level, &buf)
			ctx := context.Background()
			l.Debug(ctx, "d")
			l.Info(ctx, "i")
			l.Warn(ctx, "w")
			l.Error(ctx, "e")
			if got := len(decodeLines(t, &buf)); got != tt.want {
				t.Errorf("level %q wrote %d lines, want %d", tt.level, got, tt.want)
			}
		})
	}
}

// TestLogger_Redaction verifies credential fields never reach the output.
func TestLogger_Redaction(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter("info", &buf).With(F("password", "hunter2"))

	l.Info(context.Background(), "login", F("token", "abc"), F("user", "bot"))

	out := buf.String()
	if strings.Contains(out, "hunter2") || strings.Contains(out, "abc") {
		t.Fatalf("secret leaked into log: %s", out)
	}
	e := decodeLines(t, &buf)[0]
	if e["password"] != "[REDACTED]" || e["token"] != "[REDACTED]" || e["user"] != "bot" {
		t.Errorf("unexpected entry %v", e)
	}
}

func TestLogger_ErrorValues(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerWithWriter("info", &buf).Error(context.Background(), "failed", F("error", errors.New("boom")))

	if e := decodeLines(t, &buf)[0]; e["error"] != "boom" {
		t.Errorf("error field = %v, want boom", e["error"])
	}
}

// TestLogger_ConcurrentDerived verifies derived loggers never interleave lines.
func TestLogger_ConcurrentDerived(t *testing.T) {
	var buf bytes.Buffer
	base := NewLoggerWithWriter("info", &buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			base.With(F("worker", i)).Info(context.Background(), "tick")
		}(i)
	}
	wg.Wait()

	if got := len(decodeLines(t, &buf)); got != 20 {
		t.Errorf("expected 20 lines, got %d", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, s := range []string{"debug", "info", "warn", "error"} {
		if got := ParseLogLevel(s).String(); got != s {
			t.Errorf("ParseLogLevel(%q).String() = %q", s, got)
		}
	}
}
