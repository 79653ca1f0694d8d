package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewJSONCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf, Component: ComponentFinance})

	logger.Debug("hidden")
	logger.WithComponent(ComponentAMQP).Info("published", FieldEntity, "transaction")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if rec[FieldComponent] != ComponentAMQP || rec[FieldEntity] != "transaction" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelDebug, Output: &buf}))
	req := httptest.NewRequest("GET", "/api/finance/metrics?date=2025-01-10", nil)

	sl.LogHTTPEnd(context.Background(), req, 503, 12, "10.0.0.1")
	sl.LogError(context.Background(), "store failed", errors.New("boom"), ComponentStorage, "list_transactions", nil)

	out := buf.String()
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "status_code=503") {
		t.Errorf("expected error level request log, got %q", out)
	}
	if !strings.Contains(out, "error=boom") || !strings.Contains(out, "operation=list") {
		t.Errorf("expected structured error fields, got %q", out)
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Fatalf("expected fallback logger")
	}
	custom := New(Config{Component: ComponentHTTP, Output: &bytes.Buffer{}})
	if got := FromContext(NewContext(context.Background(), custom)); got != custom {
		t.Fatalf("expected logger from context")
	}
}
