package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
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

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Component: ComponentViews, Output: &buf})
	l.Info("rendered", FieldView, "bar")

	out := buf.String()
	if !strings.Contains(out, "component=views") || !strings.Contains(out, "view=bar") {
		t.Fatalf("unexpected log line: %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Output: &buf})
	l.Info("hidden")
	l.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("level filtering failed: %s", buf.String())
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: slog.LevelInfo, Component: ComponentHTTP, Output: &buf})

	h := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return "req-42" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "inside")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(buf.String(), "request_id=req-42") {
		t.Fatalf("request id not propagated: %s", buf.String())
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if l := FromContext(context.Background()); l.Component() != "unknown" {
		t.Fatalf("Component() = %q, want unknown", l.Component())
	}
}

func TestStructuredLoggerViewUnavailable(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelInfo, Output: &buf}))
	sl.LogViewUnavailable(context.Background(), "scatter", "hotel", "lead_time", errors.New("revenue unavailable"))

	out := buf.String()
	for _, want := range []string{"level=WARN", "view=scatter", "group=hotel", "axis=lead_time", `error="revenue unavailable"`} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
}

func TestStructuredLoggerDatasetLoaded(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelInfo, Output: &buf}))
	sl.LogDatasetLoaded(context.Background(), "csv:hotels.csv", 10, 4, false)

	out := buf.String()
	for _, want := range []string{"level=INFO", "component=loader", "rows=10", "columns=4", "revenue_available=false"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
}

func TestStructuredLoggerError(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelInfo, Output: &buf}))
	sl.LogError(context.Background(), "View failed", errors.New("boom"), ComponentViews, OpRender, NewFields().WithSelection("country", "adr"))

	out := buf.String()
	for _, want := range []string{"level=ERROR", "component=views", "operation=render", "group=country", "error=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
}

func TestStructuredLoggerImportCompleted(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelInfo, Output: &buf}))
	sl.LogImportCompleted(context.Background(), "memory:sample", "bookings", 12, 5)

	out := buf.String()
	for _, want := range []string{"level=INFO", "component=import", "operation=import", "table=bookings", "rows=12"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
}

func TestStructuredLoggerPublishFailed(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelInfo, Output: &buf}))
	sl.LogPublishFailed(context.Background(), "dataset.loaded", "csv:hotels.csv", errors.New("channel closed"))

	out := buf.String()
	for _, want := range []string{"level=ERROR", "component=amqp", "operation=publish", "type=dataset.loaded", `error="channel closed"`} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
}

func TestFieldsWithRequestID(t *testing.T) {
	f := NewFields().WithRequestID("req-7").WithComponent(ComponentTrace)
	if f[FieldRequestID] != "req-7" || f[FieldComponent] != ComponentTrace {
		t.Fatalf("fields = %v", f)
	}
}
