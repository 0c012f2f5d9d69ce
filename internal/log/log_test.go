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

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return New(Config{Level: slog.LevelDebug, Component: ComponentHTTP, Output: buf})
}

func TestLogger_StampsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	logger.Info("hello", FieldUserID, int64(7))
	out := buf.String()
	if !strings.Contains(out, "component=http") || !strings.Contains(out, "user_id=7") {
		t.Errorf("unexpected output: %s", out)
	}

	buf.Reset()
	logger.WithComponent(ComponentAuth).Warn("denied")
	if !strings.Contains(buf.String(), "component=auth") || strings.Contains(buf.String(), "component=http") {
		t.Errorf("WithComponent should replace the component: %s", buf.String())
	}
}

func TestLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, JSON: true, Output: &buf})

	logger.Debug("hidden")
	logger.Info("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug record should be filtered at info level")
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"component":"app"`) {
		t.Errorf("unexpected JSON output: %s", out)
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	if got := FromContext(NewContext(context.Background(), logger)); got != logger {
		t.Error("FromContext should return the stored logger")
	}
	if got := FromContext(context.Background()); got == nil || got.Component() != "unknown" {
		t.Error("FromContext should fall back to the default logger")
	}
}

func TestComponentMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	var seen string
	h := Middleware(logger)(ComponentMiddleware(ComponentLedger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context()).Component()
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/expenses", nil))

	if seen != ComponentLedger {
		t.Errorf("component = %q, want %q", seen, ComponentLedger)
	}
}

func TestStructuredLogger_LevelsByStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "level=INFO"},
		{404, "level=WARN"},
		{500, "level=ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(newBufferLogger(&buf))
		req := httptest.NewRequest(http.MethodGet, "/expenses?page=2", nil)

		sl.LogHTTPEnd(context.Background(), req, tt.status, 3, "127.0.0.1")

		if !strings.Contains(buf.String(), tt.level) {
			t.Errorf("status %d: expected %s in %s", tt.status, tt.level, buf.String())
		}
	}
}

func TestStructuredLogger_LogError(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf))

	sl.LogError(context.Background(), "query failed", errors.New("disk full"), OpList, ErrorTypeDatabase)

	out := buf.String()
	for _, want := range []string{"query failed", `error="disk full"`, "operation=list", "error_type=database_error"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %s", want, out)
		}
	}
}
