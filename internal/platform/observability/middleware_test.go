package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"finitefield.org/taskboard/internal/platform/requestctx"
)

func TestRequestLoggerRecordsRouteAndStatus(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	r := chi.NewRouter()
	r.Use(InjectLoggerMiddleware(logger), RequestLoggerMiddleware())
	r.Get("/api/todos/{id}", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/todos/abc", nil))

	entries := logs.FilterMessage("request completed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != zapcore.WarnLevel {
		t.Fatalf("expected warn level for 404, got %s", entry.Level)
	}
	fields := entry.ContextMap()
	if fields["route"] != "/api/todos/{id}" {
		t.Fatalf("route = %v", fields["route"])
	}
	if fields["status"] != int64(http.StatusNotFound) {
		t.Fatalf("status = %v", fields["status"])
	}
	if fields["path"] != "/api/todos/abc" {
		t.Fatalf("path = %v", fields["path"])
	}
}

func TestRecoveryWritesJSONError(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	handler := RecoveryMiddleware(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"error":"internal_server_error"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Fatalf("expected panic to be logged with the fallback logger")
	}
}

func TestSanitizeStringDropsControlCharacters(t *testing.T) {
	if got := sanitizeString("a\x00b\nc", 10); got != "abc" {
		t.Fatalf("sanitizeString = %q", got)
	}
	if got := sanitizeString("あいうえお", 3); got != "あいう" {
		t.Fatalf("sanitizeString = %q", got)
	}
}

func TestLoggerFromContextFallsBack(t *testing.T) {
	if FromContext(context.Background()) != requestctx.NoopLogger() {
		t.Fatalf("expected no-op logger on a bare context")
	}
	logger := zap.NewExample()
	if FromContext(WithLogger(context.Background(), logger)) != logger {
		t.Fatalf("expected injected logger")
	}
}
