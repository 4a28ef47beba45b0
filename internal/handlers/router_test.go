package handlers

import (
	"net/http"
	"testing"
)

func TestRouterUnknownRouteReturnsJSON404(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/api/unknown", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	body := decodeBody[map[string]any](t, rec)
	if body["error"] != errorNotFoundCode {
		t.Fatalf("unexpected error code %v", body["error"])
	}
	if body["request_id"] == nil {
		t.Fatalf("expected request id in error envelope, got %v", body)
	}
}

func TestRouterMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPatch, "/api/todos/abc", nil, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestRouterWithoutRegistrars(t *testing.T) {
	r := NewRouter()
	rec := (&testServer{handler: r}).do(t, http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 with no system handlers, got %d", rec.Code)
	}
}
