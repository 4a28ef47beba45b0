package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"finitefield.org/taskboard/internal/platform/auth"
	"finitefield.org/taskboard/internal/platform/storage"
	"finitefield.org/taskboard/internal/repositories/memory"
	"finitefield.org/taskboard/internal/services"
)

type testServer struct {
	handler http.Handler
	todos   services.TodoService
	store   *storage.MemoryStore
	tokens  *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	registry := memory.NewRegistry()

	seq := 0
	todos, err := services.NewTodoService(services.TodoServiceDeps{
		Repository: registry.Todos(),
		Clock: func() time.Time {
			seq++
			return now.Add(time.Duration(seq) * time.Minute)
		},
		IDGen: func() string { return fmt.Sprintf("todo-%02d", seq) },
	})
	if err != nil {
		t.Fatalf("NewTodoService: %v", err)
	}

	store := storage.NewMemory("images")
	images, err := services.NewImageService(services.ImageServiceDeps{Store: store, MaxFileSize: 1024, Clock: clock})
	if err != nil {
		t.Fatalf("NewImageService: %v", err)
	}

	tokens, err := auth.NewTokenManager("test-secret", "taskboard", time.Hour, auth.WithTokenClock(time.Now))
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	users, err := services.NewUserService(services.UserServiceDeps{
		Repository: registry.Users(),
		Tokens:     tokens,
		HashCost:   bcrypt.MinCost,
	})
	if err != nil {
		t.Fatalf("NewUserService: %v", err)
	}

	system := services.NewSystemService(services.SystemServiceDeps{
		Build: services.BuildInfo{Name: "taskboard-api", Version: "1.2.3", StartedAt: now},
		Clock: clock,
	})

	router := NewRouter(
		WithSystemHandlers(NewSystemHandlers(system)),
		WithAPIMiddlewares(tokens.OptionalBearer()),
		WithTodoRoutes(NewTodoHandlers(todos).Routes),
		WithImageRoutes(NewImageHandlers(images).Routes),
		WithUserRoutes(NewUserHandlers(users, tokens).Routes),
	)
	return &testServer{handler: router, todos: todos, store: store, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, target string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}
