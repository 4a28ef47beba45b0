package apiclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finitefield.org/taskboard/internal/admin/apiclient"
	"finitefield.org/taskboard/internal/platform/pagination"
)

func newClient(t *testing.T, handler http.HandlerFunc) *apiclient.Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client, err := apiclient.New(ts.URL+"/", ts.Client())
	require.NoError(t, err)
	return client
}

func TestSignIn(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/sessions", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Empty(t, r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "alice@example.com", body["email"])
		require.Equal(t, "s3cret!", body["password"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"tok","expiresAt":"2025-01-01T12:00:00Z","user":{"id":"u1","email":"alice@example.com","name":"Alice","createdAt":"2024-12-01T00:00:00Z"}}`))
	})

	sess, err := client.SignIn(context.Background(), "alice@example.com", "s3cret!")
	require.NoError(t, err)
	require.Equal(t, "tok", sess.Token)
	require.Equal(t, "Alice", sess.User.Name)
	require.True(t, sess.ExpiresAt.Equal(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)))
}

func TestSignInFailureMapsToUnauthorized(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_credentials","message":"Invalid email or password","status":401}`))
	})

	_, err := client.SignIn(context.Background(), "alice@example.com", "wrong")
	require.ErrorIs(t, err, apiclient.ErrUnauthorized)

	var apiErr *apiclient.Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "invalid_credentials", apiErr.Code)
	require.Equal(t, "Invalid email or password", apiErr.Message)
}

func TestListTodosEncodesFiltersAndPagination(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/todos", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		q := r.URL.Query()
		require.Equal(t, "report", q.Get("q"))
		require.Equal(t, "active", q.Get("status"))
		require.Equal(t, "2024-03-01", q.Get("createdFrom"))
		require.False(t, q.Has("createdTo"))
		require.Equal(t, "3", q.Get("page"))
		require.Equal(t, "10", q.Get("pageSize"))
		require.Equal(t, []string{"createdAt:desc"}, q["orderBy"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"id":"t1","title":"Write report","description":null,"completed":false,"createdAt":"2024-03-02T00:00:00Z","updatedAt":"2024-03-02T00:00:00Z"}],"total":21,"page":3,"pageSize":10}`))
	})

	page, err := client.ListTodos(context.Background(), "tok", apiclient.TodoQuery{
		Query:       "report",
		Status:      "active",
		CreatedFrom: "2024-03-01",
		Page: pagination.Params{
			Page:     3,
			PageSize: 10,
			Orders:   []pagination.Order{{Field: "createdAt", Desc: true}},
		},
	})
	require.NoError(t, err)
	require.EqualValues(t, 21, page.Total)
	require.Len(t, page.Items, 1)
	require.Nil(t, page.Items[0].Description)
	require.Equal(t, "Write report", page.Items[0].Title)
}

func TestUpdateAndDeleteTodo(t *testing.T) {
	t.Parallel()

	var seen []string
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodPut:
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, map[string]any{"completed": true}, body)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"t1","title":"x","completed":true}`))
		case http.MethodDelete:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("gone"))
		}
	})

	done := true
	todo, err := client.UpdateTodo(context.Background(), "tok", "t1", apiclient.TodoUpdate{Completed: &done})
	require.NoError(t, err)
	require.True(t, todo.Completed)

	err = client.DeleteTodo(context.Background(), "tok", "t1")
	require.ErrorIs(t, err, apiclient.ErrNotFound)
	var apiErr *apiclient.Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "gone", apiErr.Message)

	require.Equal(t, []string{"PUT /api/todos/t1", "DELETE /api/todos/t1"}, seen)
}

func TestNewRequiresBaseURL(t *testing.T) {
	t.Parallel()

	_, err := apiclient.New("  ", nil)
	require.Error(t, err)
}
