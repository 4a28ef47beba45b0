// Package apiclient talks to the taskboard REST API on behalf of the admin console.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"finitefield.org/taskboard/internal/platform/pagination"
)

var (
	// ErrUnauthorized is matched by errors for 401 responses.
	ErrUnauthorized = errors.New("apiclient: unauthorized")
	// ErrNotFound is matched by errors for 404 responses.
	ErrNotFound = errors.New("apiclient: not found")
)

// HTTPClient matches the subset of http.Client used by Client.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Error is a non-2xx API response.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("apiclient: backend error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("apiclient: backend error %d: %s", e.Status, e.Message)
}

// Is maps status codes onto the package sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	default:
		return false
	}
}

// User is the public account shape.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is the sign-in result.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

// Todo mirrors the API todo resource.
type Todo struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TodoPage is one page of todos.
type TodoPage struct {
	Items    []Todo `json:"items"`
	Total    int64  `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

// TodoQuery holds list filters. Empty strings are omitted from the request.
type TodoQuery struct {
	Query       string
	Status      string
	CreatedFrom string
	CreatedTo   string
	Page        pagination.Params
}

// TodoUpdate is a partial update; nil fields are left untouched.
type TodoUpdate struct {
	Title     *string `json:"title,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// Client implements the admin console's API calls.
type Client struct {
	base   *url.URL
	client HTTPClient
}

// New constructs a Client rooted at baseURL.
func New(baseURL string, client HTTPClient) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("apiclient: base URL is required")
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("apiclient: parse base URL: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{base: parsed, client: client}, nil
}

// SignIn exchanges credentials for a bearer token.
func (c *Client) SignIn(ctx context.Context, email, password string) (Session, error) {
	var out Session
	body := map[string]string{"email": email, "password": password}
	err := c.call(ctx, http.MethodPost, "api/sessions", "", nil, body, &out)
	return out, err
}

// SignUp registers a new account.
func (c *Client) SignUp(ctx context.Context, email, password, name string) (User, error) {
	var out User
	body := map[string]string{"email": email, "password": password, "name": name}
	err := c.call(ctx, http.MethodPost, "api/users", "", nil, body, &out)
	return out, err
}

// Me resolves the account behind token.
func (c *Client) Me(ctx context.Context, token string) (User, error) {
	var out User
	err := c.call(ctx, http.MethodGet, "api/users/me", token, nil, nil, &out)
	return out, err
}

// ListTodos fetches one page of todos.
func (c *Client) ListTodos(ctx context.Context, token string, q TodoQuery) (TodoPage, error) {
	values := url.Values{}
	for key, value := range map[string]string{
		"q":           q.Query,
		"status":      q.Status,
		"createdFrom": q.CreatedFrom,
		"createdTo":   q.CreatedTo,
	} {
		if strings.TrimSpace(value) != "" {
			values.Set(key, value)
		}
	}
	q.Page.Encode(values, pagination.Options{})

	var out TodoPage
	err := c.call(ctx, http.MethodGet, "api/todos", token, values, nil, &out)
	return out, err
}

// CreateTodo adds a todo.
func (c *Client) CreateTodo(ctx context.Context, token, title string, description *string) (Todo, error) {
	var out Todo
	body := map[string]any{"title": title, "description": description}
	err := c.call(ctx, http.MethodPost, "api/todos", token, nil, body, &out)
	return out, err
}

// UpdateTodo applies a partial update.
func (c *Client) UpdateTodo(ctx context.Context, token, id string, update TodoUpdate) (Todo, error) {
	var out Todo
	err := c.call(ctx, http.MethodPut, path.Join("api/todos", url.PathEscape(id)), token, nil, update, &out)
	return out, err
}

// DeleteTodo removes a todo.
func (c *Client) DeleteTodo(ctx context.Context, token, id string) error {
	return c.call(ctx, http.MethodDelete, path.Join("api/todos", url.PathEscape(id)), token, nil, nil, nil)
}

func (c *Client) call(ctx context.Context, method, endpoint, token string, query url.Values, body, out any) error {
	ref := &url.URL{Path: endpoint}
	if len(query) > 0 {
		ref.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(body); err != nil {
			return fmt.Errorf("apiclient: encode payload: %w", err)
		}
		reader = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.ResolveReference(ref).String(), reader)
	if err != nil {
		return fmt.Errorf("apiclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("apiclient: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("apiclient: decode %s %s: %w", method, endpoint, err)
	}
	return nil
}

func errorFromResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	apiErr := &Error{Status: resp.StatusCode}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if len(raw) > 0 && json.Unmarshal(raw, &payload) == nil && payload.Message != "" {
		apiErr.Code = payload.Error
		apiErr.Message = payload.Message
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(raw))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
