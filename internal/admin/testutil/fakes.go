package testutil

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"finitefield.org/taskboard/internal/admin/apiclient"
	"finitefield.org/taskboard/internal/admin/httpserver/middleware"
)

// TestToken is accepted by the authenticator NewServer installs.
const TestToken = "test-token"

// StaticAuthenticator accepts a single token.
type StaticAuthenticator struct {
	Token string
	User  *middleware.User
}

func (a *StaticAuthenticator) Authenticate(_ *http.Request, token string) (*middleware.User, error) {
	if token == "" || token != a.Token {
		return nil, middleware.NewAuthError(middleware.ReasonTokenInvalid, middleware.ErrUnauthorized)
	}
	user := *a.User
	user.Token = token
	return &user, nil
}

// TodoStore is an in-memory TodoService.
type TodoStore struct {
	mu      sync.Mutex
	todos   []apiclient.Todo
	queries []apiclient.TodoQuery
	// Fail makes calls for these ids return an error.
	Fail map[string]bool
	// ListErr is returned by ListTodos when set.
	ListErr error
}

// NewTodoStore returns a store holding n todos titled "Todo 1".."Todo n",
// created one minute apart so that the highest number is the newest.
func NewTodoStore(n int) *TodoStore {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	todos := make([]apiclient.Todo, 0, n)
	for i := 1; i <= n; i++ {
		created := base.Add(time.Duration(i) * time.Minute)
		todos = append(todos, apiclient.Todo{
			ID:        fmt.Sprintf("todo-%d", i),
			Title:     fmt.Sprintf("Todo %d", i),
			Completed: i%3 == 0,
			CreatedAt: created,
			UpdatedAt: created,
		})
	}
	return &TodoStore{todos: todos}
}

func (s *TodoStore) ListTodos(_ context.Context, _ string, q apiclient.TodoQuery) (apiclient.TodoPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	if s.ListErr != nil {
		return apiclient.TodoPage{}, s.ListErr
	}

	matched := make([]apiclient.Todo, 0, len(s.todos))
	for _, todo := range s.todos {
		if q.Query != "" && !strings.Contains(strings.ToLower(todo.Title), strings.ToLower(q.Query)) {
			continue
		}
		if (q.Status == "active" && todo.Completed) || (q.Status == "completed" && !todo.Completed) {
			continue
		}
		matched = append(matched, todo)
	}
	slices.SortStableFunc(matched, func(a, b apiclient.Todo) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	page, size := max(1, q.Page.Page), max(1, q.Page.PageSize)
	start := min(len(matched), (page-1)*size)
	end := min(len(matched), start+size)
	return apiclient.TodoPage{
		Items:    slices.Clone(matched[start:end]),
		Total:    int64(len(matched)),
		Page:     page,
		PageSize: size,
	}, nil
}

func (s *TodoStore) UpdateTodo(_ context.Context, _ string, id string, update apiclient.TodoUpdate) (apiclient.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail[id] {
		return apiclient.Todo{}, &apiclient.Error{Status: http.StatusInternalServerError, Code: "internal", Message: "boom"}
	}
	for i := range s.todos {
		if s.todos[i].ID != id {
			continue
		}
		if update.Completed != nil {
			s.todos[i].Completed = *update.Completed
		}
		if update.Title != nil {
			s.todos[i].Title = *update.Title
		}
		return s.todos[i], nil
	}
	return apiclient.Todo{}, apiclient.ErrNotFound
}

func (s *TodoStore) DeleteTodo(_ context.Context, _ string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail[id] {
		return &apiclient.Error{Status: http.StatusInternalServerError, Code: "internal", Message: "boom"}
	}
	for i := range s.todos {
		if s.todos[i].ID == id {
			s.todos = slices.Delete(s.todos, i, i+1)
			return nil
		}
	}
	return apiclient.ErrNotFound
}

// Todo returns the stored todo with id.
func (s *TodoStore) Todo(id string) (apiclient.Todo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, todo := range s.todos {
		if todo.ID == id {
			return todo, true
		}
	}
	return apiclient.Todo{}, false
}

// LastQuery returns the most recent list query.
func (s *TodoStore) LastQuery() (apiclient.TodoQuery, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queries) == 0 {
		return apiclient.TodoQuery{}, false
	}
	return s.queries[len(s.queries)-1], true
}

// Accounts is an in-memory AccountService keyed by email.
type Accounts struct {
	mu        sync.Mutex
	passwords map[string]string
	users     map[string]apiclient.User
	// Err is returned by every call when set.
	Err error
}

// NewAccounts returns an account service with one registered user.
func NewAccounts(email, password, name string) *Accounts {
	a := &Accounts{passwords: map[string]string{}, users: map[string]apiclient.User{}}
	if email != "" {
		a.passwords[email] = password
		a.users[email] = apiclient.User{ID: "user-" + email, Email: email, Name: name}
	}
	return a
}

func (a *Accounts) SignIn(_ context.Context, email, password string) (apiclient.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return apiclient.Session{}, a.Err
	}
	if pw, ok := a.passwords[email]; !ok || pw != password {
		return apiclient.Session{}, &apiclient.Error{Status: http.StatusUnauthorized, Code: "invalid_credentials", Message: "Invalid email or password"}
	}
	return apiclient.Session{Token: TestToken, ExpiresAt: time.Now().Add(time.Hour), User: a.users[email]}, nil
}

func (a *Accounts) SignUp(_ context.Context, email, password, name string) (apiclient.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return apiclient.User{}, a.Err
	}
	if _, ok := a.users[email]; ok {
		return apiclient.User{}, &apiclient.Error{Status: http.StatusBadRequest, Code: "user_exists", Message: "User already exists"}
	}
	user := apiclient.User{ID: "user-" + email, Email: email, Name: name}
	a.passwords[email] = password
	a.users[email] = user
	return user, nil
}

// Registered reports whether email has an account.
func (a *Accounts) Registered(email string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.users[email]
	return ok
}
