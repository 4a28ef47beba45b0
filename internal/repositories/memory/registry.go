// Package memory provides process-local repositories for tests and for running
// the API without a database.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"finitefield.org/taskboard/internal/domain"
	"finitefield.org/taskboard/internal/repositories"
)

// Registry holds todos and users in maps guarded by one mutex.
type Registry struct {
	mu    sync.RWMutex
	todos map[string]domain.Todo
	users map[string]domain.User
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{todos: make(map[string]domain.Todo), users: make(map[string]domain.User)}
}

func (r *Registry) Todos() repositories.TodoRepository { return todoRepository{r} }
func (r *Registry) Users() repositories.UserRepository { return userRepository{r} }

func (r *Registry) Ping(context.Context) error  { return nil }
func (r *Registry) Close(context.Context) error { return nil }

type todoRepository struct{ r *Registry }

func (t todoRepository) List(_ context.Context, q repositories.TodoListQuery) ([]domain.Todo, int64, error) {
	t.r.mu.RLock()
	var matched []domain.Todo
	for _, todo := range t.r.todos {
		if matchesFilter(todo, q.Filter) {
			matched = append(matched, todo)
		}
	}
	t.r.mu.RUnlock()

	slices.SortFunc(matched, func(a, b domain.Todo) int {
		c := compareTodos(a, b, q.OrderBy)
		if q.Desc {
			return -c
		}
		return c
	})

	total := int64(len(matched))
	start := min(q.Offset, len(matched))
	end := len(matched)
	if q.Limit > 0 {
		end = min(start+q.Limit, len(matched))
	}
	return append([]domain.Todo(nil), matched[start:end]...), total, nil
}

// compareTodos orders by field and breaks ties on ID, as the SQL backend does.
func compareTodos(a, b domain.Todo, field string) int {
	var c int
	switch field {
	case "title":
		c = strings.Compare(a.Title, b.Title)
	case "updatedAt":
		c = a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		c = a.CreatedAt.Compare(b.CreatedAt)
	}
	if c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

func matchesFilter(todo domain.Todo, f domain.TodoFilter) bool {
	switch f.Status {
	case domain.TodoStatusActive:
		if todo.Completed {
			return false
		}
	case domain.TodoStatusCompleted:
		if !todo.Completed {
			return false
		}
	}
	if f.CreatedFrom != nil && todo.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && !todo.CreatedAt.Before(*f.CreatedTo) {
		return false
	}
	if q := strings.ToLower(f.Query); q != "" {
		inTitle := strings.Contains(strings.ToLower(todo.Title), q)
		inDesc := todo.Description != nil && strings.Contains(strings.ToLower(*todo.Description), q)
		if !inTitle && !inDesc {
			return false
		}
	}
	return true
}

func (t todoRepository) FindByID(_ context.Context, id string) (domain.Todo, error) {
	t.r.mu.RLock()
	defer t.r.mu.RUnlock()
	todo, ok := t.r.todos[id]
	if !ok {
		return domain.Todo{}, repositories.NewError("todos.find", repositories.KindNotFound, nil)
	}
	return todo, nil
}

func (t todoRepository) Insert(_ context.Context, todo domain.Todo) error {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	if _, exists := t.r.todos[todo.ID]; exists {
		return repositories.NewError("todos.insert", repositories.KindConflict, nil)
	}
	t.r.todos[todo.ID] = todo
	return nil
}

func (t todoRepository) Update(_ context.Context, id string, patch domain.TodoPatch, updatedAt time.Time) (domain.Todo, error) {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	todo, ok := t.r.todos[id]
	if !ok {
		return domain.Todo{}, repositories.NewError("todos.update", repositories.KindNotFound, nil)
	}
	if patch.Title != nil {
		todo.Title = *patch.Title
	}
	if patch.ClearDescription {
		todo.Description = nil
	} else if patch.Description != nil {
		desc := *patch.Description
		todo.Description = &desc
	}
	if patch.Completed != nil {
		todo.Completed = *patch.Completed
	}
	todo.UpdatedAt = updatedAt
	t.r.todos[id] = todo
	return todo, nil
}

func (t todoRepository) Delete(_ context.Context, id string) (domain.Todo, error) {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	todo, ok := t.r.todos[id]
	if !ok {
		return domain.Todo{}, repositories.NewError("todos.delete", repositories.KindNotFound, nil)
	}
	delete(t.r.todos, id)
	return todo, nil
}

func (t todoRepository) DeleteAll(context.Context) (int64, error) {
	t.r.mu.Lock()
	defer t.r.mu.Unlock()
	n := int64(len(t.r.todos))
	t.r.todos = make(map[string]domain.Todo)
	return n, nil
}

type userRepository struct{ r *Registry }

func (u userRepository) Insert(_ context.Context, user domain.User) error {
	u.r.mu.Lock()
	defer u.r.mu.Unlock()
	user.Email = strings.ToLower(user.Email)
	for _, existing := range u.r.users {
		if existing.Email == user.Email {
			return repositories.NewError("users.insert", repositories.KindConflict, nil)
		}
	}
	if _, exists := u.r.users[user.ID]; exists {
		return repositories.NewError("users.insert", repositories.KindConflict, nil)
	}
	u.r.users[user.ID] = user
	return nil
}

func (u userRepository) FindByEmail(_ context.Context, email string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u.r.mu.RLock()
	defer u.r.mu.RUnlock()
	for _, user := range u.r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return domain.User{}, repositories.NewError("users.findByEmail", repositories.KindNotFound, nil)
}

func (u userRepository) FindByID(_ context.Context, id string) (domain.User, error) {
	u.r.mu.RLock()
	defer u.r.mu.RUnlock()
	user, ok := u.r.users[id]
	if !ok {
		return domain.User{}, repositories.NewError("users.find", repositories.KindNotFound, nil)
	}
	return user, nil
}
