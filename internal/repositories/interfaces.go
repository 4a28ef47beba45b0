package repositories

import (
	"context"
	"time"

	"finitefield.org/taskboard/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Todos() TodoRepository
	Users() UserRepository
	// Ping verifies the backend is reachable for readiness probes.
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// TodoListQuery combines filtering with offset pagination.
type TodoListQuery struct {
	Filter  domain.TodoFilter
	Offset  int
	Limit   int
	OrderBy string
	Desc    bool
}

// TodoRepository persists todos.
type TodoRepository interface {
	List(ctx context.Context, query TodoListQuery) ([]domain.Todo, int64, error)
	FindByID(ctx context.Context, id string) (domain.Todo, error)
	Insert(ctx context.Context, todo domain.Todo) error
	// Update applies the patch and returns the stored result.
	Update(ctx context.Context, id string, patch domain.TodoPatch, updatedAt time.Time) (domain.Todo, error)
	Delete(ctx context.Context, id string) (domain.Todo, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// UserRepository persists console accounts.
type UserRepository interface {
	Insert(ctx context.Context, user domain.User) error
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByID(ctx context.Context, id string) (domain.User, error)
}
