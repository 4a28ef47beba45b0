package firestore

import (
	"context"
	"errors"

	"google.golang.org/api/iterator"

	pfirestore "finitefield.org/taskboard/internal/platform/firestore"
	"finitefield.org/taskboard/internal/repositories"
)

// Registry bundles the Firestore repositories over one shared client.
type Registry struct {
	provider *pfirestore.Provider
	todos    *TodoRepository
	users    *UserRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry builds the repositories on top of provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	todos, err := NewTodoRepository(provider)
	if err != nil {
		return nil, err
	}
	users, err := NewUserRepository(provider)
	if err != nil {
		return nil, err
	}
	return &Registry{provider: provider, todos: todos, users: users}, nil
}

func (r *Registry) Todos() repositories.TodoRepository { return r.todos }

func (r *Registry) Users() repositories.UserRepository { return r.users }

// Ping lists a single collection to prove the client can reach the backend.
func (r *Registry) Ping(ctx context.Context) error {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}
	iter := client.Collections(ctx)
	if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return pfirestore.WrapError("ping", err)
	}
	return nil
}

// Close releases the shared client.
func (r *Registry) Close(context.Context) error {
	return r.provider.Close()
}
