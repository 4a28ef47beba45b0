package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"finitefield.org/taskboard/internal/repositories"
)

// Registry bundles the gorm repositories over one connection pool.
type Registry struct {
	db    *gorm.DB
	todos *TodoRepository
	users *UserRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry migrates the schema and builds the repositories.
func NewRegistry(ctx context.Context, db *gorm.DB) (*Registry, error) {
	if err := Migrate(ctx, db); err != nil {
		return nil, err
	}
	todos, err := NewTodoRepository(db)
	if err != nil {
		return nil, err
	}
	users, err := NewUserRepository(db)
	if err != nil {
		return nil, err
	}
	return &Registry{db: db, todos: todos, users: users}, nil
}

// Migrate creates or updates the todos and users tables.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&todoModel{}, &userModel{}); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

func (r *Registry) Todos() repositories.TodoRepository { return r.todos }

func (r *Registry) Users() repositories.UserRepository { return r.users }

// Ping checks the connection pool.
func (r *Registry) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return wrapError("ping", err)
	}
	return wrapError("ping", sqlDB.PingContext(ctx))
}

// Close releases the connection pool.
func (r *Registry) Close(context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
