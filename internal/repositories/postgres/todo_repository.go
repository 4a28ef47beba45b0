package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"finitefield.org/taskboard/internal/domain"
	"finitefield.org/taskboard/internal/repositories"
)

var todoOrderColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"title":     "title",
}

// TodoRepository stores todos in the todos table.
type TodoRepository struct {
	db *gorm.DB
}

// NewTodoRepository constructs a TodoRepository.
func NewTodoRepository(db *gorm.DB) (*TodoRepository, error) {
	if db == nil {
		return nil, errors.New("todo repository: gorm db is required")
	}
	return &TodoRepository{db: db}, nil
}

var _ repositories.TodoRepository = (*TodoRepository)(nil)

// List returns one page of todos matching the filter plus the unpaged total.
func (r *TodoRepository) List(ctx context.Context, query repositories.TodoListQuery) ([]domain.Todo, int64, error) {
	tx := applyTodoFilter(r.db.WithContext(ctx).Model(&todoModel{}), query.Filter)

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, wrapError("todos.count", err)
	}

	column, ok := todoOrderColumns[query.OrderBy]
	if !ok {
		column = "created_at"
	}
	direction := " ASC"
	if query.Desc {
		direction = " DESC"
	}
	tx = tx.Order(column + direction).Order("id" + direction)
	if query.Offset > 0 {
		tx = tx.Offset(query.Offset)
	}
	if query.Limit > 0 {
		tx = tx.Limit(query.Limit)
	}

	var rows []todoModel
	if err := tx.Find(&rows).Error; err != nil {
		return nil, 0, wrapError("todos.list", err)
	}
	items := make([]domain.Todo, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toDomain())
	}
	return items, total, nil
}

func applyTodoFilter(tx *gorm.DB, filter domain.TodoFilter) *gorm.DB {
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		tx = tx.Where("(title ILIKE ? OR description ILIKE ?)", pattern, pattern)
	}
	switch filter.Status {
	case domain.TodoStatusActive:
		tx = tx.Where("completed = ?", false)
	case domain.TodoStatusCompleted:
		tx = tx.Where("completed = ?", true)
	}
	if filter.CreatedFrom != nil {
		tx = tx.Where("created_at >= ?", filter.CreatedFrom.UTC())
	}
	if filter.CreatedTo != nil {
		tx = tx.Where("created_at < ?", filter.CreatedTo.UTC())
	}
	return tx
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

// FindByID loads a single todo.
func (r *TodoRepository) FindByID(ctx context.Context, id string) (domain.Todo, error) {
	var row todoModel
	if err := r.db.WithContext(ctx).Take(&row, "id = ?", id).Error; err != nil {
		return domain.Todo{}, wrapError("todos.find", err)
	}
	return row.toDomain(), nil
}

// Insert stores a new todo.
func (r *TodoRepository) Insert(ctx context.Context, todo domain.Todo) error {
	row := todoFromDomain(todo)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return wrapError("todos.insert", err)
	}
	return nil
}

// Update applies patch inside a transaction and returns the stored row.
func (r *TodoRepository) Update(ctx context.Context, id string, patch domain.TodoPatch, updatedAt time.Time) (domain.Todo, error) {
	var result todoModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&result, "id = ?", id).Error; err != nil {
			return err
		}
		if patch.Title != nil {
			result.Title = *patch.Title
		}
		if patch.ClearDescription {
			result.Description = nil
		} else if patch.Description != nil {
			desc := *patch.Description
			result.Description = &desc
		}
		if patch.Completed != nil {
			result.Completed = *patch.Completed
		}
		result.UpdatedAt = updatedAt
		return tx.Save(&result).Error
	})
	if err != nil {
		return domain.Todo{}, wrapError("todos.update", err)
	}
	return result.toDomain(), nil
}

// Delete removes the todo and returns its last state.
func (r *TodoRepository) Delete(ctx context.Context, id string) (domain.Todo, error) {
	var row todoModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&row, "id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&todoModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return domain.Todo{}, wrapError("todos.delete", err)
	}
	return row.toDomain(), nil
}

// DeleteAll truncates the todo table and reports how many rows were removed.
func (r *TodoRepository) DeleteAll(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&todoModel{})
	if res.Error != nil {
		return 0, wrapError("todos.deleteAll", res.Error)
	}
	return res.RowsAffected, nil
}
