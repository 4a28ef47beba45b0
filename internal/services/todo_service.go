package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"finitefield.org/taskboard/internal/domain"
	"finitefield.org/taskboard/internal/platform/observability"
	"finitefield.org/taskboard/internal/platform/requestctx"
	"finitefield.org/taskboard/internal/repositories"
)

const (
	maxTodoTitleLength       = 200
	maxTodoDescriptionLength = 2000
	maxTodoQueryLength       = 100
	defaultTodoPageSize      = 20
)

var (
	// ErrTodoInvalidInput indicates the caller provided an invalid argument.
	ErrTodoInvalidInput = errors.New("todo: invalid input")
	// ErrTodoNotFound indicates the todo does not exist.
	ErrTodoNotFound = errors.New("todo: not found")
	// ErrTodoConflict indicates a concurrent write collided with this one.
	ErrTodoConflict = errors.New("todo: conflict")
	// ErrTodoRepositoryUnavailable indicates the persistence layer is unavailable.
	ErrTodoRepositoryUnavailable = errors.New("todo: repository unavailable")
)

// TodoServiceDeps wires dependencies for the todo service implementation.
type TodoServiceDeps struct {
	Repository repositories.TodoRepository
	Events     TodoEventPublisher
	Metrics    *observability.Metrics
	Clock      func() time.Time
	IDGen      func() string
}

type todoService struct {
	repo    repositories.TodoRepository
	events  TodoEventPublisher
	metrics *observability.Metrics
	clock   func() time.Time
	newID   func() string
	policy  *bluemonday.Policy
}

var _ TodoService = (*todoService)(nil)

// NewTodoService constructs a TodoService backed by the provided dependencies.
func NewTodoService(deps TodoServiceDeps) (TodoService, error) {
	if deps.Repository == nil {
		return nil, errors.New("todo service: repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGen
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	return &todoService{
		repo:    deps.Repository,
		events:  deps.Events,
		metrics: deps.Metrics,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		policy: bluemonday.StrictPolicy(),
	}, nil
}

func (s *todoService) List(ctx context.Context, cmd TodoListCommand) (domain.Page[domain.Todo], error) {
	page := cmd.Page
	if page < 1 {
		page = 1
	}
	size := cmd.PageSize
	if size < 1 {
		size = defaultTodoPageSize
	}

	filter := cmd.Filter
	filter.Query = normaliseQuery(filter.Query)
	switch filter.Status {
	case "", domain.TodoStatusAll, domain.TodoStatusActive, domain.TodoStatusCompleted:
	default:
		return domain.Page[domain.Todo]{}, fmt.Errorf("%w: unknown status %q", ErrTodoInvalidInput, filter.Status)
	}
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && !filter.CreatedFrom.Before(*filter.CreatedTo) {
		return domain.Page[domain.Todo]{}, fmt.Errorf("%w: createdFrom must be before createdTo", ErrTodoInvalidInput)
	}

	orderBy := cmd.OrderBy
	desc := cmd.Desc
	if orderBy == "" {
		orderBy, desc = "createdAt", true
	}

	items, total, err := s.repo.List(ctx, repositories.TodoListQuery{
		Filter:  filter,
		Offset:  (page - 1) * size,
		Limit:   size,
		OrderBy: orderBy,
		Desc:    desc,
	})
	if err != nil {
		return domain.Page[domain.Todo]{}, s.mapRepoError(err)
	}
	if items == nil {
		items = []domain.Todo{}
	}
	return domain.Page[domain.Todo]{Items: items, Total: total, Page: page, PageSize: size}, nil
}

func (s *todoService) Get(ctx context.Context, id string) (domain.Todo, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Todo{}, fmt.Errorf("%w: id is required", ErrTodoInvalidInput)
	}
	todo, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Todo{}, s.mapRepoError(err)
	}
	return todo, nil
}

func (s *todoService) Create(ctx context.Context, cmd CreateTodoCommand) (domain.Todo, error) {
	title, err := s.cleanTitle(cmd.Title)
	if err != nil {
		return domain.Todo{}, err
	}
	description, err := s.cleanDescription(cmd.Description)
	if err != nil {
		return domain.Todo{}, err
	}

	now := s.clock()
	todo := domain.Todo{
		ID:          s.newID(),
		Title:       title,
		Description: description,
		Completed:   cmd.Completed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, todo); err != nil {
		return domain.Todo{}, s.mapRepoError(err)
	}
	s.afterMutation(ctx, TodoCreated, todo)
	return todo, nil
}

func (s *todoService) Update(ctx context.Context, id string, patch domain.TodoPatch) (domain.Todo, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Todo{}, fmt.Errorf("%w: id is required", ErrTodoInvalidInput)
	}
	if patch.Title != nil {
		title, err := s.cleanTitle(*patch.Title)
		if err != nil {
			return domain.Todo{}, err
		}
		patch.Title = &title
	}
	if patch.Description != nil {
		description, err := s.cleanDescription(patch.Description)
		if err != nil {
			return domain.Todo{}, err
		}
		if description == nil {
			patch.Description = nil
			patch.ClearDescription = true
		} else {
			patch.Description = description
		}
	}
	if patch.Empty() {
		return s.Get(ctx, id)
	}

	todo, err := s.repo.Update(ctx, id, patch, s.clock())
	if err != nil {
		return domain.Todo{}, s.mapRepoError(err)
	}
	s.afterMutation(ctx, TodoUpdated, todo)
	return todo, nil
}

func (s *todoService) Delete(ctx context.Context, id string) (domain.Todo, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Todo{}, fmt.Errorf("%w: id is required", ErrTodoInvalidInput)
	}
	todo, err := s.repo.Delete(ctx, id)
	if err != nil {
		return domain.Todo{}, s.mapRepoError(err)
	}
	s.afterMutation(ctx, TodoDeleted, todo)
	return todo, nil
}

func (s *todoService) Reseed(ctx context.Context, todos []CreateTodoCommand) ([]domain.Todo, error) {
	deleted, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return nil, s.mapRepoError(err)
	}
	requestctx.Logger(ctx).Info("todos cleared", zap.Int64("deleted", deleted))

	created := make([]domain.Todo, 0, len(todos))
	for _, cmd := range todos {
		todo, err := s.Create(ctx, cmd)
		if err != nil {
			return created, err
		}
		created = append(created, todo)
	}
	return created, nil
}

// afterMutation records metrics and publishes the change. Publishing failures
// are logged; the write already succeeded.
func (s *todoService) afterMutation(ctx context.Context, kind TodoEventType, todo domain.Todo) {
	s.metrics.TodoMutation(ctx, string(kind))
	if s.events == nil {
		return
	}
	event := TodoEvent{
		Type:       kind,
		TodoID:     todo.ID,
		Title:      todo.Title,
		Completed:  todo.Completed,
		OccurredAt: s.clock(),
	}
	if _, err := s.events.PublishTodoEvent(ctx, event); err != nil {
		requestctx.Logger(ctx).Warn("todo event publish failed",
			zap.String("type", string(kind)),
			zap.String("todo_id", todo.ID),
			zap.Error(err),
		)
	}
}

func (s *todoService) cleanTitle(raw string) (string, error) {
	title := s.sanitize(raw)
	if title == "" {
		return "", fmt.Errorf("%w: title is required", ErrTodoInvalidInput)
	}
	if utf8.RuneCountInString(title) > maxTodoTitleLength {
		return "", fmt.Errorf("%w: title must be at most %d characters", ErrTodoInvalidInput, maxTodoTitleLength)
	}
	return title, nil
}

// cleanDescription returns nil for an absent or blank description.
func (s *todoService) cleanDescription(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	description := s.sanitize(*raw)
	if description == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(description) > maxTodoDescriptionLength {
		return nil, fmt.Errorf("%w: description must be at most %d characters", ErrTodoInvalidInput, maxTodoDescriptionLength)
	}
	return &description, nil
}

// sanitize strips markup. The policy escapes entities, which are decoded again
// so plain text such as "A & B" round-trips.
func (s *todoService) sanitize(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(value)))
}

func normaliseQuery(q string) string {
	q = strings.TrimSpace(norm.NFKC.String(q))
	if utf8.RuneCountInString(q) > maxTodoQueryLength {
		q = string([]rune(q)[:maxTodoQueryLength])
	}
	return q
}

func (s *todoService) mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	switch {
	case repositories.IsNotFound(err):
		return fmt.Errorf("%w: %v", ErrTodoNotFound, err)
	case repositories.IsConflict(err):
		return fmt.Errorf("%w: %v", ErrTodoConflict, err)
	case repositories.IsUnavailable(err):
		return fmt.Errorf("%w: %v", ErrTodoRepositoryUnavailable, err)
	}
	return fmt.Errorf("todo: repository error: %w", err)
}
