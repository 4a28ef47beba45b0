package services

import (
	"context"
	"io"
	"time"

	"finitefield.org/taskboard/internal/domain"
)

// TodoService exposes todo CRUD with input sanitising and change events.
type TodoService interface {
	List(ctx context.Context, cmd TodoListCommand) (domain.Page[domain.Todo], error)
	Get(ctx context.Context, id string) (domain.Todo, error)
	Create(ctx context.Context, cmd CreateTodoCommand) (domain.Todo, error)
	Update(ctx context.Context, id string, patch domain.TodoPatch) (domain.Todo, error)
	Delete(ctx context.Context, id string) (domain.Todo, error)
	// Reseed replaces every todo with the provided ones.
	Reseed(ctx context.Context, todos []CreateTodoCommand) ([]domain.Todo, error)
}

// ImageService stores and serves image uploads.
type ImageService interface {
	Upload(ctx context.Context, cmd UploadImageCommand) (domain.Image, error)
	Open(ctx context.Context, objectName string) (ImageDownload, error)
	Delete(ctx context.Context, objectName string) error
	List(ctx context.Context, prefix string) ([]domain.Image, error)
	MaxFileSize() int64
}

// UserService manages console accounts and issues session tokens.
type UserService interface {
	SignUp(ctx context.Context, cmd SignUpCommand) (domain.User, error)
	SignIn(ctx context.Context, cmd SignInCommand) (Session, error)
	Get(ctx context.Context, id string) (domain.User, error)
}

// SystemService reports service metadata and dependency health.
type SystemService interface {
	Info() BuildInfo
	Health(ctx context.Context) HealthReport
	Ready(ctx context.Context) HealthReport
}

// TodoListCommand combines listing filters with 1-based pagination.
type TodoListCommand struct {
	Filter   domain.TodoFilter
	Page     int
	PageSize int
	OrderBy  string
	Desc     bool
}

// CreateTodoCommand carries a new todo.
type CreateTodoCommand struct {
	Title       string
	Description *string
	Completed   bool
}

// UploadImageCommand carries a multipart upload.
type UploadImageCommand struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
	// Path overrides the generated object name when set.
	Path string
}

// ImageDownload is an open object stream; Body must be closed.
type ImageDownload struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
	ObjectName  string
}

// SignUpCommand registers a console account.
type SignUpCommand struct {
	Email    string
	Password string
	Name     string
}

// SignInCommand authenticates with email and password.
type SignInCommand struct {
	Email    string
	Password string
}

// Session is an issued bearer token together with its user.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      domain.User
}

// TodoEventType names a todo change notification.
type TodoEventType string

const (
	TodoCreated TodoEventType = "todo.created"
	TodoUpdated TodoEventType = "todo.updated"
	TodoDeleted TodoEventType = "todo.deleted"
)

// TodoEvent is published after every successful todo mutation.
type TodoEvent struct {
	Type       TodoEventType `json:"type"`
	TodoID     string        `json:"todoId"`
	Title      string        `json:"title"`
	Completed  bool          `json:"completed"`
	OccurredAt time.Time     `json:"occurredAt"`
}

// TodoEventPublisher delivers todo events to subscribers.
type TodoEventPublisher interface {
	PublishTodoEvent(ctx context.Context, event TodoEvent) (string, error)
}

// HealthChecker probes one dependency.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthCheckerFunc adapts a function to HealthChecker.
type HealthCheckerFunc func(context.Context) error

// Ping implements HealthChecker.
func (f HealthCheckerFunc) Ping(ctx context.Context) error { return f(ctx) }

// BuildInfo captures runtime metadata exposed via system endpoints.
type BuildInfo struct {
	Name        string
	Version     string
	Environment string
	StartedAt   time.Time
}

// HealthReport summarises dependency checks.
type HealthReport struct {
	Status    string
	Uptime    time.Duration
	Timestamp time.Time
	Checks    map[string]string
}
