package domain

import "time"

// Todo is a single task tracked by the API.
type Todo struct {
	ID          string
	Title       string
	Description *string
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TodoStatus narrows a todo listing by completion state.
type TodoStatus string

const (
	TodoStatusAll       TodoStatus = "all"
	TodoStatusActive    TodoStatus = "active"
	TodoStatusCompleted TodoStatus = "completed"
)

// TodoFilter describes the listing criteria accepted by todo repositories.
// Query is matched case-insensitively against title and description.
type TodoFilter struct {
	Query       string
	Status      TodoStatus
	CreatedFrom *time.Time
	// CreatedTo is an exclusive upper bound.
	CreatedTo   *time.Time
}

// TodoPatch carries a partial update; nil fields are left untouched.
type TodoPatch struct {
	Title       *string
	Description *string
	// ClearDescription sets the description to null.
	ClearDescription bool
	Completed        *bool
}

// Empty reports whether the patch changes nothing.
func (p TodoPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && !p.ClearDescription && p.Completed == nil
}

// User is an account allowed to sign in to the admin console.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Image describes a stored image object.
type Image struct {
	ObjectName   string
	ContentType  string
	Size         int64
	LastModified time.Time
	URL          string
}

// Page is one slice of a listing together with the unpaged total.
type Page[T any] struct {
	Items    []T
	Total    int64
	Page     int
	PageSize int
}
