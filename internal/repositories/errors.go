package repositories

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a persistence failure for the service layer.
type ErrorKind int

const (
	// KindInternal is any failure without a more specific meaning.
	KindInternal ErrorKind = iota
	KindNotFound
	KindConflict
	// KindUnavailable marks transient backend outages; readiness reports them.
	KindUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is returned by every backend. Op names the repository call, e.g.
// "todos.find"; Err is the driver error and may be nil.
type Error struct {
	Op   string
	Kind ErrorKind
	Err  error
}

// NewError classifies err under op.
func NewError(op string, kind ErrorKind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a KindNotFound *Error.
func IsNotFound(err error) bool { return kindOf(err) == KindNotFound }

// IsConflict reports whether err is a KindConflict *Error.
func IsConflict(err error) bool { return kindOf(err) == KindConflict }

// IsUnavailable reports whether err is a KindUnavailable *Error.
func IsUnavailable(err error) bool { return kindOf(err) == KindUnavailable }

func kindOf(err error) ErrorKind {
	var repoErr *Error
	if errors.As(err, &repoErr) {
		return repoErr.Kind
	}
	return -1
}
