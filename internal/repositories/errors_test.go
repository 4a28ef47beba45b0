package repositories

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("driver failure")
	err := fmt.Errorf("service: %w", NewError("todos.find", KindNotFound, cause))

	if !IsNotFound(err) || IsConflict(err) || IsUnavailable(err) {
		t.Fatalf("unexpected classification for %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to unwrap")
	}
	if got := err.Error(); got != "service: todos.find: driver failure" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := NewError("users.insert", KindConflict, nil).Error(); got != "users.insert: conflict" {
		t.Fatalf("unexpected message %q", got)
	}
	if IsNotFound(cause) || IsNotFound(nil) {
		t.Fatalf("plain errors must not classify")
	}
}
