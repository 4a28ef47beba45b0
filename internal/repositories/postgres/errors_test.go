package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"finitefield.org/taskboard/internal/repositories"
)

func TestWrapErrorCategories(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		notFound    bool
		conflict    bool
		unavailable bool
	}{
		{name: "record not found", err: gorm.ErrRecordNotFound, notFound: true},
		{name: "duplicate key", err: fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), conflict: true},
		{name: "bad connection", err: driver.ErrBadConn, unavailable: true},
		{name: "other", err: errors.New("syntax error")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := wrapError("op", tc.err)
			if repositories.IsNotFound(err) != tc.notFound {
				t.Fatalf("notFound mismatch for %v", err)
			}
			if repositories.IsConflict(err) != tc.conflict {
				t.Fatalf("conflict mismatch for %v", err)
			}
			if repositories.IsUnavailable(err) != tc.unavailable {
				t.Fatalf("unavailable mismatch for %v", err)
			}
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected wrapped error to unwrap to original")
			}
		})
	}
}

func TestWrapErrorPassesContextErrors(t *testing.T) {
	if err := wrapError("op", context.Canceled); err != context.Canceled {
		t.Fatalf("expected context.Canceled passthrough, got %v", err)
	}
	if wrapError("op", nil) != nil {
		t.Fatalf("expected nil for nil input")
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Fatalf("unexpected escape %q", got)
	}
}
