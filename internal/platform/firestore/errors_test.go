package firestore

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"finitefield.org/taskboard/internal/platform/config"
	"finitefield.org/taskboard/internal/repositories"
)

func TestWrapErrorMapsCodes(t *testing.T) {
	cases := []struct {
		code        codes.Code
		notFound    bool
		conflict    bool
		unavailable bool
	}{
		{code: codes.NotFound, notFound: true},
		{code: codes.AlreadyExists, conflict: true},
		{code: codes.Aborted, conflict: true},
		{code: codes.Unavailable, unavailable: true},
		{code: codes.PermissionDenied},
	}
	for _, tc := range cases {
		err := WrapError("todos.get", status.Error(tc.code, "x"))
		var repoErr *repositories.Error
		if !errors.As(err, &repoErr) {
			t.Fatalf("%s: expected *repositories.Error, got %T", tc.code, err)
		}
		if repositories.IsNotFound(err) != tc.notFound || repositories.IsConflict(err) != tc.conflict || repositories.IsUnavailable(err) != tc.unavailable {
			t.Fatalf("%s: unexpected categorisation %v", tc.code, repoErr.Kind)
		}
	}
}

func TestWrapErrorContext(t *testing.T) {
	if err := WrapError("op", status.Error(codes.DeadlineExceeded, "slow")); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if err := WrapError("op", context.Canceled); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled passthrough, got %v", err)
	}
}

func TestProviderRequiresProject(t *testing.T) {
	p := NewProvider(configWithoutProject())
	if _, err := p.Client(context.Background()); err == nil {
		t.Fatalf("expected project id error")
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := p.Client(context.Background()); !errors.Is(err, ErrProviderClosed) {
		t.Fatalf("expected ErrProviderClosed, got %v", err)
	}
}

func configWithoutProject() config.FirestoreConfig {
	return config.FirestoreConfig{}
}
