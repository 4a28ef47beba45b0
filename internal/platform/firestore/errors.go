package firestore

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"finitefield.org/taskboard/internal/repositories"
)

// WrapError classifies a Firestore gRPC error. Cancellation and deadline codes
// become the context errors; already classified errors are returned as is.
func WrapError(op string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var repoErr *repositories.Error
	if errors.As(err, &repoErr) {
		return err
	}

	kind := repositories.KindInternal
	switch status.Code(err) {
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	case codes.NotFound:
		kind = repositories.KindNotFound
	case codes.AlreadyExists, codes.FailedPrecondition, codes.Aborted:
		kind = repositories.KindConflict
	case codes.Unavailable, codes.ResourceExhausted, codes.Internal:
		kind = repositories.KindUnavailable
	}
	return repositories.NewError(op, kind, err)
}

// NotFound reports a query that matched no document.
func NotFound(op string, err error) error {
	return repositories.NewError(op, repositories.KindNotFound, err)
}
