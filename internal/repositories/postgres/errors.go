package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"

	"gorm.io/gorm"

	"finitefield.org/taskboard/internal/repositories"
)

// wrapError classifies gorm and driver errors. Context errors pass through
// unchanged so callers can tell cancellation from failure.
func wrapError(op string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	kind := repositories.KindInternal
	var netErr net.Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		kind = repositories.KindNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		kind = repositories.KindConflict
	case errors.Is(err, driver.ErrBadConn), errors.As(err, &netErr):
		kind = repositories.KindUnavailable
	}
	return repositories.NewError(op, kind, err)
}
