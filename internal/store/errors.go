package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrNotFound means no message has the requested id.
	ErrNotFound = errors.New("message not found")
	// ErrMalformed means the result set could not be decoded into messages,
	// or a lookup by id matched more than one row.
	ErrMalformed = errors.New("message could not be parsed")
	// ErrUnavailable means the database could not be reached.
	ErrUnavailable = errors.New("database unavailable")
	// ErrCreation means the insert was rejected or its result did not match.
	ErrCreation = errors.New("message could not be created")
)

// classify wraps err with ErrUnavailable when it is a connectivity failure,
// and with fallback otherwise.
func classify(op string, err error, fallback error) error {
	if isConnFailure(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w: %w", op, fallback, err)
}

func isConnFailure(err error) bool {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
