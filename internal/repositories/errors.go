package repositories

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates the attempted write would violate a uniqueness constraint.
	ErrConflict = errors.New("record conflict")
	// ErrUnavailable indicates the store did not answer within the bounded
	// per-call timeout. Callers should treat it as transient and retryable.
	ErrUnavailable = errors.New("store unavailable")
)

// wrapStoreErr tags timeouts as ErrUnavailable so handlers can render them as
// a transient outage instead of a generic failure.
func wrapStoreErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}
