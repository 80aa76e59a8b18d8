package rangecache

import (
	"errors"
	"fmt"

	"github.com/hupe1980/rangecache/pageset"
)

var (
	// ErrOrderingViolation is returned when a window's isStart/isFinish
	// claim is inconsistent with already-cached ranges. It indicates a bug
	// in the window provider and is never retried.
	ErrOrderingViolation = errors.New("ordering violation")

	// ErrNoSource is returned by read operations that need to fetch but no
	// source is configured.
	ErrNoSource = errors.New("no source configured")

	// ErrNoReverseSource is returned by backward reads when the configured
	// source cannot page from the logical end.
	ErrNoReverseSource = errors.New("source cannot fetch backwards")
)

// translateError maps subpackage errors into the public error contract.
// The original error remains reachable via errors.Unwrap/errors.As.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var be *pageset.BoundaryError
	if errors.As(err, &be) {
		return fmt.Errorf("%w: %w", ErrOrderingViolation, err)
	}

	return err
}
