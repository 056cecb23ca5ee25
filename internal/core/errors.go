package core

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers. Use errors.Is to classify a returned error.
var (
	// ErrValidation rejects a whole call because its input is malformed or incomplete.
	ErrValidation = errors.New("validation error")

	// ErrNotFoundOrForbidden covers both a missing target and a target outside the caller's scope,
	// so callers cannot test for existence.
	ErrNotFoundOrForbidden = errors.New("not found")

	// ErrInvariantViolation rejects a mutation that would break a pool invariant. Nothing is written.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrMissingIdentityColumn means an import batch carries neither identity column.
	ErrMissingIdentityColumn = fmt.Errorf("%w: missing identity column", ErrValidation)

	// ErrUnresolvedIdentity is a row-level failure: neither code resolved to a product.
	ErrUnresolvedIdentity = errors.New("unresolved product identity")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFoundOrForbidden, fmt.Sprintf(format, args...))
}
