package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBodyTooLarge = errors.New("request body too large")
	ErrRateLimited  = errors.New("rate limited")

	errEmptyBody = errors.New("empty body")
)

// NewKind returns an error of the given kind tagged with op.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind tags cause with op and kind; both match errors.Is.
func WrapKind(op string, kind, cause error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, cause)
}
