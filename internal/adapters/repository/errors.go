package repository

import (
	"errors"
	"fmt"
)

// Sentinel kinds for repository errors.
var (
	ErrNotFound       = errors.New("not found")
	ErrPersistence    = errors.New("persistence failure")
	ErrUnknownBackend = errors.New("unknown store backend")
)

// PersistenceError wraps a transport or storage failure. It matches
// ErrPersistence and unwraps to the backend error.
type PersistenceError struct {
	Backend string
	Op      string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrPersistence, e.Backend, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrPersistence) match.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// wrap returns nil for nil and passes ErrNotFound through unchanged.
func wrap(backend, op string, err error) error {
	if err == nil || isNotFound(err) {
		return err
	}
	return &PersistenceError{Backend: backend, Op: op, Err: err}
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
