package scoring

import (
	"errors"
	"fmt"
	"sort"
)

// ErrValidation is the kind shared by every malformed-input error.
var ErrValidation = errors.New("validation failed")

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError for callers outside this package.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func outOfRange(maxValue float64) string {
	return fmt.Sprintf("score must be between 0 and %g", maxValue)
}

func sortedKeys(v Vector) []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
