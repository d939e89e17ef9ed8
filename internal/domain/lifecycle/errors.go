package lifecycle

import (
	"errors"
	"fmt"

	"github.com/okian/verdict/internal/domain/model"
)

// ErrLifecycleViolation is matched by every rejected transition.
var ErrLifecycleViolation = errors.New("lifecycle violation")

// Violation names the transition that was refused and the state it was
// attempted from.
type Violation struct {
	Transition model.Transition
	State      model.State
	Reason     string
}

func (v *Violation) Error() string {
	msg := fmt.Sprintf("%s: cannot %s from %s", ErrLifecycleViolation, v.Transition, v.State)
	if v.Reason != "" {
		msg += ": " + v.Reason
	}
	return msg
}

// Is lets errors.Is(err, ErrLifecycleViolation) match.
func (v *Violation) Is(target error) bool {
	return target == ErrLifecycleViolation
}

func violation(t model.Transition, s model.State, reason string) error {
	return &Violation{Transition: t, State: s, Reason: reason}
}
