// Package lifecycle guards the NotStarted -> InProgress -> Submitted state
// machine of an assessment record and its Reopen back-edge.
//
// Transitions are pure: they take the stored record and the freshly built
// candidate and return the record to persist. Nothing here touches storage,
// so a refused transition leaves the stored record unchanged by construction.
package lifecycle

import (
	"time"

	"github.com/okian/verdict/internal/domain/model"
)

// table maps a transition and source state to the target state. A missing
// entry is a violation.
var table = map[model.Transition]map[model.State]model.State{
	model.TransitionSave: {
		model.NotStarted: model.InProgress,
		model.InProgress: model.InProgress,
	},
	model.TransitionSubmit: {
		model.NotStarted: model.Submitted,
		model.InProgress: model.Submitted,
		model.Submitted:  model.Submitted,
	},
	model.TransitionReopen: {
		model.Submitted: model.InProgress,
	},
}

// Next returns the target state of t from s.
func Next(s model.State, t model.Transition) (model.State, error) {
	to, ok := table[t][s]
	if !ok {
		return s, violation(t, s, "")
	}
	return to, nil
}

// Allowed reports whether t may be attempted from s.
func Allowed(s model.State, t model.Transition) bool {
	_, err := Next(s, t)
	return err == nil
}

// Save stores next as a draft. current must be the stored record (or the
// NotStarted view of one never saved); next carries the new draft with its
// derived fields already computed.
func Save(current, next model.Record, now time.Time) (model.Record, error) {
	to, err := Next(current.State, model.TransitionSave)
	if err != nil {
		return current, err
	}
	out := carry(current, next.Clone(), now)
	out.State = to
	out.SubmittedAt = nil
	return out, nil
}

// Submit freezes next. From Submitted it is idempotent only when next holds
// exactly the frozen scores and notes: the submission time is re-stamped and
// the stored total and band are persisted again.
func Submit(current, next model.Record, now time.Time) (model.Record, error) {
	to, err := Next(current.State, model.TransitionSubmit)
	if err != nil {
		return current, err
	}
	var out model.Record
	if current.State == model.Submitted {
		if !next.Draft().Equal(current.Draft()) {
			return current, violation(model.TransitionSubmit, current.State, "scores and notes are frozen until reopened")
		}
		out = carry(current, current.Clone(), now)
	} else {
		out = carry(current, next.Clone(), now)
	}
	out.State = to
	at := now
	out.SubmittedAt = &at
	return out, nil
}

// Reopen returns a submitted record to InProgress without touching its scores,
// notes or derived fields.
func Reopen(current model.Record, now time.Time) (model.Record, error) {
	to, err := Next(current.State, model.TransitionReopen)
	if err != nil {
		return current, err
	}
	out := carry(current, current.Clone(), now)
	out.State = to
	out.SubmittedAt = nil
	return out, nil
}

// Event describes the move from before to after.
func Event(id string, t model.Transition, before, after model.Record) model.LifecycleEvent {
	return model.LifecycleEvent{
		ID:           id,
		AssignmentID: after.AssignmentID,
		Transition:   t,
		From:         before.State,
		To:           after.State,
		TotalScore:   after.TotalScore,
		Band:         after.Band,
		Revision:     after.Revision,
		OccurredAt:   after.UpdatedAt,
	}
}

// carry keeps identity and creation time from current on out and advances
// the bookkeeping fields.
func carry(current, out model.Record, now time.Time) model.Record {
	out.AssignmentID = current.AssignmentID
	out.Subject = current.Subject
	out.CreatedAt = current.CreatedAt
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	out.UpdatedAt = now
	out.Revision = current.Revision + 1
	return out
}
