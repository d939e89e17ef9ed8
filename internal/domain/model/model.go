// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/verdict/internal/domain/criteria"
	"github.com/okian/verdict/internal/domain/scoring"
)

// State is the lifecycle state of an assessment record.
type State string

const (
	NotStarted State = "not_started"
	InProgress State = "in_progress"
	Submitted  State = "submitted"
)

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	switch s {
	case NotStarted, InProgress, Submitted:
		return true
	}
	return false
}

// Transition names a lifecycle operation.
type Transition string

const (
	TransitionSave   Transition = "save"
	TransitionSubmit Transition = "submit"
	TransitionReopen Transition = "reopen"
)

// Subject is the person or team being assessed. Kind selects which fields
// apply: Email, Department and Position for individuals; Description and
// MemberIDs for groups.
type Subject struct {
	ID          string        `json:"id"`
	Kind        criteria.Kind `json:"kind"`
	Name        string        `json:"name"`
	Email       string        `json:"email,omitempty"`
	Department  string        `json:"department,omitempty"`
	Position    string        `json:"position,omitempty"`
	Description string        `json:"description,omitempty"`
	MemberIDs   []string      `json:"member_ids,omitempty"`
}

// Validate checks the fields every subject needs.
func (s Subject) Validate() error {
	if s.ID == "" {
		return scoring.Invalid("subject.id", "must not be empty")
	}
	if _, err := criteria.ParseKind(string(s.Kind)); err != nil {
		return scoring.Invalid("subject.kind", err.Error())
	}
	if s.Kind == criteria.Individual && len(s.MemberIDs) > 0 {
		return scoring.Invalid("subject.member_ids", "individual subjects have no members")
	}
	return nil
}

// Clone returns a copy that shares no slices with s.
func (s Subject) Clone() Subject {
	s.MemberIDs = append([]string(nil), s.MemberIDs...)
	return s
}

// Assignment links one assessor to one subject for one case study.
type Assignment struct {
	ID         string    `json:"id"`
	AssessorID string    `json:"assessor_id"`
	CaseStudy  string    `json:"case_study"`
	Subject    Subject   `json:"subject"`
	CreatedAt  time.Time `json:"created_at"`
}

// SubjectRef identifies the assessed subject inside a record.
type SubjectRef struct {
	ID   string        `json:"id"`
	Kind criteria.Kind `json:"kind"`
}

// Ref returns the reference form of s.
func (s Subject) Ref() SubjectRef {
	return SubjectRef{ID: s.ID, Kind: s.Kind}
}

// Draft is the caller-editable part of a record.
type Draft struct {
	Scores       scoring.Vector    `json:"scores"`
	Notes        map[string]string `json:"notes"`
	GeneralNotes string            `json:"general_notes"`
}

// Clone returns a deep copy.
func (d Draft) Clone() Draft {
	notes := make(map[string]string, len(d.Notes))
	for k, v := range d.Notes {
		notes[k] = v
	}
	return Draft{Scores: d.Scores.Clone(), Notes: notes, GeneralNotes: d.GeneralNotes}
}

// Equal reports whether both drafts carry identical scores and notes. Nil and
// empty maps compare equal.
func (d Draft) Equal(o Draft) bool {
	if d.GeneralNotes != o.GeneralNotes || len(d.Notes) != len(o.Notes) {
		return false
	}
	for k, v := range d.Notes {
		if other, ok := o.Notes[k]; !ok || other != v {
			return false
		}
	}
	return d.Scores.Equal(o.Scores)
}

// Record is the persisted assessment for one assignment. Total, Band and the
// findings are derived from Scores and are never authoritative on their own.
type Record struct {
	AssignmentID  string            `json:"assignment_id"`
	Subject       SubjectRef        `json:"subject"`
	Scores        scoring.Vector    `json:"scores"`
	Notes         map[string]string `json:"notes"`
	GeneralNotes  string            `json:"general_notes"`
	TotalScore    float64           `json:"total_score"`
	MaxTotal      float64           `json:"max_total"`
	CompletionPct float64           `json:"completion_pct"`
	Band          scoring.Band      `json:"performance_band"`
	Reinforcing   []string          `json:"reinforcing_findings"`
	Cautionary    []string          `json:"cautionary_findings"`
	State         State             `json:"state"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	SubmittedAt   *time.Time        `json:"submitted_at,omitempty"`
	Revision      int64             `json:"revision"`
}

// Draft extracts the editable fields.
func (r Record) Draft() Draft {
	return Draft{Scores: r.Scores, Notes: r.Notes, GeneralNotes: r.GeneralNotes}.Clone()
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	d := r.Draft()
	r.Scores, r.Notes = d.Scores, d.Notes
	r.Reinforcing = append([]string{}, r.Reinforcing...)
	r.Cautionary = append([]string{}, r.Cautionary...)
	if r.SubmittedAt != nil {
		at := *r.SubmittedAt
		r.SubmittedAt = &at
	}
	return r
}

// LifecycleEvent is emitted after a transition has been persisted.
type LifecycleEvent struct {
	ID           string       `json:"id"`
	AssignmentID string       `json:"assignment_id"`
	Transition   Transition   `json:"transition"`
	From         State        `json:"from"`
	To           State        `json:"to"`
	TotalScore   float64      `json:"total_score"`
	Band         scoring.Band `json:"performance_band"`
	Revision     int64        `json:"revision"`
	OccurredAt   time.Time    `json:"occurred_at"`
}
