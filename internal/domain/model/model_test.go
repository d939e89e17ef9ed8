package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/verdict/internal/domain/criteria"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/domain/scoring"
	"github.com/smartystreets/goconvey/convey"
)

func TestSubject(t *testing.T) {
	convey.Convey("Given subjects", t, func() {
		convey.Convey("When an individual is well formed", func() {
			s := model.Subject{ID: "u-1", Kind: criteria.Individual, Name: "Ada", Email: "ada@example.com"}
			convey.So(s.Validate(), convey.ShouldBeNil)
			convey.So(s.Ref(), convey.ShouldResemble, model.SubjectRef{ID: "u-1", Kind: criteria.Individual})
		})

		convey.Convey("When a group has no members yet", func() {
			s := model.Subject{ID: "g-1", Kind: criteria.Group, Name: "Blue"}
			convey.So(s.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When required fields are missing or inconsistent", func() {
			for _, s := range []model.Subject{
				{Kind: criteria.Individual},
				{ID: "x", Kind: "committee"},
				{ID: "x", Kind: criteria.Individual, MemberIDs: []string{"a"}},
			} {
				convey.So(errors.Is(s.Validate(), scoring.ErrValidation), convey.ShouldBeTrue)
			}
		})

		convey.Convey("When a group is cloned", func() {
			s := model.Subject{ID: "g", Kind: criteria.Group, MemberIDs: []string{"a", "b"}}
			c := s.Clone()
			c.MemberIDs[0] = "z"
			convey.So(s.MemberIDs[0], convey.ShouldEqual, "a")
		})
	})
}

func TestDraftAndRecord(t *testing.T) {
	convey.Convey("Given a draft", t, func() {
		d := model.Draft{
			Scores:       scoring.Vector{criteria.Leadership: 7},
			Notes:        map[string]string{criteria.Leadership: "steady"},
			GeneralNotes: "good session",
		}

		convey.Convey("Then equality covers scores and both kinds of notes", func() {
			convey.So(d.Equal(d.Clone()), convey.ShouldBeTrue)

			other := d.Clone()
			other.Notes[criteria.Leadership] = "shaky"
			convey.So(d.Equal(other), convey.ShouldBeFalse)

			other = d.Clone()
			other.GeneralNotes = ""
			convey.So(d.Equal(other), convey.ShouldBeFalse)

			other = d.Clone()
			other.Scores[criteria.Leadership] = 6
			convey.So(d.Equal(other), convey.ShouldBeFalse)
		})

		convey.Convey("Then nil and empty maps are equal", func() {
			convey.So(model.Draft{}.Equal(model.Draft{Scores: scoring.Vector{}, Notes: map[string]string{}}), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a submitted record", t, func() {
		at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		r := model.Record{
			AssignmentID: "a-1",
			Scores:       scoring.Vector{criteria.Innovation: 9},
			Notes:        map[string]string{},
			Reinforcing:  []string{"x"},
			State:        model.Submitted,
			SubmittedAt:  &at,
		}

		convey.Convey("When it is cloned and the clone mutated", func() {
			c := r.Clone()
			c.Scores[criteria.Innovation] = 1
			c.Reinforcing[0] = "y"
			*c.SubmittedAt = at.Add(time.Hour)

			convey.Convey("Then the original is untouched", func() {
				convey.So(r.Scores[criteria.Innovation], convey.ShouldEqual, 9)
				convey.So(r.Reinforcing[0], convey.ShouldEqual, "x")
				convey.So(*r.SubmittedAt, convey.ShouldEqual, at)
			})
		})

		convey.Convey("Then the states are recognised", func() {
			convey.So(r.State.Valid(), convey.ShouldBeTrue)
			convey.So(model.State("archived").Valid(), convey.ShouldBeFalse)
		})
	})
}
