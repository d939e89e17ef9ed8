package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/verdict/internal/adapters/repository"
	service "github.com/okian/verdict/internal/app"
	"github.com/okian/verdict/internal/domain/criteria"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service on a sqlite store", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		path := filepath.Join(t.TempDir(), "verdict.db")
		repo, err := repository.OpenSQL(ctx, repository.DriverSQLite, path)
		So(err, ShouldBeNil)

		svc := newService(
			service.WithRepository(repo),
			service.WithWorkerCount(1),
			service.WithQueueSize(64),
		)
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When a group assessment goes through a full cycle", func() {
			a, err := svc.CreateAssignment(ctx, service.CreateRequest{
				AssessorID: "alice",
				CaseStudy:  "merger integration",
				Subject: model.Subject{
					ID: "g-7", Kind: criteria.Group, Name: "Delta",
					MemberIDs: []string{"u-1", "u-2", "u-3"},
				},
			})
			So(err, ShouldBeNil)

			catalog, err := svc.Catalog(criteria.Group)
			So(err, ShouldBeNil)
			draft := model.Draft{Scores: fullVector(catalog, 12, scoring.Vector{criteria.Collaboration: 4})}

			_, err = svc.Save(ctx, a.ID, draft)
			So(err, ShouldBeNil)
			submitted, err := svc.Submit(ctx, a.ID, nil)
			So(err, ShouldBeNil)
			_, err = svc.Reopen(ctx, a.ID)
			So(err, ShouldBeNil)
			final, err := svc.Submit(ctx, a.ID, nil)
			So(err, ShouldBeNil)

			svc.Stop()

			Convey("Then the submission is scored on the group scale", func() {
				So(submitted.MaxTotal, ShouldEqual, 200)
				So(submitted.TotalScore, ShouldEqual, 112)
				So(submitted.Band, ShouldEqual, scoring.Developing)
				So(final.TotalScore, ShouldEqual, submitted.TotalScore)
				So(final.Revision, ShouldEqual, 4)
			})

			Convey("Then every transition reaches the event log in order", func() {
				reopened, err := repository.OpenSQL(ctx, repository.DriverSQLite, path)
				So(err, ShouldBeNil)
				defer reopened.Close()

				events, err := reopened.History(ctx, a.ID)
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 4)
				So(events[0].Transition, ShouldEqual, model.TransitionSave)
				So(events[0].From, ShouldEqual, model.NotStarted)
				So(events[1].To, ShouldEqual, model.Submitted)
				So(events[2].Transition, ShouldEqual, model.TransitionReopen)
				So(events[3].Revision, ShouldEqual, 4)
			})
		})

		Reset(func() {
			svc.Stop()
		})
	})
}
