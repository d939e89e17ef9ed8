package loadgen

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/verdict/internal/adapters/http/api"
	service "github.com/okian/verdict/internal/app"
	"github.com/okian/verdict/internal/domain/criteria"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/internal/domain/scoring"
	"github.com/okian/verdict/pkg/logger"
)

func init() {
	_ = logger.Init()
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	svc := service.New()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start service: %v", err)
	}
	srv := httptest.NewServer(api.NewServer(svc).Routes(ctx))
	t.Cleanup(func() {
		srv.Close()
		svc.Stop()
	})
	return srv
}

func TestRun(t *testing.T) {
	Convey("Given a running service", t, func() {
		srv := newTestServer(t)
		out := filepath.Join(t.TempDir(), "reports", "run.json")

		Convey("Run drives every scenario and verifies the stored records", func() {
			stats, err := Run(context.Background(), &Config{
				BaseURL:     srv.URL,
				Assignments: 20,
				GroupShare:  0.5,
				ReopenEvery: 4,
				Workers:     4,
				Timeout:     5 * time.Second,
				OutputFile:  out,
			})
			So(err, ShouldBeNil)
			So(stats.Generated, ShouldEqual, 20)
			So(stats.Completed, ShouldEqual, 20)
			So(stats.Failed, ShouldEqual, 0)
			So(stats.Reopened, ShouldEqual, 5)
			So(stats.Verified, ShouldEqual, 20)
			So(stats.Mismatched, ShouldEqual, 0)

			total := 0
			for _, n := range stats.BandCounts {
				total += n
			}
			So(total, ShouldEqual, 20)

			_, statErr := os.Stat(out)
			So(statErr, ShouldBeNil)
		})
	})

	Convey("Given no service", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		Convey("Run fails the health check", func() {
			_, err := Run(context.Background(), &Config{BaseURL: srv.URL, Assignments: 1, Timeout: time.Second})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "health check")
		})
	})
}

func TestHTTPClient(t *testing.T) {
	Convey("Given a client for a running service", t, func() {
		srv := newTestServer(t)
		client := newHTTPClient(srv.URL, time.Second)
		ctx := context.Background()

		Convey("Non-2xx replies surface as StatusError", func() {
			err := client.Get(ctx, "/assignments/missing", nil)
			se, ok := err.(*StatusError)
			So(ok, ShouldBeTrue)
			So(se.Status, ShouldEqual, http.StatusNotFound)
			So(se.Method, ShouldEqual, http.MethodGet)
			So(se.Error(), ShouldContainSubstring, "404")
		})

		Convey("Catalogs round-trip through the API", func() {
			catalogs, err := fetchCatalogs(ctx, client)
			So(err, ShouldBeNil)
			So(catalogs[criteria.Individual].MaxTotal(), ShouldEqual, 100)
			So(catalogs[criteria.Group].MaxTotal(), ShouldEqual, 200)
		})
	})
}

func TestGenerateScenarios(t *testing.T) {
	Convey("Given the default catalogs", t, func() {
		set := criteria.Defaults()
		catalogs := map[criteria.Kind]*criteria.Catalog{
			criteria.Individual: set.Individual,
			criteria.Group:      set.Group,
		}
		stats := &Stats{}

		Convey("Every scenario carries a whole-point draft within range", func() {
			scenarios, err := generateScenarios(context.Background(), &Config{Assignments: 30, GroupShare: 1, ReopenEvery: 3}, catalogs, stats)
			So(err, ShouldBeNil)
			So(stats.Generated, ShouldEqual, 30)
			for _, s := range scenarios {
				So(s.Kind, ShouldEqual, criteria.Group)
				So(len(s.Request.Subject.MemberIDs), ShouldBeBetweenOrEqual, 2, 6)
				So(scoring.ValidateVector(s.Draft.Scores, set.Group), ShouldBeNil)
				So(s.Reopen, ShouldEqual, s.Index%3 == 0)
			}
		})

		Convey("A cancelled context stops generation", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := generateScenarios(ctx, &Config{Assignments: 3}, catalogs, stats)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestVerifyOne(t *testing.T) {
	Convey("Given a submitted individual record", t, func() {
		catalog := criteria.Defaults().Individual
		scores := scoring.Vector{}
		for _, c := range catalog.Criteria() {
			scores[c.ID] = 7
		}
		now := time.Now()
		o := Outcome{
			Scenario: Scenario{Kind: criteria.Individual, Draft: model.Draft{Scores: scores}},
			Record: model.Record{
				State:       model.Submitted,
				TotalScore:  70,
				MaxTotal:    100,
				Band:        scoring.Strong,
				SubmittedAt: &now,
			},
			History: 2,
		}

		Convey("A consistent record passes", func() {
			So(verifyOne(o, catalog), ShouldBeNil)
		})

		Convey("A wrong band is reported", func() {
			o.Record.Band = scoring.Exceptional
			So(verifyOne(o, catalog), ShouldNotBeNil)
		})

		Convey("A record that is not submitted is reported", func() {
			o.Record.State = model.InProgress
			So(verifyOne(o, catalog), ShouldNotBeNil)
		})

		Convey("Too many history events are reported", func() {
			o.History = 3
			So(verifyOne(o, catalog), ShouldNotBeNil)
		})
	})
}

func TestDriveScenariosCancelled(t *testing.T) {
	Convey("Given a context that is already cancelled", t, func() {
		set := criteria.Defaults()
		catalogs := map[criteria.Kind]*criteria.Catalog{
			criteria.Individual: set.Individual,
			criteria.Group:      set.Group,
		}
		config := &Config{Assignments: 40, Workers: 2}
		stats := &Stats{}
		scenarios, err := generateScenarios(context.Background(), config, catalogs, stats)
		So(err, ShouldBeNil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		client := newHTTPClient("http://127.0.0.1:1", time.Second)

		Convey("Then nothing counts as completed and unsent scenarios are skipped", func() {
			outcomes := driveScenarios(ctx, config, client, scenarios, stats)
			So(stats.Completed, ShouldEqual, 0)
			So(len(outcomes), ShouldEqual, stats.Failed)
			So(stats.Failed+stats.Skipped, ShouldEqual, 40)
			for _, o := range outcomes {
				So(o.Err, ShouldNotBeEmpty)
			}
		})
	})
}
