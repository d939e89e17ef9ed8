package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/verdict/internal/adapters/http/api"
	"github.com/okian/verdict/internal/adapters/repository"
	service "github.com/okian/verdict/internal/app"
	"github.com/okian/verdict/internal/domain/model"
	"github.com/okian/verdict/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// brokenRepo fails every write so the 503 path can be exercised.
type brokenRepo struct {
	*repository.MemoryStore
}

func (b brokenRepo) PutAssignment(context.Context, model.Assignment) error {
	return &repository.PersistenceError{Backend: "test", Op: "put_assignment", Err: errors.New("read-only")}
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
	return v
}

type apiError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Field      string `json:"field"`
	Transition string `json:"transition"`
	State      string `json:"state"`
}

func newHandler(opts ...api.Option) http.Handler {
	svc := service.New()
	return api.NewServer(svc, opts...).Routes(context.Background())
}

const createIndividual = `{"assessor_id":"alice","case_study":"launch","subject":{"id":"u-1","kind":"individual","name":"Ada"}}`

func TestAssignmentRoutes(t *testing.T) {
	Convey("Given the API over an in-memory service", t, func() {
		h := newHandler()

		Convey("When an assignment is created", func() {
			w := do(h, http.MethodPost, "/assignments", createIndividual)
			So(w.Code, ShouldEqual, http.StatusCreated)
			a := decode[model.Assignment](w)
			So(w.Header().Get("Location"), ShouldEqual, "/assignments/"+a.ID)
			base := "/assignments/" + a.ID

			Convey("Then it can be fetched and listed", func() {
				w := do(h, http.MethodGet, base, "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[model.Assignment](w).Subject.Name, ShouldEqual, "Ada")

				w = do(h, http.MethodGet, "/assignments?assessor_id=alice&state=not_started", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(len(decode[[]model.Assignment](w)), ShouldEqual, 1)
			})

			Convey("Then the record starts NotStarted", func() {
				w := do(h, http.MethodGet, base+"/record", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				r := decode[map[string]any](w)
				So(r["state"], ShouldEqual, "not_started")
				So(r["performance_band"], ShouldEqual, "Limited")
			})

			Convey("And a draft is saved then submitted", func() {
				w := do(h, http.MethodPut, base+"/record",
					`{"scores":{"leadership":8,"emotionalIntelligence":4,"communication":6},"notes":{"leadership":"drives hard"}}`)
				So(w.Code, ShouldEqual, http.StatusOK)
				saved := decode[map[string]any](w)
				So(saved["state"], ShouldEqual, "in_progress")
				So(saved["total_score"], ShouldEqual, 18)

				w = do(h, http.MethodPost, base+"/submit", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[map[string]any](w)["state"], ShouldEqual, "submitted")

				Convey("Then saving again is a 409 naming the transition and state", func() {
					w := do(h, http.MethodPut, base+"/record", `{"scores":{"leadership":1}}`)
					So(w.Code, ShouldEqual, http.StatusConflict)
					e := decode[apiError](w)
					So(e.Code, ShouldEqual, "lifecycle_violation")
					So(e.Transition, ShouldEqual, "save")
					So(e.State, ShouldEqual, "submitted")
				})

				Convey("Then an empty resubmit re-stamps while an empty draft conflicts", func() {
					w := do(h, http.MethodPost, base+"/submit", "")
					So(w.Code, ShouldEqual, http.StatusOK)
					So(decode[map[string]any](w)["state"], ShouldEqual, "submitted")

					w = do(h, http.MethodPost, base+"/submit", `{}`)
					So(w.Code, ShouldEqual, http.StatusConflict)
					e := decode[apiError](w)
					So(e.Transition, ShouldEqual, "submit")
					So(e.State, ShouldEqual, "submitted")
				})

				Convey("Then reopen returns it to in_progress with the scores kept", func() {
					w := do(h, http.MethodPost, base+"/reopen", "")
					So(w.Code, ShouldEqual, http.StatusOK)
					r := decode[map[string]any](w)
					So(r["state"], ShouldEqual, "in_progress")
					So(r["total_score"], ShouldEqual, 18)
					So(r["submitted_at"], ShouldBeNil)
				})

				Convey("Then history is served", func() {
					w := do(h, http.MethodGet, base+"/history", "")
					So(w.Code, ShouldEqual, http.StatusOK)
				})
			})

			Convey("Then an out-of-range score is a 400 naming the field", func() {
				w := do(h, http.MethodPut, base+"/record", `{"scores":{"leadership":11}}`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				e := decode[apiError](w)
				So(e.Code, ShouldEqual, "validation_error")
				So(e.Field, ShouldContainSubstring, "leadership")
			})

			Convey("Then a malformed body is a 400", func() {
				w := do(h, http.MethodPut, base+"/record", `{"scores":`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[apiError](w).Code, ShouldEqual, "bad_request")
			})

			Convey("Then reopen before submission is a 409", func() {
				w := do(h, http.MethodPost, base+"/reopen", "")
				So(w.Code, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("When an unknown assignment is addressed", func() {
			for _, path := range []string{"/assignments/missing", "/assignments/missing/record", "/assignments/missing/history"} {
				So(do(h, http.MethodGet, path, "").Code, ShouldEqual, http.StatusNotFound)
			}
			So(do(h, http.MethodPost, "/assignments/missing/submit", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When creation is missing the assessor", func() {
			w := do(h, http.MethodPost, "/assignments", `{"subject":{"id":"u-1","kind":"individual"}}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode[apiError](w).Field, ShouldEqual, "assessor_id")
		})

		Convey("When the list filter names an unknown state", func() {
			So(do(h, http.MethodGet, "/assignments?state=archived", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestCatalogAndEvaluateRoutes(t *testing.T) {
	Convey("Given the API", t, func() {
		h := newHandler()

		Convey("When the group catalog is requested", func() {
			w := do(h, http.MethodGet, "/catalog/group", "")

			Convey("Then it lists ten criteria worth 200 in total", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				c := decode[map[string]any](w)
				So(c["max_total"], ShouldEqual, 200)
				So(len(c["criteria"].([]any)), ShouldEqual, 10)
			})
		})

		Convey("When an unknown kind is requested", func() {
			So(do(h, http.MethodGet, "/catalog/board", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a vector is evaluated", func() {
			w := do(h, http.MethodPost, "/evaluate", `{"kind":"individual","scores":{"leadership":8,"emotionalIntelligence":4}}`)

			Convey("Then the preview carries band and findings", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var ev service.Evaluation
				So(json.Unmarshal(w.Body.Bytes(), &ev), ShouldBeNil)
				So(ev.Summary.Total, ShouldEqual, 12)
				So(ev.Findings.Cautionary[0], ShouldContainSubstring, "directive or dismissive")
			})
		})
	})
}

func TestOperationalRoutes(t *testing.T) {
	Convey("Given the API", t, func() {
		h := newHandler()

		Convey("Then /healthz serves prometheus metrics", func() {
			do(h, http.MethodPost, "/assignments", createIndividual)
			w := do(h, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "verdict_")
		})

		Convey("Then /stats reports counts by state", func() {
			do(h, http.MethodPost, "/assignments", createIndividual)
			w := do(h, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			st := decode[service.Stats](w)
			So(st.Assignments, ShouldEqual, 1)
			So(st.ByState[model.NotStarted], ShouldEqual, 1)
		})

		Convey("Then every response carries a request id", func() {
			w := do(h, http.MethodGet, "/stats", "")
			So(w.Header().Get("X-Request-ID"), ShouldNotBeEmpty)

			req := httptest.NewRequest(http.MethodGet, "/stats", http.NoBody)
			req.Header.Set("X-Request-ID", "abc-123")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			So(rec.Header().Get("X-Request-ID"), ShouldEqual, "abc-123")
		})

		Convey("Then the docs are mounted", func() {
			So(do(h, http.MethodGet, "/openapi.yaml", "").Code, ShouldEqual, http.StatusOK)
			So(do(h, http.MethodGet, "/api-docs", "").Code, ShouldEqual, http.StatusOK)
			So(do(h, http.MethodGet, "/", "").Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestMiddleware(t *testing.T) {
	Convey("Given a rate limit of one request with no refill to speak of", t, func() {
		h := newHandler(api.WithRateLimit(0.001, 1))

		Convey("Then the second request is rejected with 429", func() {
			So(do(h, http.MethodGet, "/stats", "").Code, ShouldEqual, http.StatusOK)
			w := do(h, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(decode[apiError](w).Code, ShouldEqual, "rate_limited")
		})
	})

	Convey("Given a tiny body limit", t, func() {
		h := newHandler(api.WithMaxBodyBytes(16))

		Convey("Then a larger body is rejected with 413", func() {
			w := do(h, http.MethodPost, "/assignments", createIndividual)
			So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
		})
	})

	Convey("Given CORS origins", t, func() {
		h := newHandler(api.WithCORSOrigins("https://app.example.com"))

		Convey("Then a preflight from that origin is allowed", func() {
			req := httptest.NewRequest(http.MethodOptions, "/assignments", http.NoBody)
			req.Header.Set("Origin", "https://app.example.com")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "https://app.example.com")
		})
	})

	Convey("Given a store that refuses writes", t, func() {
		svc := service.New(service.WithRepository(brokenRepo{repository.NewMemoryStore()}))
		h := api.NewServer(svc).Routes(context.Background())

		Convey("Then creation fails with 503", func() {
			w := do(h, http.MethodPost, "/assignments", createIndividual)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(decode[apiError](w).Code, ShouldEqual, "persistence_error")
		})
	})
}

func TestRequestIDFromContext(t *testing.T) {
	Convey("Given a context without a request id", t, func() {
		So(api.RequestIDFromContext(context.Background()), ShouldBeEmpty)
	})

	Convey("Given a request passed through RequestID", t, func() {
		var seen string
		h := api.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			seen = api.RequestIDFromContext(r.Context())
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", bytes.NewReader(nil)))
		So(seen, ShouldNotBeEmpty)
	})
}
