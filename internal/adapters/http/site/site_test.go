package site

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSiteHandler(t *testing.T) {
	Convey("Given a router with the site registered", t, func() {
		r := chi.NewRouter()
		Register(context.Background(), r)

		for _, path := range []string{"/", "/index.html"} {
			Convey("GET "+path+" serves the landing page", func() {
				w := httptest.NewRecorder()
				r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
				So(w.Body.String(), ShouldContainSubstring, "/api-docs")
			})
		}
	})

	Convey("Register panics on a nil router", t, func() {
		So(func() { Register(context.Background(), nil) }, ShouldPanic)
	})
}
