// Package site serves the embedded landing page.
package site

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Register mounts the landing page at / on r.
func Register(_ context.Context, r chi.Router) {
	if r == nil {
		panic("router is nil")
	}
	h := NewRootHandler()
	r.Get("/", h.HandleRoot)
	r.Get("/index.html", h.HandleRoot)
}

// RootHandler serves the landing page.
type RootHandler struct {
	files http.Handler
}

// NewRootHandler creates a new root handler.
func NewRootHandler() *RootHandler {
	return &RootHandler{files: http.FileServer(FS())}
}

// HandleRoot handles GET /.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	// FileServer redirects /index.html to /, so always ask for the directory.
	req := r.Clone(r.Context())
	req.URL.Path = "/"
	h.files.ServeHTTP(w, req)
}
