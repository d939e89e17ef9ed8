// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	service "github.com/okian/verdict/internal/app"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats(ctx context.Context) (service.Stats, error)
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsProvider.GetStats(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "persistence_error", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
