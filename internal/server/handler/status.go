package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/fixedyield/internal/service"
)

// StatusSource reports the freshness of the published list.
type StatusSource interface {
	Status() service.Status
}

// StatusHandler serves the backend status for the dashboard.
type StatusHandler struct {
	mode      string
	startedAt time.Time
	source    StatusSource
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(mode string, startedAt time.Time, source StatusSource) *StatusHandler {
	return &StatusHandler{mode: mode, startedAt: startedAt, source: source}
}

// GetStatus responds with the run mode, uptime and refresh state.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":          h.mode,
		"uptimeSeconds": int64(time.Since(h.startedAt).Seconds()),
		"positions":     h.source.Status(),
	})
}
