package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// Refresher triggers a reconciliation pass.
type Refresher interface {
	RequestRefresh(ctx context.Context) (bool, error)
}

// RefreshHandler serves the manual refresh trigger.
type RefreshHandler struct {
	refresher Refresher
	logger    *slog.Logger
}

// NewRefreshHandler creates a RefreshHandler.
func NewRefreshHandler(refresher Refresher, logger *slog.Logger) *RefreshHandler {
	return &RefreshHandler{refresher: refresher, logger: logHandler(logger, "refresh")}
}

// Refresh runs a pass locally (200) or hands it to the refreshing replica
// (202).
// POST /api/refresh
func (h *RefreshHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	local, err := h.refresher.RequestRefresh(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "refresh failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "refresh failed")
		return
	}
	if !local {
		writeJSON(w, http.StatusAccepted, map[string]bool{"queued": true})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"refreshed": true})
}
