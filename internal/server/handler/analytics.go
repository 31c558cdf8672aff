package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/fixedyield/internal/domain"
	"github.com/alanyoungcy/fixedyield/internal/position"
	"github.com/alanyoungcy/fixedyield/internal/service"
)

// AnalyticsService summarizes the current list and archived snapshots.
type AnalyticsService interface {
	Analytics() position.AnalyticsView
	History(ctx context.Context, day time.Time) ([]service.HistoryPoint, error)
}

// AnalyticsHandler serves the analytics tab.
type AnalyticsHandler struct {
	analytics AnalyticsService
	now       func() time.Time
	logger    *slog.Logger
}

// NewAnalyticsHandler creates an AnalyticsHandler.
func NewAnalyticsHandler(analytics AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, now: time.Now, logger: logHandler(logger, "analytics")}
}

// GetAnalytics summarizes every published position.
// GET /api/analytics
func (h *AnalyticsHandler) GetAnalytics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.analytics.Analytics())
}

// GetHistory summarizes the snapshots archived on ?day=YYYY-MM-DD, today by
// default.
// GET /api/analytics/history
func (h *AnalyticsHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	day := h.now().UTC()
	if v := r.URL.Query().Get("day"); v != "" {
		parsed, err := time.Parse(time.DateOnly, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "day must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	points, err := h.analytics.History(r.Context(), day)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "snapshot history is not configured")
			return
		}
		h.logger.ErrorContext(r.Context(), "load history failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"day":    day.Format(time.DateOnly),
		"points": points,
	})
}
