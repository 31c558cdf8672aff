package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/fixedyield/internal/domain"
)

// PositionLister reads and replaces the published position list.
type PositionLister interface {
	Positions() []domain.ActivePosition
	SetPositions(ctx context.Context, list []domain.ActivePosition)
}

// PositionHandler serves the derived position list.
type PositionHandler struct {
	positions PositionLister
	logger    *slog.Logger
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(positions PositionLister, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{positions: positions, logger: logHandler(logger, "positions")}
}

type positionsBody struct {
	Positions []domain.ActivePosition `json:"positions"`
}

// ListPositions returns every position, or only those of ?owner=.
// GET /api/positions
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	list := h.positions.Positions()
	if owner := r.URL.Query().Get("owner"); owner != "" {
		list = domain.FilterOwned(list, owner)
	}
	if list == nil {
		list = []domain.ActivePosition{}
	}
	writeJSON(w, http.StatusOK, positionsBody{Positions: list})
}

// ReplacePositions overwrites the published list until the next refresh.
// PUT /api/positions
func (h *PositionHandler) ReplacePositions(w http.ResponseWriter, r *http.Request) {
	var body positionsBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Positions == nil {
		body.Positions = []domain.ActivePosition{}
	}
	h.positions.SetPositions(r.Context(), body.Positions)
	h.logger.InfoContext(r.Context(), "positions replaced", slog.Int("positions", len(body.Positions)))
	writeJSON(w, http.StatusOK, body)
}
