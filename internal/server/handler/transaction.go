package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/fixedyield/internal/domain"
	"github.com/alanyoungcy/fixedyield/internal/service"
)

// Recorder stores stake transactions reported by the frontend.
type Recorder interface {
	Record(ctx context.Context, req service.RecordRequest) (domain.TransactionRecord, error)
}

// TransactionHandler serves the transaction log intake.
type TransactionHandler struct {
	recorder Recorder
	logger   *slog.Logger
}

// NewTransactionHandler creates a TransactionHandler.
func NewTransactionHandler(recorder Recorder, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{recorder: recorder, logger: logHandler(logger, "transactions")}
}

type recordResponse struct {
	ID              int64     `json:"id"`
	Owner           string    `json:"owner"`
	Amount          string    `json:"amount"`
	LockDuration    *int64    `json:"lockDuration,omitempty"`
	TransactionHash string    `json:"transactionHash"`
	CreatedAt       time.Time `json:"createdAt"`
}

// RecordTransaction validates and stores one stake transaction.
// POST /api/transactions
func (h *TransactionHandler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req service.RecordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.recorder.Record(r.Context(), req)
	if err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "record transaction failed", slog.String("error", err.Error()))
			writeError(w, code, "failed to record transaction")
			return
		}
		writeError(w, code, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, recordResponse{
		ID:              rec.ID,
		Owner:           rec.Owner,
		Amount:          rec.Amount.String(),
		LockDuration:    rec.LockDuration,
		TransactionHash: rec.TransactionHash,
		CreatedAt:       rec.CreatedAt,
	})
}
