package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/fixedyield/internal/position"
)

// AccountService renders per-account views and tracks per-account UI state.
type AccountService interface {
	Overview(account string) position.OverviewView
	Next(account string) position.OverviewView
	Prev(account string) position.OverviewView
	ShowWithdrawPrompt(account string) bool
	SetShowWithdrawPrompt(account string, show bool)
}

// AccountHandler serves the overview card and withdraw prompt of one account.
type AccountHandler struct {
	accounts AccountService
	logger   *slog.Logger
}

// NewAccountHandler creates an AccountHandler.
func NewAccountHandler(accounts AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logHandler(logger, "accounts")}
}

// GetOverview renders the account's selected position.
// GET /api/accounts/{address}/overview
func (h *AccountHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	if addr, ok := accountParam(w, r); ok {
		writeJSON(w, http.StatusOK, h.accounts.Overview(addr))
	}
}

// Next selects the account's next position.
// POST /api/accounts/{address}/next
func (h *AccountHandler) Next(w http.ResponseWriter, r *http.Request) {
	if addr, ok := accountParam(w, r); ok {
		writeJSON(w, http.StatusOK, h.accounts.Next(addr))
	}
}

// Prev selects the account's previous position.
// POST /api/accounts/{address}/prev
func (h *AccountHandler) Prev(w http.ResponseWriter, r *http.Request) {
	if addr, ok := accountParam(w, r); ok {
		writeJSON(w, http.StatusOK, h.accounts.Prev(addr))
	}
}

type withdrawPromptBody struct {
	Show bool `json:"show"`
}

// GetWithdrawPrompt reports whether the withdraw prompt is raised.
// GET /api/accounts/{address}/withdraw-prompt
func (h *AccountHandler) GetWithdrawPrompt(w http.ResponseWriter, r *http.Request) {
	if addr, ok := accountParam(w, r); ok {
		writeJSON(w, http.StatusOK, withdrawPromptBody{Show: h.accounts.ShowWithdrawPrompt(addr)})
	}
}

// SetWithdrawPrompt raises or dismisses the withdraw prompt.
// PUT /api/accounts/{address}/withdraw-prompt
func (h *AccountHandler) SetWithdrawPrompt(w http.ResponseWriter, r *http.Request) {
	addr, ok := accountParam(w, r)
	if !ok {
		return
	}
	var body withdrawPromptBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.accounts.SetShowWithdrawPrompt(addr, body.Show)
	writeJSON(w, http.StatusOK, body)
}
