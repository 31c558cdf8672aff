// Package server exposes the position API over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/fixedyield/internal/domain"
	"github.com/alanyoungcy/fixedyield/internal/server/handler"
	"github.com/alanyoungcy/fixedyield/internal/server/middleware"
	"github.com/alanyoungcy/fixedyield/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	// APIKey protects the operator endpoints; empty disables the check.
	APIKey     string
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates the endpoint handlers.
type Handlers struct {
	Health       *handler.HealthHandler
	Status       *handler.StatusHandler
	Positions    *handler.PositionHandler
	Accounts     *handler.AccountHandler
	Analytics    *handler.AnalyticsHandler
	Transactions *handler.TransactionHandler
	Refresh      *handler.RefreshHandler
}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers every route and builds the middleware chain.
// limiter and hub may be nil.
func NewServer(cfg Config, h Handlers, hub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	operator := middleware.Auth(cfg.APIKey)

	mux.HandleFunc("GET /api/health", h.Health.HealthCheck)
	mux.HandleFunc("GET /api/status", h.Status.GetStatus)

	mux.HandleFunc("GET /api/positions", h.Positions.ListPositions)
	mux.Handle("PUT /api/positions", operator(http.HandlerFunc(h.Positions.ReplacePositions)))

	mux.HandleFunc("GET /api/accounts/{address}/overview", h.Accounts.GetOverview)
	mux.HandleFunc("POST /api/accounts/{address}/next", h.Accounts.Next)
	mux.HandleFunc("POST /api/accounts/{address}/prev", h.Accounts.Prev)
	mux.HandleFunc("GET /api/accounts/{address}/withdraw-prompt", h.Accounts.GetWithdrawPrompt)
	mux.HandleFunc("PUT /api/accounts/{address}/withdraw-prompt", h.Accounts.SetWithdrawPrompt)

	mux.HandleFunc("GET /api/analytics", h.Analytics.GetAnalytics)
	mux.HandleFunc("GET /api/analytics/history", h.Analytics.GetHistory)

	mux.HandleFunc("POST /api/transactions", h.Transactions.RecordTransaction)
	mux.Handle("POST /api/refresh", operator(http.HandlerFunc(h.Refresh.Refresh)))

	if hub != nil {
		mux.HandleFunc("GET /ws", hub.HandleWS)
	}

	var chain http.Handler = mux
	chain = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow, logger)(chain)
	chain = middleware.Logging(logger)(chain)
	chain = middleware.CORS(cfg.CORSOrigins)(chain)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           chain,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger.With(slog.String("component", "http_server")),
	}
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens until the server fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
