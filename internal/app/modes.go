package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/fixedyield/internal/server"
	"github.com/alanyoungcy/fixedyield/internal/server/handler"
	"github.com/alanyoungcy/fixedyield/internal/server/ws"
	"github.com/alanyoungcy/fixedyield/internal/service"
)

const shutdownTimeout = 10 * time.Second

// positionService builds the PositionService for deps. Without a ledger it
// can only follow snapshots published by a refreshing replica.
func (a *App) positionService(deps *Dependencies) *service.PositionService {
	cfg := service.PositionServiceConfig{
		Ledger:       deps.Ledger,
		Transactions: deps.Transactions,
		Cache:        deps.Cache,
		Bus:          deps.Bus,
		Audit:        deps.Audit,
		Notifier:     deps.Notifier,
		Window:       a.cfg.Sync.MatchWindow.Duration,
		PersistLinks: a.cfg.Sync.PersistLinks,
		Logger:       a.logger,
	}
	// Assigning a nil *SnapshotArchiver would make a non-nil interface.
	if deps.Archiver != nil {
		cfg.Archiver = deps.Archiver
	}
	return service.NewPositionService(cfg)
}

// ServerMode serves the API from the snapshots a sync replica publishes.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	positions := a.positionService(deps)

	g.Go(func() error {
		return positions.Follow(ctx)
	})
	a.startHTTPServer(ctx, g, deps, positions)

	return g.Wait()
}

// SyncMode refreshes and reconciles on a timer, publishes the derived list
// and archives snapshots. It serves no HTTP.
func (a *App) SyncMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting sync mode",
		slog.Duration("interval", a.cfg.Sync.Interval.Duration),
		slog.Bool("archive", deps.Archiver != nil),
	)

	g, ctx := errgroup.WithContext(ctx)
	positions := a.positionService(deps)
	a.startRefresh(ctx, g, positions)

	return g.Wait()
}

// FullMode refreshes and serves from one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	positions := a.positionService(deps)
	a.startRefresh(ctx, g, positions)
	a.startHTTPServer(ctx, g, deps, positions)

	return g.Wait()
}

func (a *App) startRefresh(ctx context.Context, g *errgroup.Group, positions *service.PositionService) {
	g.Go(func() error {
		return positions.Run(ctx, a.cfg.Sync.Interval.Duration)
	})
	g.Go(func() error {
		return positions.RunArchiver(ctx, a.cfg.S3.ArchiveInterval.Duration)
	})
}

// startHTTPServer registers the API and the WebSocket hub on g. The server
// is shut down when ctx ends.
func (a *App) startHTTPServer(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	positions *service.PositionService,
) {
	transactions := service.NewTransactionService(
		deps.Transactions, deps.Bus, deps.Audit, a.cfg.Server.RequireSignature, a.logger,
	)

	hub := ws.NewHub(deps.Bus, positions, a.cfg.Server.CORSOrigins, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, server.Handlers{
		Health:       handler.NewHealthHandler(deps.Checks, a.logger),
		Status:       handler.NewStatusHandler(a.cfg.Mode, time.Now().UTC(), positions),
		Positions:    handler.NewPositionHandler(positions, a.logger),
		Accounts:     handler.NewAccountHandler(positions, a.logger),
		Analytics:    handler.NewAnalyticsHandler(positions, a.logger),
		Transactions: handler.NewTransactionHandler(transactions, a.logger),
		Refresh:      handler.NewRefreshHandler(positions, a.logger),
	}, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
