package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/fixedyield/internal/domain"
)

// Run refreshes on every tick of interval and re-reads the transaction log
// whenever a new record is announced on the bus. It returns when ctx ends.
func (s *PositionService) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}

	var signals <-chan []byte
	if s.bus != nil {
		ch, err := s.bus.Subscribe(ctx, domain.ChannelTransactions)
		if err != nil {
			return fmt.Errorf("position_service: subscribe transactions: %w", err)
		}
		signals = ch
	}

	if err := s.Refresh(ctx); err != nil {
		s.logger.WarnContext(ctx, "initial refresh incomplete", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// Errors are logged and alerted inside Refresh.
			_ = s.Refresh(ctx)
		case _, ok := <-signals:
			if !ok {
				signals = nil
				continue
			}
			s.RefreshTransactions(ctx)
		}
	}
}

// Follow adopts the snapshots other replicas publish on the positions
// channel. It returns when ctx ends.
func (s *PositionService) Follow(ctx context.Context) error {
	if s.bus == nil {
		return errors.New("position_service: follow needs a signal bus")
	}
	if err := s.Warm(ctx); err != nil {
		s.logger.WarnContext(ctx, "warm from cache failed", slog.String("error", err.Error()))
	}

	ch, err := s.bus.Subscribe(ctx, domain.ChannelPositions)
	if err != nil {
		return fmt.Errorf("position_service: subscribe positions: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-ch:
			if !ok {
				return ctx.Err()
			}
			var snap domain.PositionSnapshot
			if err := json.Unmarshal(payload, &snap); err != nil {
				s.logger.WarnContext(ctx, "discarding malformed snapshot", slog.String("error", err.Error()))
				continue
			}
			s.Adopt(snap)
		}
	}
}

// RequestRefresh refreshes locally when a ledger is configured and otherwise
// asks the refreshing replica to re-read the transaction log. It reports
// whether the refresh ran locally.
func (s *PositionService) RequestRefresh(ctx context.Context) (bool, error) {
	if s.ledger != nil {
		return true, s.Refresh(ctx)
	}
	if s.bus == nil {
		return false, errors.New("position_service: no ledger or signal bus configured")
	}
	if err := s.bus.Publish(ctx, domain.ChannelTransactions, []byte(`{"reason":"refresh"}`)); err != nil {
		return false, fmt.Errorf("position_service: request refresh: %w", err)
	}
	return false, nil
}

// RunArchiver archives the published snapshot every interval. A nil
// archiver makes it wait for ctx.
func (s *PositionService) RunArchiver(ctx context.Context, interval time.Duration) error {
	if s.archiver == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			snap := s.Snapshot()
			if snap.ComputedAt.IsZero() {
				continue
			}
			if _, err := s.archiver.Archive(ctx, snap); err != nil {
				s.logger.ErrorContext(ctx, "archive snapshot failed", slog.String("error", err.Error()))
			}
		}
	}
}
