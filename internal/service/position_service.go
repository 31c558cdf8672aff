// Package service owns the derived position list: it refreshes the ledger
// and transaction log, reconciles them, publishes the result and tracks the
// per-account UI state built on top of it.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/fixedyield/internal/domain"
	"github.com/alanyoungcy/fixedyield/internal/notify"
	"github.com/alanyoungcy/fixedyield/internal/position"
	"github.com/alanyoungcy/fixedyield/internal/reconcile"
)

// Archiver persists position snapshots for the analytics history.
type Archiver interface {
	Archive(ctx context.Context, snap domain.PositionSnapshot) (bool, error)
	History(ctx context.Context, day time.Time) ([]domain.PositionSnapshot, error)
}

// UnlockEvent is published on the unlocks channel when a position's lock
// period runs out.
type UnlockEvent struct {
	ID         string    `json:"id"`
	Owner      string    `json:"owner"`
	Amount     string    `json:"amount"`
	UnlockedAt time.Time `json:"unlockedAt"`
}

// Status describes the freshness of the published list.
type Status struct {
	Positions         int        `json:"positions"`
	ComputedAt        time.Time  `json:"computedAt"`
	LastLedgerRefresh *time.Time `json:"lastLedgerRefresh,omitempty"`
	LastTxRefresh     *time.Time `json:"lastTxRefresh,omitempty"`
	LastError         string     `json:"lastError,omitempty"`
}

// PositionServiceConfig wires a PositionService. Only Ledger and
// Transactions are required for refreshing; a replica that only follows the
// bus may leave them nil.
type PositionServiceConfig struct {
	Ledger       domain.PositionLedger
	Transactions domain.TransactionStore
	Cache        domain.PositionCache
	Bus          domain.SignalBus
	Audit        domain.AuditStore
	Notifier     *notify.Notifier
	Archiver     Archiver
	Window       time.Duration
	PersistLinks bool
	Now          func() time.Time
	Logger       *slog.Logger
}

// PositionService holds the latest ledger and transaction views and the
// ActivePosition list derived from them.
type PositionService struct {
	ledger       domain.PositionLedger
	txs          domain.TransactionStore
	cache        domain.PositionCache
	bus          domain.SignalBus
	audit        domain.AuditStore
	notifier     *notify.Notifier
	archiver     Archiver
	window       time.Duration
	persistLinks bool
	now          func() time.Time
	logger       *slog.Logger

	// pass serializes refresh passes including their side effects.
	pass sync.Mutex

	mu         sync.RWMutex
	raw        []domain.RawPosition
	records    []domain.TransactionRecord
	positions  []domain.ActivePosition
	computedAt time.Time
	lastLedger time.Time
	lastTx     time.Time
	// ledgerErr and txErr hold the last failure of each source and are
	// cleared by its next successful read.
	ledgerErr string
	txErr     string
	links     map[string]string
	prompts   map[string]bool

	nav *position.Navigator
}

// NewPositionService creates a PositionService.
func NewPositionService(cfg PositionServiceConfig) *PositionService {
	window := cfg.Window
	if window <= 0 {
		window = reconcile.DefaultWindow
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &PositionService{
		ledger:       cfg.Ledger,
		txs:          cfg.Transactions,
		cache:        cfg.Cache,
		bus:          cfg.Bus,
		audit:        cfg.Audit,
		notifier:     cfg.Notifier,
		archiver:     cfg.Archiver,
		window:       window,
		persistLinks: cfg.PersistLinks,
		now:          now,
		logger:       logger.With(slog.String("component", "position_service")),
		positions:    []domain.ActivePosition{},
		prompts:      make(map[string]bool),
		nav:          position.NewNavigator(),
	}
}

// Refresh re-reads the ledger and the transaction log concurrently and runs
// one reconciliation pass over both.
func (s *PositionService) Refresh(ctx context.Context) error {
	var (
		raw     []domain.RawPosition
		records []domain.TransactionRecord
		lerr    error
		terr    error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, lerr = s.fetchLedger(gctx)
		return nil
	})
	g.Go(func() error {
		records, terr = s.fetchTransactions(gctx)
		return nil
	})
	_ = g.Wait()

	s.pass.Lock()
	defer s.pass.Unlock()

	s.mu.Lock()
	if lerr == nil {
		s.raw = raw
		s.lastLedger = s.now()
		s.ledgerErr = ""
	}
	s.records = records
	s.lastTx = s.now()
	if terr == nil {
		s.txErr = ""
	}
	s.mu.Unlock()

	s.recompute(ctx)
	return lerr
}

// RefreshLedger re-reads the ledger and recomputes. On failure the previous
// list stays published and the error is returned.
func (s *PositionService) RefreshLedger(ctx context.Context) error {
	raw, err := s.fetchLedger(ctx)
	if err != nil {
		return err
	}

	s.pass.Lock()
	defer s.pass.Unlock()

	s.mu.Lock()
	s.raw = raw
	s.lastLedger = s.now()
	s.ledgerErr = ""
	s.mu.Unlock()

	s.recompute(ctx)
	return nil
}

// RefreshTransactions re-reads the transaction log and recomputes. A failing
// log read counts as an empty log.
func (s *PositionService) RefreshTransactions(ctx context.Context) {
	records, err := s.fetchTransactions(ctx)

	s.pass.Lock()
	defer s.pass.Unlock()

	s.mu.Lock()
	s.records = records
	s.lastTx = s.now()
	if err == nil {
		s.txErr = ""
	}
	s.mu.Unlock()

	s.recompute(ctx)
}

func (s *PositionService) fetchLedger(ctx context.Context) ([]domain.RawPosition, error) {
	if s.ledger == nil {
		return nil, errors.New("position_service: no ledger configured")
	}
	raw, err := s.ledger.ActivePositions(ctx)
	if err != nil {
		err = fmt.Errorf("position_service: refresh ledger: %w", err)
		s.mu.Lock()
		s.ledgerErr = err.Error()
		s.mu.Unlock()
		s.logger.ErrorContext(ctx, "ledger refresh failed", slog.String("error", err.Error()))
		s.alert(ctx, notify.Event{
			Kind:    notify.EventRefreshFailed,
			Title:   "Ledger refresh failed",
			Message: err.Error(),
		})
		return nil, err
	}
	return raw, nil
}

// fetchTransactions returns the log, or nil plus the error when it cannot be
// read. Callers reconcile with the nil log either way.
func (s *PositionService) fetchTransactions(ctx context.Context) ([]domain.TransactionRecord, error) {
	if s.txs == nil {
		return nil, nil
	}
	records, err := s.txs.List(ctx)
	if err != nil {
		err = fmt.Errorf("position_service: refresh transactions: %w", err)
		s.mu.Lock()
		s.txErr = err.Error()
		s.mu.Unlock()
		s.logger.WarnContext(ctx, "transaction log unavailable, reconciling without it",
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return records, nil
}

// recompute derives a fresh list from the stored views and publishes it.
// The caller holds s.pass.
func (s *PositionService) recompute(ctx context.Context) {
	s.mu.Lock()
	now := s.now()
	next := reconcile.Derive(s.raw, s.records, now, s.window)
	unlocked := unlockedSince(s.positions, next)
	s.positions = next
	s.computedAt = now
	for _, p := range unlocked {
		s.prompts[strings.ToLower(p.PositionAddress)] = true
	}
	links := s.changedLinks(next)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "positions recomputed",
		slog.Int("positions", len(next)),
		slog.Int("unlocked", len(unlocked)),
	)

	s.publish(ctx, snap)
	for _, p := range unlocked {
		s.announceUnlock(ctx, p, now)
	}
	if len(links) > 0 && s.persistLinks && s.txs != nil {
		if err := s.txs.LinkPositions(ctx, links); err != nil {
			s.logger.WarnContext(ctx, "persist position links failed", slog.String("error", err.Error()))
		}
	}
}

// unlockedSince returns the positions of next that were Locked in prev and
// are Active now.
func unlockedSince(prev, next []domain.ActivePosition) []domain.ActivePosition {
	locked := make(map[string]bool, len(prev))
	for _, p := range prev {
		if p.Status == domain.PositionStatusLocked {
			locked[p.ID] = true
		}
	}
	var out []domain.ActivePosition
	for _, p := range next {
		if p.Status == domain.PositionStatusActive && locked[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

// changedLinks returns the hash to position pairings that differ from the
// last persisted set and remembers the new set. The caller holds s.mu.
func (s *PositionService) changedLinks(list []domain.ActivePosition) map[string]string {
	current := make(map[string]string)
	for _, p := range list {
		if p.TransactionHash != "" {
			current[p.TransactionHash] = p.ID
		}
	}
	changed := make(map[string]string)
	for hash, id := range current {
		if s.links[hash] != id {
			changed[hash] = id
		}
	}
	s.links = current
	return changed
}

func (s *PositionService) publish(ctx context.Context, snap domain.PositionSnapshot) {
	if s.cache != nil {
		if err := s.cache.Set(ctx, snap); err != nil {
			s.logger.WarnContext(ctx, "cache positions failed", slog.String("error", err.Error()))
		}
	}
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		s.logger.ErrorContext(ctx, "marshal snapshot failed", slog.String("error", err.Error()))
		return
	}
	if err := s.bus.Publish(ctx, domain.ChannelPositions, payload); err != nil {
		s.logger.WarnContext(ctx, "publish positions failed", slog.String("error", err.Error()))
	}
}

func (s *PositionService) announceUnlock(ctx context.Context, p domain.ActivePosition, at time.Time) {
	ev := UnlockEvent{ID: p.ID, Owner: p.PositionAddress, Amount: p.Amount.String(), UnlockedAt: at.UTC()}
	s.logger.InfoContext(ctx, "position unlocked",
		slog.String("id", ev.ID),
		slog.String("owner", ev.Owner),
	)

	if s.bus != nil {
		payload, _ := json.Marshal(ev)
		if err := s.bus.Publish(ctx, domain.ChannelUnlocks, payload); err != nil {
			s.logger.WarnContext(ctx, "publish unlock failed", slog.String("error", err.Error()))
		}
	}
	if s.audit != nil {
		if err := s.audit.Log(ctx, "position.unlocked", map[string]any{
			"id":    ev.ID,
			"owner": ev.Owner,
		}); err != nil {
			s.logger.WarnContext(ctx, "audit unlock failed", slog.String("error", err.Error()))
		}
	}
	s.alert(ctx, notify.Event{
		Kind:    notify.EventPositionUnlocked,
		Title:   "Position unlocked",
		Message: fmt.Sprintf("Position %s of %s (%s %s) can now be withdrawn", ev.ID, ev.Owner, ev.Amount, position.TokenSymbol),
	})
}

func (s *PositionService) alert(ctx context.Context, ev notify.Event) {
	if !s.notifier.Enabled(ev.Kind) {
		return
	}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "notification failed", slog.String("error", err.Error()))
	}
}

// Positions returns a copy of the published list.
func (s *PositionService) Positions() []domain.ActivePosition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ActivePosition{}, s.positions...)
}

// SetPositions replaces the published list. The next refresh pass
// overwrites it.
func (s *PositionService) SetPositions(ctx context.Context, list []domain.ActivePosition) {
	s.pass.Lock()
	defer s.pass.Unlock()

	s.mu.Lock()
	s.positions = append([]domain.ActivePosition{}, list...)
	s.computedAt = s.now()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(ctx, snap)
}

// Snapshot returns the published list with the time it was computed.
func (s *PositionService) Snapshot() domain.PositionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *PositionService) snapshotLocked() domain.PositionSnapshot {
	return domain.PositionSnapshot{
		Positions:  append([]domain.ActivePosition{}, s.positions...),
		ComputedAt: s.computedAt,
	}
}

// Adopt replaces the local list with a snapshot computed by another replica.
// Older snapshots are ignored.
func (s *PositionService) Adopt(snap domain.PositionSnapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.computedAt.IsZero() && snap.ComputedAt.Before(s.computedAt) {
		return false
	}
	prev := s.positions
	s.positions = append([]domain.ActivePosition{}, snap.Positions...)
	s.computedAt = snap.ComputedAt
	for _, p := range unlockedSince(prev, s.positions) {
		s.prompts[strings.ToLower(p.PositionAddress)] = true
	}
	return true
}

// Warm loads the cached snapshot, if any.
func (s *PositionService) Warm(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	snap, err := s.cache.Get(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("position_service: warm from cache: %w", err)
	}
	s.Adopt(snap)
	return nil
}

// Status reports the freshness of the published list.
func (s *PositionService) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		Positions:  len(s.positions),
		ComputedAt: s.computedAt,
		LastError:  lastError(s.ledgerErr, s.txErr),
	}
	if !s.lastLedger.IsZero() {
		t := s.lastLedger
		st.LastLedgerRefresh = &t
	}
	if !s.lastTx.IsZero() {
		t := s.lastTx
		st.LastTxRefresh = &t
	}
	return st
}

func lastError(errs ...string) string {
	var out []string
	for _, e := range errs {
		if e != "" {
			out = append(out, e)
		}
	}
	return strings.Join(out, "; ")
}

// ShowWithdrawPrompt reports whether the withdraw prompt is raised for
// account.
func (s *PositionService) ShowWithdrawPrompt(account string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prompts[strings.ToLower(account)]
}

// SetShowWithdrawPrompt raises or dismisses the withdraw prompt for account.
func (s *PositionService) SetShowWithdrawPrompt(account string, show bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := strings.ToLower(account)
	if show {
		s.prompts[k] = true
		return
	}
	delete(s.prompts, k)
}

// Overview renders the overview cards for the account's current position.
func (s *PositionService) Overview(account string) position.OverviewView {
	list := s.Positions()
	count := len(domain.FilterOwned(list, account))
	return position.Overview(list, account, s.nav.Current(account, count))
}

// Next advances the account to its next position and renders it.
func (s *PositionService) Next(account string) position.OverviewView {
	list := s.Positions()
	count := len(domain.FilterOwned(list, account))
	return position.Overview(list, account, s.nav.Next(account, count))
}

// Prev steps the account back to its previous position and renders it.
func (s *PositionService) Prev(account string) position.OverviewView {
	list := s.Positions()
	count := len(domain.FilterOwned(list, account))
	return position.Overview(list, account, s.nav.Prev(account, count))
}

// Analytics summarizes the published list.
func (s *PositionService) Analytics() position.AnalyticsView {
	return position.Analyze(s.Positions())
}

// History summarizes every snapshot archived on day.
func (s *PositionService) History(ctx context.Context, day time.Time) ([]HistoryPoint, error) {
	if s.archiver == nil {
		return nil, fmt.Errorf("position_service: history: %w", domain.ErrNotFound)
	}
	snaps, err := s.archiver.History(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("position_service: history: %w", err)
	}
	out := make([]HistoryPoint, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, HistoryPoint{At: snap.ComputedAt, Analytics: position.Analyze(snap.Positions)})
	}
	return out, nil
}

// HistoryPoint is the analytics of one archived snapshot.
type HistoryPoint struct {
	At        time.Time              `json:"at"`
	Analytics position.AnalyticsView `json:"analytics"`
}
