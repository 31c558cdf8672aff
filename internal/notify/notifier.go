// Package notify fans operator alerts out to chat channels, filtered by
// event kind.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Event kinds.
const (
	EventPositionUnlocked = "position_unlocked"
	EventRefreshFailed    = "refresh_failed"
)

// Event is one alert.
type Event struct {
	Kind    string
	Title   string
	Message string
}

// Sender delivers a rendered alert to one channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier dispatches events to every sender. When a kind allow-list is
// configured, events outside it are dropped.
type Notifier struct {
	senders []Sender
	allowed map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier. An empty kinds list allows every event.
func NewNotifier(senders []Sender, kinds []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		if k = strings.TrimSpace(k); k != "" {
			allowed[k] = true
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		senders: senders,
		allowed: allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether events of kind would reach any sender.
func (n *Notifier) Enabled(kind string) bool {
	if n == nil || len(n.senders) == 0 {
		return false
	}
	return len(n.allowed) == 0 || n.allowed[kind]
}

// Notify sends ev to every sender. A failing sender does not stop delivery
// to the rest; their errors are joined.
func (n *Notifier) Notify(ctx context.Context, ev Event) error {
	if !n.Enabled(ev.Kind) {
		return nil
	}

	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, ev.Title, ev.Message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("event", ev.Kind),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("event", ev.Kind),
		)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}
