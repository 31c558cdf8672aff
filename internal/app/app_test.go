package app

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/fixedyield/internal/config"
	"github.com/alanyoungcy/fixedyield/internal/domain"
)

func TestPositionServiceWithoutArchiver(t *testing.T) {
	cfg := config.Defaults()
	a := New(&cfg, slog.Default())

	svc := a.positionService(&Dependencies{})
	if _, err := svc.History(context.Background(), time.Now()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("History without archiver: err = %v, want ErrNotFound", err)
	}
}
