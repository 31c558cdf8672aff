package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alanyoungcy/fixedyield/internal/notify"
)

type recordingSender struct {
	name  string
	err   error
	calls []string
}

func (s *recordingSender) Send(_ context.Context, title, _ string) error {
	s.calls = append(s.calls, title)
	return s.err
}

func (s *recordingSender) Name() string { return s.name }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifierFiltersByKind(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := notify.NewNotifier([]notify.Sender{s}, []string{" position_unlocked "}, quietLogger())

	ctx := context.Background()
	if err := n.Notify(ctx, notify.Event{Kind: notify.EventRefreshFailed, Title: "dropped"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if err := n.Notify(ctx, notify.Event{Kind: notify.EventPositionUnlocked, Title: "kept"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(s.calls) != 1 || s.calls[0] != "kept" {
		t.Errorf("calls: got %v, want [kept]", s.calls)
	}
}

func TestNotifierEmptyAllowListPassesAll(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := notify.NewNotifier([]notify.Sender{s}, nil, quietLogger())
	_ = n.Notify(context.Background(), notify.Event{Kind: "anything", Title: "a"})
	if len(s.calls) != 1 {
		t.Errorf("calls: got %d, want 1", len(s.calls))
	}
}

func TestNotifierContinuesAfterFailure(t *testing.T) {
	boom := errors.New("boom")
	bad := &recordingSender{name: "bad", err: boom}
	good := &recordingSender{name: "good"}
	n := notify.NewNotifier([]notify.Sender{bad, good}, nil, quietLogger())

	err := n.Notify(context.Background(), notify.Event{Kind: notify.EventRefreshFailed, Title: "t"})
	if !errors.Is(err, boom) {
		t.Errorf("error: got %v, want wrapping boom", err)
	}
	if len(good.calls) != 1 {
		t.Errorf("good sender calls: got %d, want 1", len(good.calls))
	}
}

func TestNilNotifierIsDisabled(t *testing.T) {
	var n *notify.Notifier
	if n.Enabled(notify.EventPositionUnlocked) {
		t.Error("nil notifier reports enabled")
	}
}

func TestTelegramSender(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := notify.NewTelegramSender("TOKEN", "42").WithBaseURL(srv.URL + "/")
	if err := s.Send(context.Background(), "Unlocked", "position 7"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotPath != "/botTOKEN/sendMessage" {
		t.Errorf("path: got %s, want /botTOKEN/sendMessage", gotPath)
	}
	if gotBody["chat_id"] != "42" || gotBody["text"] != "*Unlocked*\nposition 7" {
		t.Errorf("body: got %v", gotBody)
	}
}

func TestDiscordSenderRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := notify.NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	if err == nil || !strings.Contains(err.Error(), "unexpected status 400") {
		t.Errorf("error: got %v, want unexpected status 400", err)
	}
}
