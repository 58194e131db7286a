package notify

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

	"github.com/alanyoungcy/surebet/internal/domain"
)

type recordingSender struct {
	name  string
	err   error
	calls int
}

func (r *recordingSender) Send(context.Context, string, string) error {
	r.calls++
	return r.err
}

func (r *recordingSender) Name() string { return r.name }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifierFilter(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, []string{EventArbitrageSaved}, discardLogger())

	if err := n.Notify(context.Background(), EventExportDone, "t", "m"); err != nil {
		t.Fatal(err)
	}
	if s.calls != 0 {
		t.Errorf("filtered event delivered %d times", s.calls)
	}
	if err := n.Notify(context.Background(), EventArbitrageSaved, "t", "m"); err != nil {
		t.Fatal(err)
	}
	if s.calls != 1 {
		t.Errorf("calls = %d, want 1", s.calls)
	}
}

func TestNotifierContinuesAfterFailure(t *testing.T) {
	boom := errors.New("boom")
	bad := &recordingSender{name: "bad", err: boom}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, discardLogger())

	err := n.Notify(context.Background(), EventArbitrageSaved, "t", "m")
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapping boom", err)
	}
	if good.calls != 1 {
		t.Errorf("good sender calls = %d, want 1", good.calls)
	}
}

func TestNotifierDisabled(t *testing.T) {
	var n *Notifier
	if n.Enabled() {
		t.Error("nil notifier reports enabled")
	}
	if err := n.Notify(context.Background(), EventArbitrageSaved, "t", "m"); err != nil {
		t.Errorf("nil notifier: %v", err)
	}
}

func TestTelegramSender(t *testing.T) {
	var got map[string]string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewTelegramSender(srv.URL, "TOKEN", "42")
	if err := s.Send(context.Background(), "Surebet", "body"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if path != "/botTOKEN/sendMessage" {
		t.Errorf("path = %q", path)
	}
	if got["chat_id"] != "42" || got["text"] != "*Surebet*\nbody" {
		t.Errorf("payload = %v", got)
	}
}

func TestDiscordSenderStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid webhook", http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("err = %v, want status 401", err)
	}
}

func TestRecordMessage(t *testing.T) {
	rec := domain.ArbitrageRecord{
		Match: domain.Match{Team1: "Flamengo", Team2: "Palmeiras", Sport: "Futebol"},
		Bookmakers: []domain.Bookmaker{
			{Name: "Bet365", Odds: 2.1, BetType: "1", Stake: 1758.48},
		},
		Metrics: domain.Metrics{ProfitPercentage: 3.04, TotalStake: 3200, TotalProfit: 97.28},
	}
	title, msg := RecordMessage(rec)
	if title != "Surebet 3,04%" {
		t.Errorf("title = %q", title)
	}
	for _, want := range []string{"Flamengo x Palmeiras (Futebol)", "Bet365 1 @ 2.10: R$ 1.758,48", "Stake R$ 3.200,00"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}
