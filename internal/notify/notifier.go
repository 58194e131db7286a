// Package notify fans alerts out to chat channels (Telegram, Discord). The
// record service uses it to announce every saved valid arbitrage.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/surebet/internal/domain"
	"github.com/alanyoungcy/surebet/internal/numeric"
)

// Event names accepted by Notify.
const (
	EventArbitrageSaved = "arbitrage.saved"
	EventExportDone     = "export.done"
)

// Sender delivers one message to one channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier dispatches to every sender, filtered by event name.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier. An empty events list allows every event.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether any sender is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && len(n.senders) > 0
}

// Notify sends to all senders when event passes the filter. One failing
// sender does not stop delivery to the others.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if !n.Enabled() {
		return nil
	}
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", event))
		return nil
	}

	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("event", event),
		)
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %w", errors.Join(errs...))
	}
	return nil
}

// RecordMessage renders a saved record as a notification title and body.
func RecordMessage(rec domain.ArbitrageRecord) (title, message string) {
	title = "Surebet " + numeric.FormatPercent(rec.Metrics.ProfitPercentage)

	var b strings.Builder
	if rec.Match.Team1 != "" || rec.Match.Team2 != "" {
		fmt.Fprintf(&b, "%s x %s", rec.Match.Team1, rec.Match.Team2)
		if rec.Match.Sport != "" {
			fmt.Fprintf(&b, " (%s)", rec.Match.Sport)
		}
		b.WriteByte('\n')
	}
	for _, bm := range rec.Bookmakers {
		fmt.Fprintf(&b, "%s %s @ %.2f: %s\n", bm.Name, bm.BetType, bm.Odds, numeric.FormatCurrency(bm.Stake))
	}
	fmt.Fprintf(&b, "Stake %s, profit %s",
		numeric.FormatCurrency(rec.Metrics.TotalStake),
		numeric.FormatCurrency(rec.Metrics.TotalProfit),
	)
	return title, b.String()
}
