// Package notify pushes session events (entries, stops, settlements, order
// failures) to operator channels such as Telegram and Discord, with an event
// filter so operators receive only the alerts they care about.
package notify

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// eventTitles maps session event names to alert headlines. Unknown events
// fall back to the raw event name.
var eventTitles = map[string]string{
	"position_opened": "Position Opened",
	"stoploss":        "Stop-Loss Fired",
	"market_closed":   "Market Closed",
	"order_error":     "Order Error",
}

// sendTimeout bounds each delivery so a slow webhook cannot stall the
// session's poll loop.
const sendTimeout = 10 * time.Second

// Notifier dispatches session events to one or more Senders. Delivery is
// fire-and-forget: failures are logged, never surfaced to the trading loop.
type Notifier struct {
	senders []Sender
	events  map[string]bool // allowed event types; empty means all
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. Only
// events listed in events are forwarded; an empty list allows everything.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		e = strings.TrimSpace(e)
		if e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With("component", "notifier"),
	}
}

// Notify forwards the event to all senders if it passes the event filter.
// Delivery runs in the background on its own timeout, detached from the
// caller's context so an ending poll cycle does not cancel the send.
func (n *Notifier) Notify(_ context.Context, event, message string) {
	if len(n.senders) == 0 {
		return
	}
	if len(n.events) > 0 && !n.events[event] {
		n.logger.Debug("event filtered out", "event", event)
		return
	}

	title, ok := eventTitles[event]
	if !ok {
		title = event
	}

	go n.dispatch(event, title, message)
}

func (n *Notifier) dispatch(event, title, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.Error("sender failed",
				"sender", s.Name(), "event", event, "error", err)
			continue
		}
		n.logger.Debug("notification sent",
			"sender", s.Name(), "event", event)
	}
}
