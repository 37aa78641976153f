package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type delivery struct {
	title   string
	message string
}

type fakeSender struct {
	name string
	err  error
	got  chan delivery
}

func newFakeSender(name string) *fakeSender {
	return &fakeSender{name: name, got: make(chan delivery, 8)}
}

func (f *fakeSender) Send(_ context.Context, title, message string) error {
	f.got <- delivery{title: title, message: message}
	return f.err
}

func (f *fakeSender) Name() string { return f.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitDelivery(t *testing.T, s *fakeSender) delivery {
	t.Helper()
	select {
	case d := <-s.got:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery arrived")
		return delivery{}
	}
}

func assertNoDelivery(t *testing.T, s *fakeSender) {
	t.Helper()
	select {
	case d := <-s.got:
		t.Fatalf("unexpected delivery %+v", d)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNotifyDeliversToAllSenders(t *testing.T) {
	tg := newFakeSender("telegram")
	dc := newFakeSender("discord")
	n := NewNotifier([]Sender{tg, dc}, nil, testLogger())

	n.Notify(context.Background(), "stoploss", "btc UP stop at 0.35")

	for _, s := range []*fakeSender{tg, dc} {
		d := waitDelivery(t, s)
		if d.title != "Stop-Loss Fired" {
			t.Fatalf("%s title = %q", s.name, d.title)
		}
		if d.message != "btc UP stop at 0.35" {
			t.Fatalf("%s message = %q", s.name, d.message)
		}
	}
}

func TestNotifyAppliesEventFilter(t *testing.T) {
	s := newFakeSender("telegram")
	n := NewNotifier([]Sender{s}, []string{"order_error"}, testLogger())

	n.Notify(context.Background(), "market_closed", "settled")
	assertNoDelivery(t, s)

	n.Notify(context.Background(), "order_error", "rejected")
	if d := waitDelivery(t, s); d.title != "Order Error" {
		t.Fatalf("title = %q", d.title)
	}
}

func TestNotifyUnknownEventUsesRawName(t *testing.T) {
	s := newFakeSender("discord")
	n := NewNotifier([]Sender{s}, nil, testLogger())

	n.Notify(context.Background(), "heartbeat", "still alive")
	if d := waitDelivery(t, s); d.title != "heartbeat" {
		t.Fatalf("title = %q", d.title)
	}
}

func TestNotifySenderFailureDoesNotBlockOthers(t *testing.T) {
	failing := newFakeSender("telegram")
	failing.err = errors.New("api down")
	ok := newFakeSender("discord")
	n := NewNotifier([]Sender{failing, ok}, nil, testLogger())

	n.Notify(context.Background(), "position_opened", "btc UP 50 @ 0.46")

	waitDelivery(t, failing)
	if d := waitDelivery(t, ok); d.title != "Position Opened" {
		t.Fatalf("title = %q", d.title)
	}
}
