package domain

import (
	"testing"
	"time"
)

func testWindow(openOffset time.Duration) MarketWindow {
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return NewMarketWindow(ResolvedMarket{Slug: "btc-updown-5m-1787918400"}, start, openOffset)
}

func TestRemainingToCloseBoundary(t *testing.T) {
	w := testWindow(0)

	cases := []struct {
		name       string
		now        time.Time
		remaining  time.Duration
		wantClosed bool
	}{
		{"at open", w.StartAt, MarketDuration, false},
		{"mid window", w.StartAt.Add(3 * time.Minute), 2 * time.Minute, false},
		{"one instant before close", w.CloseAt.Add(-time.Nanosecond), time.Nanosecond, false},
		{"exactly at close", w.CloseAt, 0, true},
		{"after close", w.CloseAt.Add(time.Second), 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			remaining, closed := w.RemainingToClose(tc.now)
			if closed != tc.wantClosed {
				t.Fatalf("closed = %v, want %v", closed, tc.wantClosed)
			}
			if remaining != tc.remaining {
				t.Fatalf("remaining = %v, want %v", remaining, tc.remaining)
			}
		})
	}
}

func TestRemainingToCloseDecreasesMonotonically(t *testing.T) {
	w := testWindow(0)

	prev := MarketDuration + time.Second
	for now := w.StartAt; now.Before(w.CloseAt); now = now.Add(13 * time.Second) {
		remaining, closed := w.RemainingToClose(now)
		if closed {
			t.Fatalf("closed before CloseAt at %v", now)
		}
		if remaining >= prev {
			t.Fatalf("remaining %v at %v did not decrease from %v", remaining, now, prev)
		}
		prev = remaining
	}
}

func TestRemainingToStrategyOpenBoundary(t *testing.T) {
	w := testWindow(30 * time.Second)

	if remaining, open := w.RemainingToStrategyOpen(w.StartAt); open || remaining != 30*time.Second {
		t.Fatalf("at market open: remaining = %v, open = %v", remaining, open)
	}
	if _, open := w.RemainingToStrategyOpen(w.StrategyOpenAt.Add(-time.Nanosecond)); open {
		t.Fatal("entry window open one instant before the offset elapsed")
	}
	if remaining, open := w.RemainingToStrategyOpen(w.StrategyOpenAt); !open || remaining != 0 {
		t.Fatalf("at offset: remaining = %v, open = %v", remaining, open)
	}
}

func TestNewMarketWindowDerivesTimestamps(t *testing.T) {
	w := testWindow(45 * time.Second)

	if got := w.CloseAt.Sub(w.StartAt); got != MarketDuration {
		t.Fatalf("close offset = %v, want %v", got, MarketDuration)
	}
	if got := w.StrategyCloseAt.Sub(w.StartAt); got != StrategyCloseOffset {
		t.Fatalf("strategy close offset = %v, want %v", got, StrategyCloseOffset)
	}
	if got := w.StrategyOpenAt.Sub(w.StartAt); got != 45*time.Second {
		t.Fatalf("strategy open offset = %v, want 45s", got)
	}
}
