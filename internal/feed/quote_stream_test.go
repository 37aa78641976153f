package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/kaiwenyuan/updownbot/internal/domain"
	"github.com/kaiwenyuan/updownbot/internal/platform/polymarket"
)

type fakeFeed struct {
	onBook      polymarket.BookHandler
	onLastTrade polymarket.LastTradeHandler
	subscribed  [][]string
	connected   bool
	closed      bool
}

func (f *fakeFeed) Connect(context.Context) error { f.connected = true; return nil }
func (f *fakeFeed) Close() error                  { f.closed = true; return nil }

func (f *fakeFeed) Subscribe(_ context.Context, assetIDs []string) error {
	f.subscribed = append(f.subscribed, assetIDs)
	return nil
}

func (f *fakeFeed) OnBook(h polymarket.BookHandler)           { f.onBook = h }
func (f *fakeFeed) OnLastTrade(h polymarket.LastTradeHandler) { f.onLastTrade = h }

type fakeFallback struct {
	snap  domain.QuoteSnapshot
	err   error
	calls int
}

func (f *fakeFallback) Quotes(context.Context, string, string) (domain.QuoteSnapshot, error) {
	f.calls++
	return f.snap, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStream(t *testing.T) (*QuoteStream, *fakeFeed, *fakeFallback, *time.Time) {
	t.Helper()
	ws := &fakeFeed{}
	fb := &fakeFallback{snap: domain.QuoteSnapshot{UpPrice: 0.5, DownPrice: 0.5}}
	s := NewQuoteStream(testLogger(), ws, fb, 5*time.Second)

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if err := s.Subscribe(context.Background(), "up", "down"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	return s, ws, fb, &now
}

func pushTrade(ws *fakeFeed, asset, price string) {
	ws.onLastTrade(polymarket.WSLastTradeMessage{
		EventType: "last_trade_price",
		AssetID:   asset,
		Price:     price,
	})
}

func pushBook(ws *fakeFeed, asset string, asks []polymarket.APIPriceLevel) {
	ws.onBook(polymarket.WSBookMessage{
		EventType: "book",
		AssetID:   asset,
		Asks:      asks,
	})
}

func TestQuotesFromStreamedState(t *testing.T) {
	s, ws, fb, _ := newStream(t)

	pushTrade(ws, "up", "0.46")
	pushTrade(ws, "down", "0.56")
	pushBook(ws, "up", []polymarket.APIPriceLevel{{Price: "0.47", Size: "120"}, {Price: "0.50", Size: "80"}})
	pushBook(ws, "down", []polymarket.APIPriceLevel{{Price: "0.57", Size: "200"}})

	snap, err := s.Quotes(context.Background(), "up", "down")
	if err != nil {
		t.Fatalf("quotes: %v", err)
	}
	if snap.UpPrice != 0.46 || snap.DownPrice != 0.56 {
		t.Fatalf("last trades = %v / %v", snap.UpPrice, snap.DownPrice)
	}
	if snap.UpBestAsk != 0.47 || snap.UpAskSize != 120 {
		t.Fatalf("up ask = %v x %v", snap.UpBestAsk, snap.UpAskSize)
	}
	if snap.DownBestAsk != 0.57 || snap.DownAskSize != 200 {
		t.Fatalf("down ask = %v x %v", snap.DownBestAsk, snap.DownAskSize)
	}
	if fb.calls != 0 {
		t.Fatalf("fallback used %d times with a fresh stream", fb.calls)
	}
}

func TestQuotesFallBackWhileWarmingUp(t *testing.T) {
	s, ws, fb, _ := newStream(t)

	pushTrade(ws, "up", "0.46") // down leg never arrives

	snap, err := s.Quotes(context.Background(), "up", "down")
	if err != nil {
		t.Fatalf("quotes: %v", err)
	}
	if fb.calls != 1 {
		t.Fatalf("fallback calls = %d, want 1", fb.calls)
	}
	if snap.UpPrice != 0.5 {
		t.Fatalf("snapshot did not come from the fallback: %+v", snap)
	}
}

func TestQuotesFallBackWhenStale(t *testing.T) {
	s, ws, fb, now := newStream(t)

	pushTrade(ws, "up", "0.46")
	pushTrade(ws, "down", "0.56")

	*now = now.Add(6 * time.Second) // past the 5s max age

	if _, err := s.Quotes(context.Background(), "up", "down"); err != nil {
		t.Fatalf("quotes: %v", err)
	}
	if fb.calls != 1 {
		t.Fatalf("fallback calls = %d, want 1", fb.calls)
	}
}

func TestQuotesNoFallbackConfigured(t *testing.T) {
	ws := &fakeFeed{}
	s := NewQuoteStream(testLogger(), ws, nil, 5*time.Second)

	_, err := s.Quotes(context.Background(), "up", "down")
	if !errors.Is(err, domain.ErrNoQuote) {
		t.Fatalf("err = %v, want ErrNoQuote", err)
	}
}

func TestRotationResubscribesAndResets(t *testing.T) {
	s, ws, fb, _ := newStream(t)

	pushTrade(ws, "up", "0.46")
	pushTrade(ws, "down", "0.56")

	// A read for the next window's tokens resubscribes on the spot and
	// serves this read from the fallback while the stream warms up.
	if _, err := s.Quotes(context.Background(), "up2", "down2"); err != nil {
		t.Fatalf("quotes: %v", err)
	}
	if fb.calls != 1 {
		t.Fatalf("fallback calls = %d, want 1", fb.calls)
	}
	if len(ws.subscribed) != 2 {
		t.Fatalf("subscriptions = %v", ws.subscribed)
	}
	last := ws.subscribed[len(ws.subscribed)-1]
	if len(last) != 2 || last[0] != "up2" || last[1] != "down2" {
		t.Fatalf("last subscription = %v", last)
	}

	// State from the previous window was dropped.
	pushTrade(ws, "up2", "0.51")
	pushTrade(ws, "down2", "0.48")
	snap, err := s.Quotes(context.Background(), "up2", "down2")
	if err != nil {
		t.Fatalf("quotes: %v", err)
	}
	if snap.UpPrice != 0.51 || snap.DownPrice != 0.48 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestMalformedMessagesIgnored(t *testing.T) {
	s, ws, fb, _ := newStream(t)

	// Missing asset, unparseable price, non-positive price, empty book.
	pushTrade(ws, "", "0.46")
	pushTrade(ws, "up", "bogus")
	pushTrade(ws, "up", "0")
	pushBook(ws, "up", nil)

	pushTrade(ws, "up", "0.46")
	pushTrade(ws, "down", "0.56")

	snap, err := s.Quotes(context.Background(), "up", "down")
	if err != nil {
		t.Fatalf("quotes: %v", err)
	}
	if snap.UpPrice != 0.46 || snap.DownPrice != 0.56 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if fb.calls != 0 {
		t.Fatalf("fallback calls = %d", fb.calls)
	}
}
