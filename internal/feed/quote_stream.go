// Package feed maintains a live quote view from the CLOB market data
// WebSocket, with a REST fallback when the stream goes quiet.
package feed

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/kaiwenyuan/updownbot/internal/domain"
	"github.com/kaiwenyuan/updownbot/internal/platform/polymarket"
)

// marketFeed is the subset of the WebSocket client the stream drives.
type marketFeed interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, assetIDs []string) error
	Close() error
	OnBook(polymarket.BookHandler)
	OnLastTrade(polymarket.LastTradeHandler)
}

// legState is the latest streamed view of one outcome token.
type legState struct {
	lastTrade float64
	bestAsk   float64
	askSize   float64
	updatedAt time.Time
}

// QuoteStream implements domain.QuoteSource from streamed book and
// last-trade messages. A leg with no update inside maxAge is treated as
// stale and the whole read falls back to the REST source, so the session
// never trades on a frozen stream.
type QuoteStream struct {
	log      *slog.Logger
	ws       marketFeed
	fallback domain.QuoteSource
	maxAge   time.Duration
	now      func() time.Time

	mu      sync.RWMutex
	legs    map[string]legState
	subUp   string
	subDown string
}

// NewQuoteStream wires handlers into ws but does not connect; call Start.
// fallback serves reads while the stream warms up or goes stale.
func NewQuoteStream(log *slog.Logger, ws marketFeed, fallback domain.QuoteSource, maxAge time.Duration) *QuoteStream {
	s := &QuoteStream{
		log:      log.With("component", "quote_stream"),
		ws:       ws,
		fallback: fallback,
		maxAge:   maxAge,
		now:      time.Now,
		legs:     make(map[string]legState),
	}
	ws.OnBook(s.handleBook)
	ws.OnLastTrade(s.handleLastTrade)
	return s
}

// Start opens the WebSocket connection.
func (s *QuoteStream) Start(ctx context.Context) error {
	return s.ws.Connect(ctx)
}

// Close tears down the stream.
func (s *QuoteStream) Close() error {
	return s.ws.Close()
}

// Subscribe switches the stream to a new pair of outcome tokens, dropping
// state from the previous window.
func (s *QuoteStream) Subscribe(ctx context.Context, upTokenID, downTokenID string) error {
	s.mu.Lock()
	s.legs = make(map[string]legState, 2)
	s.subUp, s.subDown = upTokenID, downTokenID
	s.mu.Unlock()

	return s.ws.Subscribe(ctx, []string{upTokenID, downTokenID})
}

// Quotes assembles a snapshot for the two legs from streamed state. A read
// for a pair the stream is not yet subscribed to (the session just rotated
// windows) triggers the resubscription itself. If either leg is missing or
// older than maxAge the read is served by the REST fallback instead.
func (s *QuoteStream) Quotes(ctx context.Context, upTokenID, downTokenID string) (domain.QuoteSnapshot, error) {
	now := s.now()

	s.mu.RLock()
	subscribed := s.subUp == upTokenID && s.subDown == downTokenID
	up, upOK := s.legs[upTokenID]
	down, downOK := s.legs[downTokenID]
	s.mu.RUnlock()

	if !subscribed {
		if err := s.Subscribe(ctx, upTokenID, downTokenID); err != nil {
			s.log.Warn("stream subscription failed", "error", err)
		}
		upOK, downOK = false, false
	}

	fresh := func(l legState, ok bool) bool {
		return ok && l.lastTrade > 0 && now.Sub(l.updatedAt) <= s.maxAge
	}

	if !fresh(up, upOK) || !fresh(down, downOK) {
		if s.fallback == nil {
			return domain.QuoteSnapshot{}, domain.ErrNoQuote
		}
		s.log.Debug("stream stale, serving quotes from rest fallback",
			"up_fresh", fresh(up, upOK), "down_fresh", fresh(down, downOK))
		return s.fallback.Quotes(ctx, upTokenID, downTokenID)
	}

	at := up.updatedAt
	if down.updatedAt.Before(at) {
		at = down.updatedAt
	}

	return domain.QuoteSnapshot{
		UpPrice:     up.lastTrade,
		DownPrice:   down.lastTrade,
		UpBestAsk:   up.bestAsk,
		DownBestAsk: down.bestAsk,
		UpAskSize:   up.askSize,
		DownAskSize: down.askSize,
		At:          at,
	}, nil
}

func (s *QuoteStream) handleBook(msg polymarket.WSBookMessage) {
	if msg.AssetID == "" {
		return
	}
	book := polymarket.APIBook{AssetID: msg.AssetID, Asks: msg.Asks}
	price, size := book.BestAsk()
	if price <= 0 {
		return
	}

	s.mu.Lock()
	leg := s.legs[msg.AssetID]
	leg.bestAsk = price
	leg.askSize = size
	leg.updatedAt = s.now()
	s.legs[msg.AssetID] = leg
	s.mu.Unlock()
}

func (s *QuoteStream) handleLastTrade(msg polymarket.WSLastTradeMessage) {
	if msg.AssetID == "" {
		return
	}
	price, err := strconv.ParseFloat(msg.Price, 64)
	if err != nil || price <= 0 {
		return
	}

	s.mu.Lock()
	leg := s.legs[msg.AssetID]
	leg.lastTrade = price
	leg.updatedAt = s.now()
	s.legs[msg.AssetID] = leg
	s.mu.Unlock()
}
