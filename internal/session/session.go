// Package session drives one symbol's 5-minute up/down markets: it resolves
// the active market window, polls quotes, evaluates entries, tracks the open
// position and its stop-loss, and rotates to the next window when the
// current one settles.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kaiwenyuan/updownbot/internal/domain"
	"github.com/kaiwenyuan/updownbot/internal/ledger"
	"github.com/kaiwenyuan/updownbot/internal/market"
	"github.com/kaiwenyuan/updownbot/internal/strategy"
)

// State is the session's position in its lifecycle. One session holds
// exactly one state at a time; transitions happen only inside Step.
type State string

const (
	StateAwaitingWindow State = "AWAITING_WINDOW"
	StateScanning       State = "SCANNING"
	StatePositionOpen   State = "POSITION_OPEN"
	StateStopped        State = "STOPPED"
	StateMarketClosed   State = "MARKET_CLOSED"
)

// nearResolvedPrice marks a leg as the settled winner when its last trade
// reaches this price at window close.
const nearResolvedPrice = 0.99

// Notifier pushes session events to external channels. A nil Notifier
// disables notifications.
type Notifier interface {
	Notify(ctx context.Context, event, message string)
}

// Config carries the session's trading knobs.
type Config struct {
	Symbol             string
	FallbackSlug       string // pin to a specific market instead of deriving from the clock
	PollInterval       time.Duration
	StrategyOpenOffset time.Duration
	StoplossMargin     float64
	BalanceSlack       float64
	MaxTradesPerMarket int           // 0 = unlimited
	MinTimeRemaining   time.Duration // 0 = disabled
	RotationBackoff    time.Duration
	ExecuteArbitrage   bool
	QuoteRetry         RetryPolicy
}

// Deps are the session's collaborators. Quotes, Backend, Resolver, and
// Evaluator are required; the rest are optional and nil-safe.
type Deps struct {
	Quotes    domain.QuoteSource
	Backend   domain.ExecutionBackend
	Resolver  domain.Resolver
	Evaluator *strategy.Evaluator
	Sinks     []domain.RecordSink
	ErrorLog  *ledger.ErrorLog
	Notifier  Notifier
	Publisher domain.QuotePublisher
	Clock     Clock
	Sleeper   Sleeper
}

// Session is the single mutable trading loop for one symbol. It is not safe
// for concurrent use; Run owns it for the life of the process.
type Session struct {
	log  *slog.Logger
	cfg  Config
	deps Deps

	clock   Clock
	sleeper Sleeper

	state    State
	window   domain.MarketWindow
	position *domain.OpenPosition
	counters domain.SessionCounters // current window only; reset on rotation
	totals   domain.SessionCounters // closed windows, folded in at rotation
	lastSnap domain.QuoteSnapshot
}

// New constructs a session. Clock and Sleeper default to the real
// implementations when unset.
func New(log *slog.Logger, cfg Config, deps Deps) *Session {
	if deps.Clock == nil {
		deps.Clock = RealClock{}
	}
	if deps.Sleeper == nil {
		deps.Sleeper = RealSleeper{}
	}
	return &Session{
		log:     log.With("component", "session", "symbol", cfg.Symbol),
		cfg:     cfg,
		deps:    deps,
		clock:   deps.Clock,
		sleeper: deps.Sleeper,
		state:   StateAwaitingWindow,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Counters returns a copy of the current window's counters.
func (s *Session) Counters() domain.SessionCounters { return s.counters }

// Totals returns the lifetime counters, current window included.
func (s *Session) Totals() domain.SessionCounters {
	t := s.totals
	t.Merge(s.counters)
	return t
}

// Window returns the current market window.
func (s *Session) Window() domain.MarketWindow { return s.window }

// Position returns the open position, or nil.
func (s *Session) Position() *domain.OpenPosition { return s.position }

// Run bootstraps the first market window and drives the polling loop until
// the context is cancelled. On cancellation it logs a final counter summary
// and returns nil.
func (s *Session) Run(ctx context.Context) error {
	if err := s.Bootstrap(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			s.logSummary()
			return nil
		default:
		}

		s.Step(ctx)

		if err := s.sleeper.Sleep(ctx, s.cfg.PollInterval); err != nil {
			s.logSummary()
			return nil
		}
	}
}

// Bootstrap resolves the initial market window. Failures here are fatal:
// a session that cannot discover its first market has nothing to trade.
func (s *Session) Bootstrap(ctx context.Context) error {
	slug := s.cfg.FallbackSlug
	if slug == "" {
		slug = market.ActiveSlug(s.cfg.Symbol, s.clock.Now())
	}

	var w domain.MarketWindow
	err := s.cfg.QuoteRetry.Do(ctx, s.sleeper, func() error {
		var rerr error
		w, rerr = s.resolveWindow(ctx, slug)
		return rerr
	})
	if err != nil {
		return fmt.Errorf("session: resolve initial window %s: %w", slug, err)
	}

	s.adoptWindow(w)
	s.log.Info("window resolved",
		"slug", w.Slug,
		"question", w.Question,
		"start", w.StartAt,
		"close", w.CloseAt,
		"state", s.state)

	if balance, berr := s.deps.Backend.Balance(ctx); berr != nil {
		s.log.Warn("starting balance unavailable", "error", berr)
	} else {
		s.log.Info("starting balance", "balance", balance)
	}
	return nil
}

// Step executes one iteration of the state machine against the current
// clock reading. Exposed so tests can drive the machine without Run's loop.
func (s *Session) Step(ctx context.Context) {
	now := s.clock.Now()

	if _, closed := s.window.RemainingToClose(now); closed && s.state != StateMarketClosed {
		s.enterMarketClosed(ctx, now)
		return
	}

	switch s.state {
	case StateAwaitingWindow:
		if _, open := s.window.RemainingToStrategyOpen(now); open {
			s.state = StateScanning
			s.log.Info("entry window open", "slug", s.window.Slug)
		}
	case StateScanning:
		s.scan(ctx, now)
	case StatePositionOpen:
		s.watchStop(ctx, now)
	case StateStopped:
		// Nothing to do until the market closes.
	case StateMarketClosed:
		s.rotate(ctx)
	}
}

// --------------------------------------------------------------------------
// Scanning
// --------------------------------------------------------------------------

func (s *Session) scan(ctx context.Context, now time.Time) {
	snap, err := s.fetchQuotes(ctx)
	if err != nil {
		s.log.Debug("no quote data this poll", "error", err)
		return
	}
	s.observe(ctx, snap)

	if opp, ok := s.deps.Evaluator.Arbitrage(snap); ok {
		s.counters.OpportunitiesFound++
		s.log.Info("arbitrage pair under target",
			"up", opp.UpPrice,
			"down", opp.DownPrice,
			"total", opp.TotalCost,
			"profit_per_share", opp.ProfitPerShare,
			"size", opp.Size,
			"expected_profit", opp.ExpectedProfit)
		if s.cfg.ExecuteArbitrage && s.entryAllowed(now) {
			s.executeArbitrage(ctx, now, opp)
			return
		}
	}

	sig, ok := s.deps.Evaluator.Directional(snap)
	if !ok {
		return
	}
	if !s.entryAllowed(now) {
		return
	}
	s.openPosition(ctx, now, sig)
}

// entryAllowed applies the pre-entry guards: the strategy window must still
// be open, the per-market trade cap must not be hit, and enough time must
// remain before settlement.
func (s *Session) entryAllowed(now time.Time) bool {
	if !now.Before(s.window.StrategyCloseAt) {
		return false
	}
	if s.cfg.MaxTradesPerMarket > 0 && s.counters.TradesExecuted >= s.cfg.MaxTradesPerMarket {
		s.log.Info("trade cap reached for this market",
			"trades", s.counters.TradesExecuted, "cap", s.cfg.MaxTradesPerMarket)
		return false
	}
	if s.cfg.MinTimeRemaining > 0 {
		remaining, _ := s.window.RemainingToClose(now)
		if remaining < s.cfg.MinTimeRemaining {
			s.log.Info("too close to settlement for a new entry",
				"remaining", remaining, "min", s.cfg.MinTimeRemaining)
			return false
		}
	}
	return true
}

func (s *Session) openPosition(ctx context.Context, now time.Time, sig domain.DirectionalSignal) {
	order := domain.Order{
		ID:        uuid.NewString(),
		TokenID:   sig.TokenID(s.window),
		Side:      domain.OrderSideBuy,
		Type:      domain.OrderTypeGTC,
		Price:     sig.EntryPrice,
		Size:      sig.Size,
		CreatedAt: now,
	}

	if !s.balanceCovers(ctx, order.Cost()) {
		return
	}

	results, err := s.deps.Backend.Submit(ctx, []domain.Order{order})
	if err != nil || len(results) == 0 || !results[0].Success {
		s.recordOrderFailure(ctx, now, order, results, err)
		return
	}

	s.position = &domain.OpenPosition{
		Direction:  sig.Direction,
		TokenID:    order.TokenID,
		EntryPrice: sig.EntryPrice,
		Size:       sig.Size,
		Cost:       order.Cost(),
		OpenedAt:   now,
	}
	s.counters.TradesExecuted++
	s.counters.TotalInvested += order.Cost()
	s.counters.TotalSharesBought += sig.Size
	s.state = StatePositionOpen

	s.log.Info("position opened",
		"direction", sig.Direction,
		"entry_price", sig.EntryPrice,
		"size", sig.Size,
		"cost", order.Cost(),
		"order_id", results[0].OrderID)
	s.notify(ctx, "position_opened", fmt.Sprintf("%s %s %.2f @ %.2f (%s)",
		s.cfg.Symbol, sig.Direction, sig.Size, sig.EntryPrice, s.window.Slug))
}

// executeArbitrage signs and submits both legs together. Price drift
// between the legs erodes the captured margin, so they go out in one batch.
func (s *Session) executeArbitrage(ctx context.Context, now time.Time, opp domain.ArbOpportunity) {
	if !s.balanceCovers(ctx, opp.Investment) {
		return
	}

	upPrice := s.lastSnap.UpBestAsk
	if upPrice <= 0 {
		upPrice = opp.UpPrice
	}
	downPrice := s.lastSnap.DownBestAsk
	if downPrice <= 0 {
		downPrice = opp.DownPrice
	}

	legs := []domain.Order{
		{
			ID:        uuid.NewString(),
			TokenID:   s.window.UpTokenID,
			Side:      domain.OrderSideBuy,
			Type:      domain.OrderTypeGTC,
			Price:     upPrice,
			Size:      opp.Size,
			CreatedAt: now,
		},
		{
			ID:        uuid.NewString(),
			TokenID:   s.window.DownTokenID,
			Side:      domain.OrderSideBuy,
			Type:      domain.OrderTypeGTC,
			Price:     downPrice,
			Size:      opp.Size,
			CreatedAt: now,
		},
	}

	results, err := s.deps.Backend.Submit(ctx, legs)
	if err != nil {
		for _, leg := range legs {
			s.recordOrderFailure(ctx, now, leg, nil, err)
		}
		return
	}

	succeeded := 0
	for i, res := range results {
		if res.Success {
			succeeded++
			continue
		}
		if i < len(legs) {
			s.recordOrderFailure(ctx, now, legs[i], results[i:i+1], nil)
		}
	}

	if succeeded == 1 {
		// One-sided fill: the "riskless" pair is now a directional bet.
		// Needs operator attention; no automatic correction.
		s.log.Warn("arbitrage filled on one leg only",
			"up", opp.UpPrice, "down", opp.DownPrice, "size", opp.Size)
	}
	if succeeded == len(legs) {
		s.counters.TradesExecuted++
		s.counters.TotalInvested += opp.Investment
		s.counters.TotalSharesBought += opp.Size * 2
		s.log.Info("arbitrage pair executed",
			"total", opp.TotalCost,
			"size", opp.Size,
			"investment", opp.Investment,
			"expected_profit", opp.ExpectedProfit)
		s.verifyPairBalance(ctx)
	}
}

// verifyPairBalance checks the held sizes of both legs after a pair fill.
// An imbalance above the tolerance means one leg partially filled; it is
// reported for the operator, never corrected automatically.
func (s *Session) verifyPairBalance(ctx context.Context) {
	const tolerance = 0.1

	held, err := s.deps.Backend.Positions(ctx, []string{s.window.UpTokenID, s.window.DownTokenID})
	if err != nil {
		s.log.Warn("pair balance verification failed", "error", err)
		return
	}

	upHeld := held[s.window.UpTokenID]
	downHeld := held[s.window.DownTokenID]
	diff := upHeld - downHeld
	if diff < 0 {
		diff = -diff
	}
	if diff > tolerance {
		s.log.Warn("pair legs are imbalanced",
			"up_held", upHeld, "down_held", downHeld, "diff", diff)
	}
}

func (s *Session) balanceCovers(ctx context.Context, cost float64) bool {
	balance, err := s.deps.Backend.Balance(ctx)
	if err != nil {
		s.log.Warn("balance check failed, skipping entry", "error", err)
		return false
	}
	need := cost * (1 + s.cfg.BalanceSlack)
	if balance < need {
		s.log.Info("insufficient balance for entry",
			"balance", balance, "required", need)
		return false
	}
	return true
}

// --------------------------------------------------------------------------
// Stop-loss watch
// --------------------------------------------------------------------------

func (s *Session) watchStop(ctx context.Context, now time.Time) {
	snap, err := s.fetchQuotes(ctx)
	if err != nil {
		s.log.Debug("no quote data this poll", "error", err)
		return
	}
	s.observe(ctx, snap)

	current := snap.UpPrice
	if s.position.Direction == domain.DirectionDown {
		current = snap.DownPrice
	}
	if current <= 0 {
		return
	}

	if s.position.EntryPrice-current < s.cfg.StoplossMargin {
		return
	}

	stop := current
	s.position.StopPrice = &stop
	s.state = StateStopped

	s.log.Warn("stop-loss fired",
		"direction", s.position.Direction,
		"entry_price", s.position.EntryPrice,
		"current_price", current,
		"margin", s.cfg.StoplossMargin)
	s.notify(ctx, "stoploss", fmt.Sprintf("%s %s stop at %.2f (entry %.2f)",
		s.cfg.Symbol, s.position.Direction, current, s.position.EntryPrice))

	// Exit what we can at the stop price. A failed exit leaves the
	// position to settle at resolution; the failure is still logged.
	exit := domain.Order{
		ID:        uuid.NewString(),
		TokenID:   s.position.TokenID,
		Side:      domain.OrderSideSell,
		Type:      domain.OrderTypeFAK,
		Price:     current,
		Size:      s.position.Size,
		CreatedAt: now,
	}
	results, err := s.deps.Backend.Submit(ctx, []domain.Order{exit})
	if err != nil || len(results) == 0 || !results[0].Success {
		s.recordOrderFailure(ctx, now, exit, results, err)
	}
}

// --------------------------------------------------------------------------
// Close and rotation
// --------------------------------------------------------------------------

func (s *Session) enterMarketClosed(ctx context.Context, now time.Time) {
	outcome := s.resolveOutcome()

	rec := domain.WindowRecord{
		ID:      uuid.NewString(),
		At:      now,
		Slug:    s.window.Slug,
		Outcome: outcome,
	}
	if s.position != nil {
		rec.Direction = s.position.Direction
		rec.EntryPrice = s.position.EntryPrice
		rec.Size = s.position.Size
		rec.Cost = s.position.Cost
		rec.StopPrice = s.position.StopPrice
		rec.PnL = s.settledPnL(outcome)
	}

	for _, sink := range s.deps.Sinks {
		if err := sink.Append(ctx, rec); err != nil {
			s.log.Error("record sink append failed", "slug", rec.Slug, "error", err)
		}
	}

	s.log.Info("market closed",
		"slug", s.window.Slug,
		"outcome", outcome,
		"traded", s.position != nil,
		"pnl", rec.PnL,
		"window_trades", s.counters.TradesExecuted)
	s.notify(ctx, "market_closed", fmt.Sprintf("%s %s settled %s pnl %.2f",
		s.cfg.Symbol, s.window.Slug, outcome, rec.PnL))

	s.state = StateMarketClosed
	s.rotate(ctx)
}

// rotate discovers the next window. If discovery yields the same slug or
// fails, the session stays in MARKET_CLOSED and backs off before retrying.
func (s *Session) rotate(ctx context.Context) {
	now := s.clock.Now()

	slug := market.ActiveSlug(s.cfg.Symbol, now)
	if s.cfg.FallbackSlug != "" {
		next, err := market.NextSlug(s.window.Slug)
		if err == nil {
			slug = next
		}
	}

	if slug == s.window.Slug {
		s.log.Debug("next market not yet available", "slug", slug)
		_ = s.sleeper.Sleep(ctx, s.cfg.RotationBackoff)
		return
	}

	w, err := s.resolveWindow(ctx, slug)
	if err != nil {
		s.log.Warn("rotation discovery failed, backing off",
			"slug", slug, "backoff", s.cfg.RotationBackoff, "error", err)
		_ = s.sleeper.Sleep(ctx, s.cfg.RotationBackoff)
		return
	}

	s.adoptWindow(w)
	s.position = nil
	s.lastSnap = domain.QuoteSnapshot{}
	s.totals.Merge(s.counters)
	s.counters.Reset()
	s.log.Info("rotated to next window",
		"slug", w.Slug, "start", w.StartAt, "close", w.CloseAt, "state", s.state)
}

// adoptWindow installs a window and picks the starting state from its
// timing.
func (s *Session) adoptWindow(w domain.MarketWindow) {
	s.window = w
	if _, open := w.RemainingToStrategyOpen(s.clock.Now()); open {
		s.state = StateScanning
	} else {
		s.state = StateAwaitingWindow
	}
}

// resolveWindow resolves slug into a full market window. The window start
// comes from the slug epoch; the resolver's advertised start is only a
// fallback for pinned slugs that do not follow the naming scheme.
func (s *Session) resolveWindow(ctx context.Context, slug string) (domain.MarketWindow, error) {
	rm, err := s.deps.Resolver.Resolve(ctx, slug)
	if err != nil {
		return domain.MarketWindow{}, err
	}

	start, perr := market.Start(slug)
	if perr != nil {
		start = rm.StartAt
	}
	if start.IsZero() {
		return domain.MarketWindow{}, fmt.Errorf("session: market %s has no usable start time", slug)
	}

	return domain.NewMarketWindow(rm, start, s.cfg.StrategyOpenOffset), nil
}

// resolveOutcome guesses the settled side from the last snapshot: a leg
// trading at 0.99 or better has won; otherwise the higher-priced leg is the
// best guess; no data means unknown.
func (s *Session) resolveOutcome() domain.Outcome {
	if !s.lastSnap.Valid() {
		return domain.OutcomeUnknown
	}
	switch {
	case s.lastSnap.UpPrice >= nearResolvedPrice:
		return domain.OutcomeUp
	case s.lastSnap.DownPrice >= nearResolvedPrice:
		return domain.OutcomeDown
	case s.lastSnap.UpPrice > s.lastSnap.DownPrice:
		return domain.OutcomeUp
	case s.lastSnap.DownPrice > s.lastSnap.UpPrice:
		return domain.OutcomeDown
	default:
		return domain.OutcomeUnknown
	}
}

// settledPnL values the position at window close: stop-based when the stop
// fired, payout-based when the held side won, the full cost when it lost,
// and zero when the outcome is unknown.
func (s *Session) settledPnL(outcome domain.Outcome) float64 {
	p := s.position
	if p == nil {
		return 0
	}
	if p.StopPrice != nil {
		return p.Size * (*p.StopPrice - p.EntryPrice)
	}
	switch outcome {
	case domain.Outcome(p.Direction):
		return p.Size * (1.0 - p.EntryPrice)
	case domain.OutcomeUnknown:
		return 0
	default:
		return -p.Cost
	}
}

// --------------------------------------------------------------------------
// Shared helpers
// --------------------------------------------------------------------------

func (s *Session) fetchQuotes(ctx context.Context) (domain.QuoteSnapshot, error) {
	var snap domain.QuoteSnapshot
	err := s.cfg.QuoteRetry.Do(ctx, s.sleeper, func() error {
		var ferr error
		snap, ferr = s.deps.Quotes.Quotes(ctx, s.window.UpTokenID, s.window.DownTokenID)
		return ferr
	})
	return snap, err
}

// observe books a successful snapshot into counters and mirrors it to the
// optional quote publisher.
func (s *Session) observe(ctx context.Context, snap domain.QuoteSnapshot) {
	s.lastSnap = snap
	s.counters.Scans++
	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.Publish(ctx, s.window.MarketID, snap); err != nil {
			s.log.Debug("quote publish failed", "error", err)
		}
	}
}

func (s *Session) recordOrderFailure(ctx context.Context, now time.Time, order domain.Order, results []domain.OrderResult, err error) {
	detail := fmt.Sprintf("order %s %s %s %.4f x %.2f", order.ID, order.Side, order.TokenID, order.Price, order.Size)
	cause := err
	if cause == nil {
		msg := "no result returned"
		if len(results) > 0 {
			msg = results[0].Message
		}
		cause = fmt.Errorf("%w: %s", domain.ErrInvalidOrder, msg)
	}

	s.log.Error("order submission failed", "detail", detail, "error", cause)
	if s.deps.ErrorLog != nil {
		if werr := s.deps.ErrorLog.Record(now, detail, cause); werr != nil {
			s.log.Error("error log write failed", "error", werr)
		}
	}
	s.notify(ctx, "order_error", fmt.Sprintf("%s: %v", detail, cause))
}

func (s *Session) notify(ctx context.Context, event, message string) {
	if s.deps.Notifier != nil {
		s.deps.Notifier.Notify(ctx, event, message)
	}
}

func (s *Session) logSummary() {
	t := s.Totals()
	s.log.Info("session summary",
		"scans", t.Scans,
		"opportunities", t.OpportunitiesFound,
		"trades", t.TradesExecuted,
		"invested", t.TotalInvested,
		"shares", t.TotalSharesBought)
}
