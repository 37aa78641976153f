package domain

import "time"

// Fixed timings of a 5-minute up/down market. The slug epoch marks the open;
// the market settles exactly five minutes later. Entries stop two minutes in.
const (
	MarketDuration      = 5 * time.Minute
	StrategyCloseOffset = 2 * time.Minute
)

// MarketWindow is one 5-minute up/down market: the two outcome tokens plus
// the timestamps that drive the session state machine. Immutable once built;
// a rotation replaces the whole value.
type MarketWindow struct {
	Slug        string
	MarketID    string
	Question    string
	UpTokenID   string
	DownTokenID string

	StartAt         time.Time
	CloseAt         time.Time // StartAt + MarketDuration
	StrategyOpenAt  time.Time // StartAt + configured open offset
	StrategyCloseAt time.Time // StartAt + StrategyCloseOffset
}

// NewMarketWindow derives all window timestamps from the market start time.
// openOffset is the delay after market open before entries are permitted.
func NewMarketWindow(resolved ResolvedMarket, start time.Time, openOffset time.Duration) MarketWindow {
	return MarketWindow{
		Slug:            resolved.Slug,
		MarketID:        resolved.MarketID,
		Question:        resolved.Question,
		UpTokenID:       resolved.UpTokenID,
		DownTokenID:     resolved.DownTokenID,
		StartAt:         start,
		CloseAt:         start.Add(MarketDuration),
		StrategyOpenAt:  start.Add(openOffset),
		StrategyCloseAt: start.Add(StrategyCloseOffset),
	}
}

// RemainingToClose returns the time left until the market closes. closed is
// true once now has reached CloseAt.
func (w MarketWindow) RemainingToClose(now time.Time) (remaining time.Duration, closed bool) {
	if !now.Before(w.CloseAt) {
		return 0, true
	}
	return w.CloseAt.Sub(now), false
}

// RemainingToStrategyOpen counts down to the moment entries become permitted.
// closed is true once now has reached StrategyOpenAt, i.e. the entry window
// is open. The countdown-to-open semantic mirrors RemainingToClose so the
// session treats both as "phase boundary passed" signals.
func (w MarketWindow) RemainingToStrategyOpen(now time.Time) (remaining time.Duration, closed bool) {
	if !now.Before(w.StrategyOpenAt) {
		return 0, true
	}
	return w.StrategyOpenAt.Sub(now), false
}

// TokenIDs returns the two outcome token IDs, UP first.
func (w MarketWindow) TokenIDs() [2]string {
	return [2]string{w.UpTokenID, w.DownTokenID}
}
