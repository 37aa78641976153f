package domain

import "time"

// Direction names the leg of a binary market a position is on.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

// ArbOpportunity is a riskless two-leg entry: both legs bought together for a
// combined cost under a dollar, paying out one dollar per share pair at
// resolution whichever side wins.
type ArbOpportunity struct {
	UpPrice        float64
	DownPrice      float64
	TotalCost      float64
	ProfitPerShare float64 // 1.0 - TotalCost
	ProfitPct      float64
	Size           float64 // shares per leg
	Investment     float64 // TotalCost * Size
	ExpectedPayout float64 // 1.0 * Size
	ExpectedProfit float64
	UpAskSize      float64
	DownAskSize    float64
	At             time.Time
}

// DirectionalSignal is a one-sided entry: a leg's last-trade price crossed
// the buy threshold without entering the near-resolved band.
type DirectionalSignal struct {
	Direction  Direction
	EntryPrice float64 // best ask on the chosen leg
	Size       float64
	At         time.Time
}

// TokenID returns the token backing the signal's direction for the given window.
func (s DirectionalSignal) TokenID(w MarketWindow) string {
	if s.Direction == DirectionUp {
		return w.UpTokenID
	}
	return w.DownTokenID
}
