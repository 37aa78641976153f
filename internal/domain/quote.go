package domain

import "time"

// QuoteSnapshot is a normalized view of both legs of an up/down market at a
// single moment: last-trade prices, best asks, and the size available at the
// best ask. Replaced wholesale on every poll, never mutated.
type QuoteSnapshot struct {
	UpPrice      float64 // last-trade price, UP leg
	DownPrice    float64 // last-trade price, DOWN leg
	UpBestAsk    float64
	DownBestAsk  float64
	UpAskSize    float64
	DownAskSize  float64
	At           time.Time
}

// Valid reports whether the snapshot carries usable prices on both legs.
// Zero prices mean the quote source had no data this poll.
func (q QuoteSnapshot) Valid() bool {
	return q.UpPrice > 0 && q.DownPrice > 0
}

// TotalCost is the combined cost of buying one share of each leg at the
// last-trade prices.
func (q QuoteSnapshot) TotalCost() float64 {
	return q.UpPrice + q.DownPrice
}
