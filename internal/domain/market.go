package domain

import "time"

// ResolvedMarket is the outcome of resolving a market slug against the venue:
// the two outcome token IDs (UP first) and the advertised open/close times.
// Resolution fails for anything that is not a two-outcome market.
type ResolvedMarket struct {
	Slug        string
	MarketID    string
	Question    string
	UpTokenID   string
	DownTokenID string
	StartAt     time.Time
	EndAt       time.Time
}
