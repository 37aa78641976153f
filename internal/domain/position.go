package domain

import "time"

// OpenPosition is the single directional position a session may hold inside
// one market window. Owned exclusively by the session; at most one exists per
// window.
type OpenPosition struct {
	Direction  Direction
	TokenID    string
	EntryPrice float64
	Size       float64
	Cost       float64
	OpenedAt   time.Time

	// StopPrice is set when the stop-loss fires, recording the price that
	// triggered it. Nil while the position is live.
	StopPrice *float64
}

// PnL returns the realized/unrealized profit for the position: payout-based
// when the position ran to resolution, stop-based when the stop-loss fired.
func (p OpenPosition) PnL() float64 {
	if p.StopPrice != nil {
		return p.Size * (*p.StopPrice - p.EntryPrice)
	}
	return p.Size * (1.0 - p.EntryPrice)
}

// SessionCounters tracks activity inside a single market window. Every
// field goes back to zero when the session rotates to the next window.
type SessionCounters struct {
	Scans              int
	OpportunitiesFound int
	TradesExecuted     int
	TotalInvested      float64
	TotalSharesBought  float64
}

// Merge folds other into c. Used to carry a finished window's activity into
// lifetime totals before the window counters reset.
func (c *SessionCounters) Merge(other SessionCounters) {
	c.Scans += other.Scans
	c.OpportunitiesFound += other.OpportunitiesFound
	c.TradesExecuted += other.TradesExecuted
	c.TotalInvested += other.TotalInvested
	c.TotalSharesBought += other.TotalSharesBought
}

// Reset zeroes every counter.
func (c *SessionCounters) Reset() {
	*c = SessionCounters{}
}
