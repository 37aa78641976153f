// Package strategy evaluates quote snapshots of a 5-minute up/down market
// for paired-arbitrage and directional entries, and sizes the resulting
// orders to venue constraints.
package strategy

import (
	"github.com/kaiwenyuan/updownbot/internal/domain"
)

// Quote-quality constants for the arbitrage path. Legs priced above the cap
// are treated as already resolved; large last-trade/best-ask divergence
// marks the snapshot as stale.
const (
	arbPriceCap       = 0.75
	maxLegDivergence  = 0.03
	maxPairDivergence = 0.05
)

// Evaluator holds the tunable thresholds for both evaluation modes. It is
// stateless across snapshots; every call judges one snapshot in isolation.
type Evaluator struct {
	TargetPairCost   float64 // max combined cost for a paired entry
	UpBuyThreshold   float64
	DownBuyThreshold float64
	PriceCeiling     float64 // no entries above this price on either leg
	SafetyMargin     float64 // liquidity buffer subtracted from ask sizes
	OrderSize        float64 // nominal shares per entry
	Sizer            Sizer
}

// Arbitrage checks whether both legs can be bought together for less than
// the target pair cost with enough liquidity on both books. The returned
// opportunity reports profit assuming the pair is held to resolution.
func (e *Evaluator) Arbitrage(snap domain.QuoteSnapshot) (domain.ArbOpportunity, bool) {
	if !snap.Valid() {
		return domain.ArbOpportunity{}, false
	}

	// Near-resolved markets have nothing left to capture.
	if snap.UpPrice > arbPriceCap || snap.DownPrice > arbPriceCap {
		return domain.ArbOpportunity{}, false
	}

	// Stale-quote check: last trade drifting away from the book on both
	// legs, or too far in aggregate, means the prices cannot be trusted.
	upDiv := abs(snap.UpPrice - snap.UpBestAsk)
	downDiv := abs(snap.DownPrice - snap.DownBestAsk)
	if upDiv > maxLegDivergence && downDiv > maxLegDivergence {
		return domain.ArbOpportunity{}, false
	}
	if upDiv+downDiv > maxPairDivergence {
		return domain.ArbOpportunity{}, false
	}

	total := snap.TotalCost()
	if total >= e.TargetPairCost {
		return domain.ArbOpportunity{}, false
	}

	size := e.Sizer.NormalizeSize(total, e.OrderSize)
	if snap.UpAskSize-e.SafetyMargin < size || snap.DownAskSize-e.SafetyMargin < size {
		return domain.ArbOpportunity{}, false
	}

	profitPerShare := 1.0 - total
	opp := domain.ArbOpportunity{
		UpPrice:        snap.UpPrice,
		DownPrice:      snap.DownPrice,
		TotalCost:      total,
		ProfitPerShare: profitPerShare,
		ProfitPct:      profitPerShare / total,
		Size:           size,
		Investment:     total * size,
		ExpectedPayout: size,
		ExpectedProfit: profitPerShare * size,
		UpAskSize:      snap.UpAskSize,
		DownAskSize:    snap.DownAskSize,
		At:             snap.At,
	}
	return opp, true
}

// Directional accepts the first leg whose last-trade price sits inside the
// buy band [threshold, ceiling]. UP is checked before DOWN, so when both
// legs qualify the UP side wins.
func (e *Evaluator) Directional(snap domain.QuoteSnapshot) (domain.DirectionalSignal, bool) {
	if !snap.Valid() {
		return domain.DirectionalSignal{}, false
	}

	if snap.UpPrice >= e.UpBuyThreshold && snap.UpPrice <= e.PriceCeiling {
		entry := snap.UpBestAsk
		if entry <= 0 {
			entry = snap.UpPrice
		}
		return domain.DirectionalSignal{
			Direction:  domain.DirectionUp,
			EntryPrice: entry,
			Size:       e.Sizer.NormalizeSize(entry, e.OrderSize),
			At:         snap.At,
		}, true
	}

	if snap.DownPrice >= e.DownBuyThreshold && snap.DownPrice <= e.PriceCeiling {
		entry := snap.DownBestAsk
		if entry <= 0 {
			entry = snap.DownPrice
		}
		return domain.DirectionalSignal{
			Direction:  domain.DirectionDown,
			EntryPrice: entry,
			Size:       e.Sizer.NormalizeSize(entry, e.OrderSize),
			At:         snap.At,
		}, true
	}

	return domain.DirectionalSignal{}, false
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
