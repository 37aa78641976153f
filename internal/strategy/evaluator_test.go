package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/kaiwenyuan/updownbot/internal/domain"
)

func testEvaluator() *Evaluator {
	return &Evaluator{
		TargetPairCost:   0.99,
		UpBuyThreshold:   0.45,
		DownBuyThreshold: 0.45,
		PriceCeiling:     0.95,
		SafetyMargin:     5,
		OrderSize:        50,
	}
}

// snap builds a snapshot where the books agree with the last trades.
func snap(up, down, upAsk, downAsk float64) domain.QuoteSnapshot {
	return domain.QuoteSnapshot{
		UpPrice:     up,
		DownPrice:   down,
		UpBestAsk:   up,
		DownBestAsk: down,
		UpAskSize:   upAsk,
		DownAskSize: downAsk,
		At:          time.Date(2026, 8, 29, 19, 41, 0, 0, time.UTC),
	}
}

func TestArbitrageOpportunity(t *testing.T) {
	e := testEvaluator()

	opp, ok := e.Arbitrage(snap(0.40, 0.55, 100, 100))
	if !ok {
		t.Fatal("expected opportunity for 0.40/0.55 with deep books")
	}
	if math.Abs(opp.TotalCost-0.95) > 1e-9 {
		t.Errorf("TotalCost = %g, want 0.95", opp.TotalCost)
	}
	if math.Abs(opp.ProfitPerShare-0.05) > 1e-9 {
		t.Errorf("ProfitPerShare = %g, want 0.05", opp.ProfitPerShare)
	}
	if opp.Size != 50 {
		t.Errorf("Size = %g, want 50", opp.Size)
	}
	if math.Abs(opp.ExpectedProfit-2.50) > 1e-9 {
		t.Errorf("ExpectedProfit = %g, want 2.50", opp.ExpectedProfit)
	}
}

func TestArbitrageRejections(t *testing.T) {
	e := testEvaluator()

	cases := []struct {
		name string
		s    domain.QuoteSnapshot
	}{
		{"no quote", domain.QuoteSnapshot{}},
		{"up leg near resolved", snap(0.80, 0.15, 100, 100)},
		{"down leg near resolved", snap(0.15, 0.80, 100, 100)},
		{"total at target", snap(0.49, 0.50, 100, 100)},
		{"total above target", snap(0.50, 0.52, 100, 100)},
		{"thin up book", snap(0.40, 0.55, 54, 100)},
		{"thin down book", snap(0.40, 0.55, 100, 54)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := e.Arbitrage(tc.s); ok {
				t.Errorf("expected rejection for %s", tc.name)
			}
		})
	}
}

func TestArbitrageLiquidityEdge(t *testing.T) {
	e := testEvaluator()
	// Safety margin 5: ask size 55 leaves exactly 50, which is enough.
	if _, ok := e.Arbitrage(snap(0.40, 0.55, 55, 55)); !ok {
		t.Error("ask size 55 with margin 5 should cover order size 50")
	}
	// 54.9 leaves 49.9, which is not.
	if _, ok := e.Arbitrage(snap(0.40, 0.55, 54.9, 55)); ok {
		t.Error("ask size 54.9 with margin 5 should reject order size 50")
	}
}

func TestArbitrageStaleQuotes(t *testing.T) {
	e := testEvaluator()

	// Both legs diverging more than 0.03 from the book.
	s := snap(0.40, 0.55, 100, 100)
	s.UpBestAsk = 0.44
	s.DownBestAsk = 0.59
	if _, ok := e.Arbitrage(s); ok {
		t.Error("expected rejection when both legs diverge > 0.03")
	}

	// One leg fine, the other way off: combined divergence above 0.05.
	s = snap(0.40, 0.55, 100, 100)
	s.DownBestAsk = 0.61
	if _, ok := e.Arbitrage(s); ok {
		t.Error("expected rejection when combined divergence > 0.05")
	}

	// Mild divergence on one leg only passes.
	s = snap(0.40, 0.55, 100, 100)
	s.DownBestAsk = 0.57
	if _, ok := e.Arbitrage(s); !ok {
		t.Error("0.02 divergence on one leg should pass")
	}
}

func TestDirectionalUp(t *testing.T) {
	e := testEvaluator()

	sig, ok := e.Directional(snap(0.46, 0.54, 100, 100))
	if !ok {
		t.Fatal("expected UP signal at 0.46")
	}
	if sig.Direction != domain.DirectionUp {
		t.Errorf("Direction = %s, want UP", sig.Direction)
	}
	if sig.EntryPrice != 0.46 {
		t.Errorf("EntryPrice = %g, want 0.46", sig.EntryPrice)
	}
	if sig.Size != 50 {
		t.Errorf("Size = %g, want 50 (cost $23 clears the minimum)", sig.Size)
	}
}

func TestDirectionalDown(t *testing.T) {
	e := testEvaluator()

	sig, ok := e.Directional(snap(0.30, 0.70, 100, 100))
	if !ok {
		t.Fatal("expected DOWN signal at 0.70")
	}
	if sig.Direction != domain.DirectionDown {
		t.Errorf("Direction = %s, want DOWN", sig.Direction)
	}
}

func TestDirectionalUpPriority(t *testing.T) {
	e := testEvaluator()

	// Both legs inside the band: UP is evaluated first and wins.
	sig, ok := e.Directional(snap(0.50, 0.50, 100, 100))
	if !ok {
		t.Fatal("expected a signal with both legs in band")
	}
	if sig.Direction != domain.DirectionUp {
		t.Errorf("Direction = %s, want UP priority", sig.Direction)
	}
}

func TestDirectionalRejections(t *testing.T) {
	e := testEvaluator()

	cases := []struct {
		name string
		s    domain.QuoteSnapshot
	}{
		{"no quote", domain.QuoteSnapshot{}},
		{"both below threshold", snap(0.30, 0.40, 100, 100)},
		{"up above ceiling, down below threshold", snap(0.97, 0.03, 100, 100)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := e.Directional(tc.s); ok {
				t.Errorf("expected no signal for %s", tc.name)
			}
		})
	}
}

func TestDirectionalFallsBackToLastTradePrice(t *testing.T) {
	e := testEvaluator()

	s := snap(0.46, 0.54, 100, 100)
	s.UpBestAsk = 0 // empty book this poll
	sig, ok := e.Directional(s)
	if !ok {
		t.Fatal("expected signal")
	}
	if sig.EntryPrice != 0.46 {
		t.Errorf("EntryPrice = %g, want last-trade fallback 0.46", sig.EntryPrice)
	}
}
