package executor

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/kaiwenyuan/updownbot/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSimulatedBuyAndBalance(t *testing.T) {
	s := NewSimulated(discardLogger(), 100)
	ctx := context.Background()

	results, err := s.Submit(ctx, []domain.Order{
		{TokenID: "up1", Side: domain.OrderSideBuy, Type: domain.OrderTypeGTC, Price: 0.46, Size: 50},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(results) != 1 || !results[0].Success || results[0].OrderID == "" {
		t.Fatalf("unexpected results: %+v", results)
	}

	bal, _ := s.Balance(ctx)
	if bal != 100-23 {
		t.Errorf("balance = %g, want 77", bal)
	}

	pos, _ := s.Positions(ctx, []string{"up1", "dn1"})
	if pos["up1"] != 50 {
		t.Errorf("position up1 = %g, want 50", pos["up1"])
	}
	if _, ok := pos["dn1"]; ok {
		t.Error("dn1 should have no position")
	}
}

func TestSimulatedRejectsOverdraft(t *testing.T) {
	s := NewSimulated(discardLogger(), 10)

	results, err := s.Submit(context.Background(), []domain.Order{
		{TokenID: "up1", Side: domain.OrderSideBuy, Price: 0.50, Size: 50}, // $25 > $10
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if results[0].Success {
		t.Error("expected rejection for underfunded buy")
	}

	bal, _ := s.Balance(context.Background())
	if bal != 10 {
		t.Errorf("balance changed on rejected order: %g", bal)
	}
}

func TestSimulatedSellClosesPosition(t *testing.T) {
	s := NewSimulated(discardLogger(), 100)
	ctx := context.Background()

	s.Submit(ctx, []domain.Order{{TokenID: "up1", Side: domain.OrderSideBuy, Price: 0.40, Size: 10}})
	s.Submit(ctx, []domain.Order{{TokenID: "up1", Side: domain.OrderSideSell, Price: 0.35, Size: 10}})

	pos, _ := s.Positions(ctx, []string{"up1"})
	if len(pos) != 0 {
		t.Errorf("position should be closed, got %v", pos)
	}
	bal, _ := s.Balance(ctx)
	want := 100 - 4 + 3.5
	if bal != want {
		t.Errorf("balance = %g, want %g", bal, want)
	}
}

func TestSimulatedBatchPreservesOrder(t *testing.T) {
	s := NewSimulated(discardLogger(), 100)

	results, err := s.Submit(context.Background(), []domain.Order{
		{TokenID: "up1", Side: domain.OrderSideBuy, Price: 0.40, Size: 50},
		{TokenID: "dn1", Side: domain.OrderSideBuy, Price: 0.55, Size: 50},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	for i, r := range results {
		if !r.Success {
			t.Errorf("leg %d rejected: %+v", i, r)
		}
	}
}
