package executor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/kaiwenyuan/updownbot/internal/domain"
)

// Simulated is the dry-run execution backend. Orders update an in-memory
// book of positions and a paper balance instead of touching the venue, so
// the session exercises its full submit/track/settle path.
type Simulated struct {
	log *slog.Logger

	mu        sync.Mutex
	balance   float64
	positions map[string]float64
}

// NewSimulated creates a dry-run backend with the given paper balance.
func NewSimulated(log *slog.Logger, startingBalance float64) *Simulated {
	return &Simulated{
		log:       log.With("component", "executor", "mode", "dry_run"),
		balance:   startingBalance,
		positions: make(map[string]float64),
	}
}

// Submit fills every order instantly at its limit price. A buy that would
// overdraw the paper balance is rejected the way the venue would reject an
// underfunded order.
func (s *Simulated) Submit(ctx context.Context, orders []domain.Order) ([]domain.OrderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]domain.OrderResult, 0, len(orders))
	for _, o := range orders {
		cost := o.Cost()

		if o.Side == domain.OrderSideBuy && cost > s.balance {
			s.log.Warn("simulated order rejected",
				"token_id", o.TokenID, "cost", cost, "balance", s.balance)
			results = append(results, domain.OrderResult{
				Success: false,
				Message: "insufficient simulated balance",
			})
			continue
		}

		switch o.Side {
		case domain.OrderSideBuy:
			s.balance -= cost
			s.positions[o.TokenID] += o.Size
		case domain.OrderSideSell:
			s.balance += cost
			s.positions[o.TokenID] -= o.Size
			if s.positions[o.TokenID] <= 0 {
				delete(s.positions, o.TokenID)
			}
		}

		s.log.Info("simulated fill",
			"token_id", o.TokenID,
			"side", o.Side,
			"price", o.Price,
			"size", o.Size,
			"cost", cost,
			"balance", s.balance)

		results = append(results, domain.OrderResult{
			Success: true,
			OrderID: uuid.NewString(),
			Status:  "simulated",
		})
	}
	return results, nil
}

// Positions returns the simulated holdings for the given token IDs.
func (s *Simulated) Positions(ctx context.Context, tokenIDs []string) (map[string]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]float64, len(tokenIDs))
	for _, id := range tokenIDs {
		if size, ok := s.positions[id]; ok {
			out[id] = size
		}
	}
	return out, nil
}

// Balance returns the remaining paper balance.
func (s *Simulated) Balance(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance, nil
}
