// Package executor provides the venue-facing execution backends: a live one
// that signs and posts orders to the CLOB, and a simulated one for dry runs.
// Both satisfy domain.ExecutionBackend and are constructed once and passed
// explicitly; there is no process-wide cached client.
package executor

import (
	"context"
	"log/slog"

	"github.com/kaiwenyuan/updownbot/internal/domain"
	"github.com/kaiwenyuan/updownbot/internal/platform/polymarket"
)

// Live submits real orders through the CLOB client and reads positions from
// the data API. Multi-leg batches are signed ahead and posted in one request
// so the legs hit the book back to back.
type Live struct {
	log  *slog.Logger
	clob *polymarket.ClobClient
	data *polymarket.DataClient
}

// NewLive creates a live execution backend.
func NewLive(log *slog.Logger, clob *polymarket.ClobClient, data *polymarket.DataClient) *Live {
	return &Live{
		log:  log.With("component", "executor"),
		clob: clob,
		data: data,
	}
}

// Submit signs every order first and posts the batch in a single request.
func (l *Live) Submit(ctx context.Context, orders []domain.Order) ([]domain.OrderResult, error) {
	results, err := l.clob.PostOrders(ctx, orders)
	if err != nil {
		l.log.Error("order batch failed", "orders", len(orders), "error", err)
		return nil, err
	}

	for i, res := range results {
		if i >= len(orders) {
			break
		}
		o := orders[i]
		if res.Success {
			l.log.Info("order accepted",
				"order_id", res.OrderID,
				"token_id", o.TokenID,
				"side", o.Side,
				"price", o.Price,
				"size", o.Size,
				"status", res.Status)
		} else {
			l.log.Warn("order rejected",
				"token_id", o.TokenID,
				"side", o.Side,
				"price", o.Price,
				"size", o.Size,
				"message", res.Message,
				"should_retry", res.ShouldRetry)
		}
	}
	return results, nil
}

// Positions returns held size per token from the data API.
func (l *Live) Positions(ctx context.Context, tokenIDs []string) (map[string]float64, error) {
	return l.data.Positions(ctx, tokenIDs)
}

// Balance returns the free collateral balance in dollars.
func (l *Live) Balance(ctx context.Context) (float64, error) {
	return l.clob.Balance(ctx)
}
