package domain

import "context"

// QuoteSource returns current quote data for the two legs of a market.
// Implementations: CLOB REST client, websocket quote stream, test fakes.
type QuoteSource interface {
	Quotes(ctx context.Context, upTokenID, downTokenID string) (QuoteSnapshot, error)
}

// ExecutionBackend is the venue-facing handle for submitting orders and
// reading account state. Construct once, pass explicitly; there is no
// process-wide cached client.
type ExecutionBackend interface {
	// Submit signs (where applicable) and posts orders. Multi-leg batches
	// are signed ahead and dispatched together to minimise inter-leg latency.
	Submit(ctx context.Context, orders []Order) ([]OrderResult, error)
	// Positions returns held size per token for the given token IDs.
	Positions(ctx context.Context, tokenIDs []string) (map[string]float64, error)
	// Balance returns the free collateral balance in dollars.
	Balance(ctx context.Context) (float64, error)
}

// Resolver turns a market slug into the token IDs and timestamps of a
// two-outcome market.
type Resolver interface {
	Resolve(ctx context.Context, slug string) (ResolvedMarket, error)
}

// RecordSink persists one WindowRecord per closed market window.
type RecordSink interface {
	Append(ctx context.Context, rec WindowRecord) error
}

// QuotePublisher mirrors observed quote snapshots for external consumers
// (for example a Redis cache other tooling reads).
type QuotePublisher interface {
	Publish(ctx context.Context, marketID string, snap QuoteSnapshot) error
}
