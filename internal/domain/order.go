package domain

import "time"

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType indicates the time-in-force policy.
type OrderType string

const (
	OrderTypeGTC OrderType = "GTC" // Good-Till-Cancelled
	OrderTypeFOK OrderType = "FOK" // Fill-Or-Kill
	OrderTypeFAK OrderType = "FAK" // Fill-And-Kill
)

// Order is one order request as the session hands it to the execution
// backend. Prices are display prices in [0,1]; the backend converts to the
// fixed-point amounts the venue signs over.
type Order struct {
	ID        string // client-generated UUID
	TokenID   string
	Side      OrderSide
	Type      OrderType
	Price     float64
	Size      float64
	CreatedAt time.Time
}

// Cost is the order notional in dollars.
func (o Order) Cost() float64 {
	return o.Price * o.Size
}

// OrderResult wraps the venue response for a single submitted order.
type OrderResult struct {
	Success     bool
	OrderID     string
	Status      string
	Message     string
	ShouldRetry bool
}
