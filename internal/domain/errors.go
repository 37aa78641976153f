package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrRateLimited     = errors.New("rate limited")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidOrder    = errors.New("invalid order parameters")
	ErrSigningFailed   = errors.New("signing failed")
	ErrWSDisconnect    = errors.New("websocket disconnected")
	ErrNotBinaryMarket = errors.New("not a two-outcome market")
	ErrNoQuote         = errors.New("no quote data")
)
