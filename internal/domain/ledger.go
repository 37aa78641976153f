package domain

import "time"

// Outcome is the resolved (or best-guess) winning side of a closed market.
type Outcome string

const (
	OutcomeUp      Outcome = "UP"
	OutcomeDown    Outcome = "DOWN"
	OutcomeUnknown Outcome = "UNKNOWN"
)

// WindowRecord is the summary row emitted once per closed market window.
// The CSV ledger, the optional Postgres mirror, and notifications all render
// from this one structure.
type WindowRecord struct {
	ID         string // UUID
	At         time.Time
	Slug       string
	Direction  Direction
	EntryPrice float64
	Size       float64
	Cost       float64
	StopPrice  *float64 // nil unless the stop-loss fired
	Outcome    Outcome
	PnL        float64
}
