package model

import "time"

// LedgerEntry is one row of the simulated cash/position ledger. The simulator
// records one entry per series index whether or not a trade executed that day,
// so the equity curve has one value per trading day.
type LedgerEntry struct {
	Index  int       `json:"index"`
	Date   time.Time `json:"date"`
	Cash   float64   `json:"cash"`
	Shares float64   `json:"shares"`
	Equity float64   `json:"equity"` // Cash + Shares × Close
}

// Trade is an executed position. ExitIndex is -1 and Open is true while the
// position is still held at series end.
type Trade struct {
	EntryIndex int     `json:"entry_index"`
	EntryPrice float64 `json:"entry_price"`
	Shares     float64 `json:"shares"`
	ExitIndex  int     `json:"exit_index"`
	ExitPrice  float64 `json:"exit_price"`
	Open       bool    `json:"open"`
}
