package model

import "time"

// SignalKind is a discrete position intent derived from an indicator crossover.
type SignalKind string

const (
	SignalEnterLong  SignalKind = "ENTER_LONG"
	SignalExitToCash SignalKind = "EXIT_TO_CASH"
)

// SignalEvent marks a position-intent change at a series index. A valid event
// sequence has strictly increasing indices and alternating kinds; a position
// is never entered twice without an intervening exit.
type SignalEvent struct {
	Index int        `json:"index"`
	Date  time.Time  `json:"date"`
	Kind  SignalKind `json:"kind"`
}
