// Package backtest simulates the crossover strategy against a daily price
// series and reduces the resulting equity curve to summary statistics.
//
// Every run is a pure function of (series, config): no stage consults the
// clock or external state, so re-running with identical input produces
// identical output and parameter sweeps can run in parallel over one shared
// read-only series.
package backtest

import (
	"errors"
	"fmt"
)

// Configuration errors, raised synchronously before any computation begins.
var (
	ErrBadWindow     = errors.New("window must be positive")
	ErrWindowOrder   = errors.New("short window must be smaller than long window")
	ErrBadCapital    = errors.New("starting capital must be positive")
	ErrBadLag        = errors.New("execution lag must be at least 1")
	ErrBadCommission = errors.New("commission rate must be in [0,1)")
)

// Config is the immutable parameter set for one backtest run. Pass it by
// value; nothing in the engine holds onto it.
type Config struct {
	ShortWindow     int     `json:"short_window"`
	LongWindow      int     `json:"long_window"`
	StartingCapital float64 `json:"starting_capital"`
	ExecutionLag    int     `json:"execution_lag"`   // bars between signal and fill
	CommissionRate  float64 `json:"commission_rate"` // fraction of traded notional
}

// DefaultConfig mirrors the classic trend-following setup: 50/200 crossover,
// $100k starting capital, next-bar fills, no commission.
func DefaultConfig() Config {
	return Config{
		ShortWindow:     50,
		LongWindow:      200,
		StartingCapital: 100_000,
		ExecutionLag:    1,
	}
}

// Validate checks every parameter and returns a wrapped sentinel error for
// the first violation. A config that fails validation is never partially
// applied.
func (c Config) Validate() error {
	if c.ShortWindow < 1 {
		return fmt.Errorf("%w: short=%d", ErrBadWindow, c.ShortWindow)
	}
	if c.LongWindow < 1 {
		return fmt.Errorf("%w: long=%d", ErrBadWindow, c.LongWindow)
	}
	if c.ShortWindow >= c.LongWindow {
		return fmt.Errorf("%w: short=%d long=%d", ErrWindowOrder, c.ShortWindow, c.LongWindow)
	}
	if c.StartingCapital <= 0 {
		return fmt.Errorf("%w: %g", ErrBadCapital, c.StartingCapital)
	}
	if c.ExecutionLag < 1 {
		return fmt.Errorf("%w: %d", ErrBadLag, c.ExecutionLag)
	}
	if c.CommissionRate < 0 || c.CommissionRate >= 1 {
		return fmt.Errorf("%w: %g", ErrBadCommission, c.CommissionRate)
	}
	return nil
}
