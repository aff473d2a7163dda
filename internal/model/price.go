// Package model defines the value types shared by every pipeline stage:
// daily price points, signal events, ledger entries, and reports.
//
// All types are plain data. Each stage returns fresh values derived from its
// input and never mutates shared state, so runs with different parameters can
// share one Series without coordination.
package model

import (
	"errors"
	"fmt"
	"time"
)

// Series validation errors. These are detected at the series boundary before
// any stage runs; the engine never attempts partial repair.
var (
	ErrEmptySeries    = errors.New("series is empty")
	ErrUnsortedSeries = errors.New("series dates not strictly ascending")
	ErrDuplicateDate  = errors.New("series contains duplicate date")
	ErrNegativePrice  = errors.New("series contains negative price or volume")
)

// PricePoint is one daily OHLCV observation for the index.
// Dates are calendar days normalized to UTC midnight.
type PricePoint struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Day returns t truncated to UTC midnight, the canonical PricePoint date.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Series is an ordered run of daily price points, strictly ascending by date.
type Series []PricePoint

// Validate checks the series invariants: non-empty, strictly ascending unique
// dates, non-negative prices and volume. Returns a wrapped sentinel error on
// the first violation.
func (s Series) Validate() error {
	if len(s) == 0 {
		return ErrEmptySeries
	}
	for i, p := range s {
		if p.Open < 0 || p.High < 0 || p.Low < 0 || p.Close < 0 || p.Volume < 0 {
			return fmt.Errorf("%w: row %d (%s)", ErrNegativePrice, i, p.Date.Format("2006-01-02"))
		}
		if i == 0 {
			continue
		}
		prev := s[i-1].Date
		if p.Date.Equal(prev) {
			return fmt.Errorf("%w: %s", ErrDuplicateDate, p.Date.Format("2006-01-02"))
		}
		if p.Date.Before(prev) {
			return fmt.Errorf("%w: %s before %s", ErrUnsortedSeries,
				p.Date.Format("2006-01-02"), prev.Format("2006-01-02"))
		}
	}
	return nil
}

// Closes returns the close column, index-aligned to the series.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Close
	}
	return out
}

// ClipRange returns the sub-series with dates in [from, to] inclusive.
// Zero time bounds are open-ended.
func (s Series) ClipRange(from, to time.Time) Series {
	lo := 0
	for lo < len(s) && !from.IsZero() && s[lo].Date.Before(from) {
		lo++
	}
	hi := len(s)
	for hi > lo && !to.IsZero() && s[hi-1].Date.After(to) {
		hi--
	}
	return s[lo:hi]
}

// Last returns the most recent point, or ok=false for an empty series.
func (s Series) Last() (PricePoint, bool) {
	if len(s) == 0 {
		return PricePoint{}, false
	}
	return s[len(s)-1], true
}
