// Package strategy derives discrete position-intent events from indicator
// crossovers.
//
// Only one rule is implemented: the SMA crossover. A golden cross (short
// window rising above the long window) intends a long position; a death cross
// (short falling below long) intends cash. The generator is a pure function of
// its input lines: no clock, no randomness, no external state.
package strategy

import (
	"errors"

	"index-systemv1/internal/indicator"
	"index-systemv1/internal/model"
)

// ErrLineMismatch is returned when the indicator lines are not aligned to the
// series they were computed from.
var ErrLineMismatch = errors.New("indicator lines not aligned to series")

// GenerateSignals scans aligned short- and long-window SMA lines and emits
// position-intent transitions: ENTER_LONG on a golden cross, EXIT_TO_CASH on
// a death cross.
//
// Indices where either line is undefined are skipped; no signal can exist
// before both windows have enough history. The generator tracks the intended
// position (flat or long) and emits an event only when the rule would change
// it, so repeated or equal readings never produce duplicates. At the first
// index where both lines are defined, the intent is aligned to the rule: a
// series already in an uptrend produces an immediate ENTER_LONG there rather
// than waiting for the next cross.
func GenerateSignals(series model.Series, short, long []indicator.Point) ([]model.SignalEvent, error) {
	if len(short) != len(series) || len(long) != len(series) {
		return nil, ErrLineMismatch
	}

	var events []model.SignalEvent
	inLong := false
	seen := false

	for i := range series {
		if !short[i].Valid || !long[i].Valid {
			continue
		}

		want := inLong
		switch {
		case short[i].Value > long[i].Value:
			want = true
		case short[i].Value < long[i].Value:
			want = false
		}
		// Equal readings hold the current intent.

		if !seen {
			seen = true
			if want {
				events = append(events, model.SignalEvent{
					Index: i, Date: series[i].Date, Kind: model.SignalEnterLong,
				})
			}
			inLong = want
			continue
		}

		if want == inLong {
			continue
		}
		kind := model.SignalExitToCash
		if want {
			kind = model.SignalEnterLong
		}
		events = append(events, model.SignalEvent{Index: i, Date: series[i].Date, Kind: kind})
		inLong = want
	}

	return events, nil
}
