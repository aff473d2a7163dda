package ingest

import (
	"sort"
	"time"

	"index-systemv1/internal/model"
)

// Clean normalizes a raw provider series so it passes model validation:
// rows with a non-positive close, a negative price field or negative volume
// are dropped, duplicate calendar days keep the last row seen (providers
// resend the current day as it updates), and the result is sorted ascending
// by date.
func Clean(raw model.Series) model.Series {
	byDay := make(map[int64]model.PricePoint, len(raw))
	for _, p := range raw {
		if p.Close <= 0 || p.Open < 0 || p.High < 0 || p.Low < 0 || p.Volume < 0 {
			continue
		}
		p.Date = model.Day(p.Date)
		byDay[p.Date.Unix()] = p
	}

	out := make(model.Series, 0, len(byDay))
	for _, p := range byDay {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// MissingSince returns the suffix of series strictly after the given date.
// It backs the append-only warehouse write: only days the store has never
// seen are handed to it. A zero `after` returns the whole series.
func MissingSince(series model.Series, after time.Time) model.Series {
	if after.IsZero() {
		return series
	}
	i := sort.Search(len(series), func(i int) bool {
		return series[i].Date.After(after)
	})
	return series[i:]
}
