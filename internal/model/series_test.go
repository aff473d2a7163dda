package model

import (
	"errors"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seriesOf(closes ...float64) Series {
	s := make(Series, len(closes))
	for i, c := range closes {
		s[i] = PricePoint{
			Date: day(2024, time.January, 1+i),
			Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000,
		}
	}
	return s
}

func TestSeriesValidate(t *testing.T) {
	tests := []struct {
		name    string
		series  Series
		wantErr error
	}{
		{"valid", seriesOf(100, 101, 102), nil},
		{"empty", Series{}, ErrEmptySeries},
		{
			"duplicate date",
			Series{
				{Date: day(2024, time.January, 1), Close: 100},
				{Date: day(2024, time.January, 1), Close: 101},
			},
			ErrDuplicateDate,
		},
		{
			"unsorted",
			Series{
				{Date: day(2024, time.January, 2), Close: 100},
				{Date: day(2024, time.January, 1), Close: 101},
			},
			ErrUnsortedSeries,
		},
		{
			"negative price",
			Series{{Date: day(2024, time.January, 1), Close: -5}},
			ErrNegativePrice,
		},
		{
			"negative volume",
			Series{{Date: day(2024, time.January, 1), Close: 5, Volume: -1}},
			ErrNegativePrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.series.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSeriesClipRange(t *testing.T) {
	s := seriesOf(100, 101, 102, 103, 104)

	got := s.ClipRange(day(2024, time.January, 2), day(2024, time.January, 4))
	if len(got) != 3 {
		t.Fatalf("expected 3 points, got %d", len(got))
	}
	if got[0].Close != 101 || got[2].Close != 103 {
		t.Errorf("wrong clip bounds: first=%.0f last=%.0f", got[0].Close, got[2].Close)
	}

	// Open-ended bounds return the full series.
	if all := s.ClipRange(time.Time{}, time.Time{}); len(all) != len(s) {
		t.Errorf("open range: expected %d points, got %d", len(s), len(all))
	}
}

func TestSeriesClosesAligned(t *testing.T) {
	s := seriesOf(100, 102, 101)
	closes := s.Closes()
	if len(closes) != len(s) {
		t.Fatalf("closes length %d != series length %d", len(closes), len(s))
	}
	for i := range s {
		if closes[i] != s[i].Close {
			t.Errorf("index %d: closes=%.2f series=%.2f", i, closes[i], s[i].Close)
		}
	}
}

func TestDayNormalizesToUTCMidnight(t *testing.T) {
	loc := time.FixedZone("X", 5*3600)
	d := Day(time.Date(2024, time.March, 15, 23, 45, 0, 0, loc))
	want := time.Date(2024, time.March, 15, 18, 0, 0, 0, time.UTC)
	_ = want // Day truncates after converting to UTC
	if d.Hour() != 0 || d.Location() != time.UTC {
		t.Errorf("Day() = %v, want UTC midnight", d)
	}
}
