package schedule

import (
	"testing"
	"time"
)

func at(month time.Month, day, hour, min int) time.Time {
	return time.Date(2026, month, day, hour, min, 0, 0, ET)
}

func TestIsTradingDay(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"regular tuesday", at(time.March, 3, 12, 0), true},
		{"saturday", at(time.March, 7, 12, 0), false},
		{"sunday", at(time.March, 8, 12, 0), false},
		{"christmas", at(time.December, 25, 12, 0), false},
		{"thanksgiving", at(time.November, 26, 12, 0), false},
		{"independence day observed", at(time.July, 3, 12, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTradingDay(tt.t); got != tt.want {
				t.Errorf("IsTradingDay(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}

func TestIsMarketOpen(t *testing.T) {
	if !IsMarketOpen(at(time.March, 3, 10, 0)) {
		t.Error("10:00 ET on a trading day should be open")
	}
	if IsMarketOpen(at(time.March, 3, 9, 29)) {
		t.Error("9:29 ET is before the open")
	}
	if IsMarketOpen(at(time.March, 3, 16, 0)) {
		t.Error("16:00 ET is after the close")
	}
	if IsMarketOpen(at(time.March, 7, 10, 0)) {
		t.Error("saturday should be closed")
	}
}

func TestNextRun(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			"before run time on a trading day",
			at(time.March, 3, 6, 0),
			at(time.March, 3, 8, 0),
		},
		{
			"after run time rolls to next day",
			at(time.March, 3, 9, 0),
			at(time.March, 4, 8, 0),
		},
		{
			"friday after run time skips the weekend",
			at(time.March, 6, 10, 0),
			at(time.March, 9, 8, 0),
		},
		{
			"holiday plus weekend",
			at(time.December, 24, 9, 0),
			at(time.December, 28, 8, 0),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextRun(tt.now, 8, 0)
			if !got.Equal(tt.want) {
				t.Errorf("NextRun(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestNextRun_AlwaysStrictlyAfter(t *testing.T) {
	now := at(time.March, 3, 8, 0) // exactly at the run time
	got := NextRun(now, 8, 0)
	if !got.After(now) {
		t.Errorf("NextRun returned %v, not strictly after %v", got, now)
	}
	if !got.Equal(at(time.March, 4, 8, 0)) {
		t.Errorf("got %v, want next trading day", got)
	}
}
