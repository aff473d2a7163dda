// Package schedule decides when the daily pipeline runs: once per exchange
// trading day at a fixed local time, skipping weekends and holidays.
package schedule

import (
	"context"
	"log"
	"time"
)

// ET is the exchange's local time zone.
var ET = loadET()

func loadET() *time.Location {
	if loc, err := time.LoadLocation("America/New_York"); err == nil {
		return loc
	}
	// tzdata missing on the host; daylight saving shifts the run by an hour
	return time.FixedZone("EST", -5*3600)
}

// Regular session hours in ET.
const (
	OpenHour    = 9
	OpenMinute  = 30
	CloseHour   = 16
	CloseMinute = 0
)

// IsWeekday returns true if t is Mon-Fri in ET.
func IsWeekday(t time.Time) bool {
	wd := t.In(ET).Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// IsTradingDay returns true if t is a weekday and not a holiday.
func IsTradingDay(t time.Time) bool {
	et := t.In(ET)
	return IsWeekday(et) && !IsHoliday(et)
}

// IsMarketOpen returns true if t falls within the regular session
// (9:30 AM - 4:00 PM ET, Mon-Fri, excluding holidays).
func IsMarketOpen(t time.Time) bool {
	et := t.In(ET)
	if !IsTradingDay(et) {
		return false
	}
	hm := et.Hour()*60 + et.Minute()
	return hm >= OpenHour*60+OpenMinute && hm < CloseHour*60+CloseMinute
}

// NextRun returns the first instant strictly after t that falls on a trading
// day at hour:minute ET.
func NextRun(t time.Time, hour, minute int) time.Time {
	et := t.In(ET)

	candidate := time.Date(et.Year(), et.Month(), et.Day(), hour, minute, 0, 0, ET)
	if !candidate.After(et) || !IsTradingDay(candidate) {
		d := candidate.AddDate(0, 0, 1)
		for i := 0; i < 10; i++ { // weekends plus holiday clusters
			if IsTradingDay(d) && d.After(et) {
				return d
			}
			d = d.AddDate(0, 0, 1)
		}
		return d
	}
	return candidate
}

// Scheduler triggers a job at hour:minute ET on every trading day.
type Scheduler struct {
	Hour   int
	Minute int
}

// Run blocks until ctx is cancelled, invoking fn at each scheduled instant.
// A failed run is logged and does not stop the schedule.
func (s *Scheduler) Run(ctx context.Context, fn func(context.Context) error) {
	for {
		next := NextRun(time.Now(), s.Hour, s.Minute)
		wait := time.Until(next)
		log.Printf("[schedule] next run at %s (in %s)", next.Format(time.RFC1123), wait.Round(time.Second))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		start := time.Now()
		if err := fn(ctx); err != nil {
			log.Printf("[schedule] run failed after %v: %v", time.Since(start).Round(time.Millisecond), err)
			continue
		}
		log.Printf("[schedule] run completed in %v", time.Since(start).Round(time.Millisecond))
	}
}
