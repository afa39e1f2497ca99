package scheduler

import (
	"slices"
	"time"
)

// Schedule returns the next run time strictly after now.
type Schedule func(now time.Time) time.Time

// Every runs at a fixed interval.
func Every(d time.Duration) Schedule {
	return func(now time.Time) time.Time {
		return now.Add(d)
	}
}

// WeeklyAt runs at hour:minute local time in loc on each of the given weekdays.
func WeeklyAt(loc *time.Location, hour, minute int, days ...time.Weekday) Schedule {
	return func(now time.Time) time.Time {
		local := now.In(loc)
		for i := 0; i <= 7; i++ {
			d := local.AddDate(0, 0, i)
			at := time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, loc)
			if at.After(now) && slices.Contains(days, at.Weekday()) {
				return at
			}
		}
		// Unreachable for a non-empty day list.
		return local.AddDate(0, 0, 7)
	}
}
