package starschema

import "time"

// StartTime converts epoch milliseconds to a UTC instant truncated to the
// whole second, matching the integer division the warehouse performs.
func StartTime(ms int64) time.Time {
	return time.Unix(ms/1000, 0).UTC()
}

// Decompose splits an instant into the time dimension's calendar parts.
// Week is ISO-8601; year stays the calendar year; weekday 0 is Sunday.
func Decompose(t time.Time) Time {
	t = t.UTC()
	_, week := t.ISOWeek()
	return Time{
		StartTime: t,
		Hour:      t.Hour(),
		Day:       t.Day(),
		Week:      week,
		Month:     int(t.Month()),
		Year:      t.Year(),
		Weekday:   int(t.Weekday()),
	}
}
