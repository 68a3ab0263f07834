package model

import "time"

// DayLayout is the ISO date layout used for history keys.
const DayLayout = "2006-01-02"

// DayKey returns the local calendar date key for t.
func DayKey(t time.Time) string {
	return t.Format(DayLayout)
}

// ParseDayKey parses a history key in loc.
func ParseDayKey(key string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DayLayout, key, loc)
}

// StartOfDay truncates t to local midnight.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WeekStart returns the most recent Sunday (inclusive) at local midnight.
func WeekStart(t time.Time) time.Time {
	day := StartOfDay(t)
	return day.AddDate(0, 0, -int(day.Weekday()))
}
