package model

import (
	"fmt"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// Date is a calendar day in the business's local wall clock, zero padded so
// string order equals chronological order.
type Date string

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil || t.Format(DateLayout) != s {
		return "", fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return Date(s), nil
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

func (d Date) String() string { return string(d) }

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, string(d), loc)
}

func (d Date) AddDays(n int) Date {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return d
	}
	return DateOf(t.AddDate(0, 0, n))
}

func (d Date) Weekday() (time.Weekday, error) {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return 0, err
	}
	return t.Weekday(), nil
}

// Clock is a time of day as HH:MM (24h, zero padded).
type Clock string

func ParseClock(s string) (Clock, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil || t.Format(ClockLayout) != s {
		return "", fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	return Clock(s), nil
}

func ClockOf(t time.Time) Clock {
	return Clock(t.Format(ClockLayout))
}

// ClockFromMinutes formats minutes since midnight; callers keep m within a day.
func ClockFromMinutes(m int) Clock {
	return Clock(fmt.Sprintf("%02d:%02d", m/60, m%60))
}

func (c Clock) String() string { return string(c) }

// Minutes since midnight, or -1 when c is malformed.
func (c Clock) Minutes() int {
	t, err := time.Parse(ClockLayout, string(c))
	if err != nil {
		return -1
	}
	return t.Hour()*60 + t.Minute()
}

func (c Clock) Hour() int {
	m := c.Minutes()
	if m < 0 {
		return -1
	}
	return m / 60
}

// At combines a day and a time of day into an instant in loc.
func At(d Date, c Clock, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+ClockLayout, string(d)+" "+string(c), loc)
}
