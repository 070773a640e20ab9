package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire and DATE column layout.
const DateLayout = "2006-01-02"

// Clock is a wall-clock time of day in whole minutes since midnight.  It
// maps to MySQL TIME columns and to "HH:MM" in JSON.
type Clock int

// MinutesPerDay bounds a valid Clock (exclusive).
const MinutesPerDay = 24 * 60

// ParseClock accepts "HH:MM" or "HH:MM:SS".  Seconds must be zero.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || len(p) != 2 || v < 0 {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
		n[i] = v
	}
	if n[0] > 23 || n[1] > 59 || n[2] != 0 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return Clock(n[0]*60 + n[1]), nil
}

// ClockOf returns the time of day of t, truncated to the minute.
func ClockOf(t time.Time) Clock { return Clock(t.Hour()*60 + t.Minute()) }

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60) }

// Add returns c shifted by minutes.  The result may reach or pass midnight;
// callers compare against an end bound before using it.
func (c Clock) Add(minutes int) Clock { return c + Clock(minutes) }

// On returns the instant at c on the calendar date of day, in day's location.
func (c Clock) On(day time.Time) time.Time {
	y, mo, d := day.Date()
	return time.Date(y, mo, d, int(c)/60, int(c)%60, 0, 0, day.Location())
}

// Value implements driver.Valuer.
func (c Clock) Value() (driver.Value, error) { return c.String() + ":00", nil }

// Scan implements sql.Scanner for TIME columns.
func (c *Clock) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return c.parseInto(string(v))
	case string:
		return c.parseInto(v)
	case time.Time:
		*c = ClockOf(v)
		return nil
	case nil:
		return fmt.Errorf("clock: NULL time")
	}
	return fmt.Errorf("clock: unsupported type %T", src)
}

func (c *Clock) parseInto(s string) error {
	// TIME columns may carry fractional seconds
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	v, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (c Clock) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

func (c *Clock) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return c.parseInto(s)
}

// Weekday numbers days with 0 = Monday through 6 = Sunday.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// WeekdayOf converts time.Weekday (Sunday = 0) to Weekday (Monday = 0).
func WeekdayOf(t time.Time) Weekday { return Weekday((int(t.Weekday()) + 6) % 7) }

// Valid reports whether w is in 0..6.
func (w Weekday) Valid() bool { return w >= Monday && w <= Sunday }

// ParseDate parses a YYYY-MM-DD calendar date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// DateOf truncates t to its calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
