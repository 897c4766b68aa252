// Package timeutil converts between "HH:MM" clock strings and minute offsets.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// MinutesPerDay is 24 hours * 60 minutes
	MinutesPerDay = 1440
	// DefaultStart is where a schedule begins when nothing else anchors it
	DefaultStart = "09:00"
	// MaxBlockMinutes is the longest single block a schedule may carry. Anything
	// longer reads as an end time typed before its start.
	MaxBlockMinutes = MinutesPerDay / 2
)

// FormatError reports a string that is not a zero-padded 24-hour "HH:MM" time
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid time %q: %s", e.Input, e.Reason)
}

// ToMinutes parses a zero-padded 24-hour "HH:MM" string to minutes since midnight
func ToMinutes(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, &FormatError{Input: s, Reason: "expected HH:MM"}
	}
	h, err := parseDigits(s[:2])
	if err != nil {
		return 0, &FormatError{Input: s, Reason: "hour is not numeric"}
	}
	m, err := parseDigits(s[3:])
	if err != nil {
		return 0, &FormatError{Input: s, Reason: "minute is not numeric"}
	}
	if h > 23 {
		return 0, &FormatError{Input: s, Reason: "hour out of range"}
	}
	if m > 59 {
		return 0, &FormatError{Input: s, Reason: "minute out of range"}
	}
	return h*60 + m, nil
}

// MustMinutes is ToMinutes for values already known to be valid
func MustMinutes(s string) int {
	m, err := ToMinutes(s)
	if err != nil {
		panic(err)
	}
	return m
}

func parseDigits(s string) (int, error) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-digit %q", r)
		}
	}
	return strconv.Atoi(s)
}

// ToTimeString formats minutes since midnight as "HH:MM", wrapping modulo one day.
// Negative input wraps backwards onto the previous day's clock.
func ToTimeString(minutes int) string {
	m := minutes % MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// Duration returns end minus start in minutes. It is negative when end is
// textually earlier than start.
func Duration(start, end string) (int, error) {
	s, err := ToMinutes(start)
	if err != nil {
		return 0, err
	}
	e, err := ToMinutes(end)
	if err != nil {
		return 0, err
	}
	return e - s, nil
}

// Span is the length of a block that ends later the same day or on the next
// day, so it is never negative.
func Span(start, end string) (int, error) {
	d, err := Duration(start, end)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		d += MinutesPerDay
	}
	return d, nil
}

// CheckSpan returns the block length when it is positive and at most
// MaxBlockMinutes.
func CheckSpan(start, end string) (int, error) {
	d, err := Span(start, end)
	if err != nil {
		return 0, err
	}
	if d == 0 || d > MaxBlockMinutes {
		return 0, &FormatError{Input: start + "-" + end, Reason: fmt.Sprintf("block length %s is outside 1m..%s", FormatDuration(d), FormatDuration(MaxBlockMinutes))}
	}
	return d, nil
}

// Normalize accepts "H:MM" or "HH:MM" (surrounding space allowed) and returns the
// zero-padded form.
func Normalize(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) == 4 && trimmed[1] == ':' {
		trimmed = "0" + trimmed
	}
	m, err := ToMinutes(trimmed)
	if err != nil {
		return "", &FormatError{Input: s, Reason: err.(*FormatError).Reason}
	}
	return ToTimeString(m), nil
}

// Clock is a time of day together with how many midnights precede it
type Clock struct {
	Day     int
	Minutes int
}

// Split turns an absolute minute count into a day offset and a clock time
func Split(abs int) Clock {
	day := abs / MinutesPerDay
	m := abs % MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
		day--
	}
	return Clock{Day: day, Minutes: m}
}

// Abs returns the absolute minute count
func (c Clock) Abs() int {
	return c.Day*MinutesPerDay + c.Minutes
}

// String renders the clock as "HH:MM" without the day offset
func (c Clock) String() string {
	return ToTimeString(c.Minutes)
}

// FormatDuration renders minutes as "45m", "2h" or "1h 30m"
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	h := minutes / 60
	m := minutes % 60
	if m > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dh", h)
}
