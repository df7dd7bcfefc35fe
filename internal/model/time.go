package model

import (
	"fmt"
	"strings"
	"time"
)

const (
	// TimestampLayout is the wire format of every date element: UTC with
	// millisecond precision.
	TimestampLayout = "2006-01-02T15:04:05.000Z"
	// DateLayout is used for display and for date-only user input.
	DateLayout = "2006-01-02"
)

// Now returns the current time truncated to what the wire format can hold.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// FormatTimestamp renders t in the wire format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a wire timestamp. Fractional seconds are optional.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid timestamp %q", ErrParse, s)
	}
	return t.UTC(), nil
}

// ParseUserDate accepts either a full timestamp or a local calendar date
// (YYYY-MM-DD), as typed on the command line.
func ParseUserDate(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(DateLayout, s, time.Local); err == nil {
		return t.UTC(), nil
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: expected YYYY-MM-DD or RFC 3339 date, got %q", ErrInvalidArgument, s)
	}
	return t.Truncate(time.Millisecond), nil
}
