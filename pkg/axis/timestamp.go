package axis

import (
	"fmt"
	"strconv"
	"strings"
)

// Timestamp is a dataset instant with hourly resolution.
//
// Its text form is "YYYY-MM-DD-H", e.g. "2011-09-13-0".
type Timestamp struct {
	Year  int
	Month int
	Day   int
	Hour  int
}

// ParseTimestamp parses the "YYYY-MM-DD-H" form. Leading zeros are optional.
func ParseTimestamp(s string) (Timestamp, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 4 {
		return Timestamp{}, fmt.Errorf("invalid timestamp %q: expected YYYY-MM-DD-H", s)
	}

	var vals [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Timestamp{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		vals[i] = n
	}

	ts := Timestamp{Year: vals[0], Month: vals[1], Day: vals[2], Hour: vals[3]}
	if ts.Month < 1 || ts.Month > 12 || ts.Day < 1 || ts.Day > 31 || ts.Hour < 0 || ts.Hour > 23 {
		return Timestamp{}, fmt.Errorf("invalid timestamp %q: field out of range", s)
	}
	return ts, nil
}

// MustParseTimestamp is like ParseTimestamp but panics on error.
func MustParseTimestamp(s string) Timestamp {
	ts, err := ParseTimestamp(s)
	if err != nil {
		panic(err)
	}
	return ts
}

// String returns the canonical "YYYY-MM-DD-H" form.
func (t Timestamp) String() string {
	return fmt.Sprintf("%04d-%02d-%02d-%d", t.Year, t.Month, t.Day, t.Hour)
}

// Before reports whether t is strictly earlier than u.
func (t Timestamp) Before(u Timestamp) bool {
	if t.Year != u.Year {
		return t.Year < u.Year
	}
	if t.Month != u.Month {
		return t.Month < u.Month
	}
	if t.Day != u.Day {
		return t.Day < u.Day
	}
	return t.Hour < u.Hour
}

// MarshalText implements encoding.TextMarshaler.
func (t Timestamp) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Timestamp) UnmarshalText(text []byte) error {
	ts, err := ParseTimestamp(string(text))
	if err != nil {
		return err
	}
	*t = ts
	return nil
}
