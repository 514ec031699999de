// Package helpers provides the field-level rules shared by the document
// assemblers: date parsing, sort keys, identifier handling and the visual
// materials text rules.
package helpers

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/now"
)

// ErrUnparsableDate is returned when no date can be read from a value.
var ErrUnparsableDate = errors.New("unparsable date")

var (
	// Year only: 1978
	yearOnlyRegex = regexp.MustCompile(`^(\d{4})$`)

	// Year-month: 1978-03
	yearMonthRegex = regexp.MustCompile(`^(\d{4})-(\d{1,2})$`)

	// Full date: 1978-03-15
	fullDateRegex = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)

	// ISO timestamp: 2024-12-13T22:43:14+00:00
	timestampRegex = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})T(\d{2}):(\d{2}):(\d{2})`)
)

// humanLayouts are the written-out forms catalogers use. Every layout
// carries a year so nothing is filled in from the wall clock.
var humanLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2006",
	"Jan 2006",
	"1/2/2006",
	"2006/1/2",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC822,
}

var humanDates = &now.Config{
	TimeLocation: time.UTC,
	TimeFormats:  humanLayouts,
}

// ParseDate reads a free-form date. ISO forms are tried first; anything else
// must match one of humanLayouts ("July 1, 2010", "May 2030",
// "1/2/2006", RFC 1123 and so on).
func ParseDate(input string) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, ErrUnparsableDate
	}

	// Try timestamp first (ISO 8601)
	if t, err := time.Parse(time.RFC3339, input); err == nil {
		return t, nil
	}
	if timestampRegex.MatchString(input) {
		layouts := []string{
			"2006-01-02T15:04:05Z07:00",
			"2006-01-02T15:04:05",
			"2006-01-02 15:04:05",
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, input); err == nil {
				return t, nil
			}
		}
	}

	if m := fullDateRegex.FindStringSubmatch(input); m != nil {
		return civil(m[1], m[2], m[3])
	}
	if m := yearMonthRegex.FindStringSubmatch(input); m != nil {
		return civil(m[1], m[2], "1")
	}
	if m := yearOnlyRegex.FindStringSubmatch(input); m != nil {
		return civil(m[1], "1", "1")
	}

	t, err := humanDates.Parse(input)
	if err != nil {
		return time.Time{}, ErrUnparsableDate
	}
	return t, nil
}

func civil(y, m, d string) (time.Time, error) {
	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(m)
	day, _ := strconv.Atoi(d)
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, ErrUnparsableDate
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, ErrUnparsableDate
	}
	return t, nil
}

// EarliestYear returns the year of the earliest parsable value. Values that
// do not parse are ignored; no parsable value means no year.
func EarliestYear(values []string) (int, bool) {
	var earliest time.Time
	found := false
	for _, v := range values {
		t, err := ParseDate(v)
		if err != nil {
			continue
		}
		if !found || t.Before(earliest) {
			earliest = t
			found = true
		}
	}
	if !found {
		return 0, false
	}
	return earliest.Year(), true
}

// IntegerYear reports whether the first value is a plain integer, as class
// years are.
func IntegerYear(values []string) (string, bool) {
	if len(values) == 0 {
		return "", false
	}
	v := strings.TrimSpace(values[0])
	if _, err := strconv.Atoi(v); err != nil {
		return "", false
	}
	return v, true
}

// FormatLongDate renders a date as "January 2, 2006".
func FormatLongDate(t time.Time) string {
	return t.Format("January 2, 2006")
}
