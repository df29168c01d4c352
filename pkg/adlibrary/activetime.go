package adlibrary

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{"2 Jan 2006", "2 January 2006", "Jan 2, 2006", "January 2, 2006"}

var errBadDate = errors.New("unrecognized date")

// parseDate reads a calendar date at UTC midnight so spans never cross a DST
// transition.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errBadDate
}

// ParseActiveTime converts the card's active-time label into days. Two shapes
// are understood:
//
//	"1 Jan 2025 - 3 Jan 2025 · Total active time 5 hrs"
//	"Started running on 1 Jan 2025 · Total active time 5 hrs"
//
// The second one counts whole days up to now. Anything else, including
// unparseable dates, yields 0. The result is never negative.
func ParseActiveTime(text string, now time.Time) float64 {
	var days float64
	switch {
	case strings.Contains(text, " - "):
		parts := strings.SplitN(text, " - ", 2)
		start, err := parseDate(parts[0])
		if err != nil {
			return 0
		}
		endStr := strings.SplitN(parts[1], " · ", 2)[0]
		end, err := parseDate(endStr)
		if err != nil {
			return 0
		}
		days = wholeDays(end.Sub(start))
	case strings.Contains(text, "Started running on"):
		first := strings.SplitN(text, "·", 2)[0]
		start, err := parseDate(strings.Replace(first, "Started running on", "", 1))
		if err != nil {
			return 0
		}
		days = wholeDays(wallClockUTC(now).Sub(start))
	default:
		return 0
	}

	if parts := strings.SplitN(text, "·", 2); len(parts) == 2 {
		days += activeHours(parts[1]) / 24
	}
	return math.Max(days, 0)
}

// wallClockUTC keeps now's local date and time but drops its zone offset.
func wallClockUTC(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), time.UTC)
}

func wholeDays(d time.Duration) float64 {
	return math.Floor(d.Hours() / 24)
}

// activeHours reads "Total active time N hrs". Unknown units count as 0.
func activeHours(s string) float64 {
	s = strings.TrimSpace(strings.Replace(s, "Total active time", "", 1))
	if !strings.Contains(s, "hr") {
		return 0
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	h, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || h < 0 {
		return 0
	}
	return h
}
