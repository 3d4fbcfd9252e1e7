// Package dateparse parses the "since" points in time accepted by the
// history commands.
package dateparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseSince parses input relative to the current time.
//
// Supported formats:
//   - Exact dates: "2026-03-01" (local midnight)
//   - Durations ago: "90m", "2h", "1h30m"
//   - Relative days: "3d" or "-3d"
//   - Relative weeks: "2w" or "-2w"
//   - Relative months: "1mo" or "-1mo"
//   - Day names: "monday", "tuesday", etc. (most recent, today excluded)
//   - Keywords: "today", "yesterday", "last-week"
func ParseSince(input string) (time.Time, error) {
	return ParseSinceFrom(input, time.Now())
}

// ParseSinceFrom parses input relative to now.
func ParseSinceFrom(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return time.Time{}, fmt.Errorf("empty since input")
	}

	if t, err := time.ParseInLocation("2006-01-02", input, now.Location()); err == nil {
		return t, nil
	}

	today := midnight(now)
	switch input {
	case "today":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	case "last-week":
		return today.AddDate(0, 0, -7), nil
	}

	rel := strings.TrimPrefix(input, "-")
	for _, u := range []struct {
		suffix      string
		days, month int
	}{
		{"mo", 0, 1},
		{"d", 1, 0},
		{"w", 7, 0},
	} {
		numStr, ok := strings.CutSuffix(rel, u.suffix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(numStr)
		if err != nil || n < 0 {
			break
		}
		return now.AddDate(0, -n*u.month, -n*u.days), nil
	}

	if d, err := time.ParseDuration(rel); err == nil && d >= 0 {
		return now.Add(-d), nil
	}

	dayMap := map[string]time.Weekday{
		"sunday":    time.Sunday,
		"monday":    time.Monday,
		"tuesday":   time.Tuesday,
		"wednesday": time.Wednesday,
		"thursday":  time.Thursday,
		"friday":    time.Friday,
		"saturday":  time.Saturday,
	}
	if target, ok := dayMap[input]; ok {
		daysBack := (int(now.Weekday()) - int(target) + 7) % 7
		if daysBack == 0 {
			daysBack = 7
		}
		return today.AddDate(0, 0, -daysBack), nil
	}

	return time.Time{}, fmt.Errorf("unrecognized since format: %q", input)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
