package dateparse

import (
	"testing"
	"time"
)

// Fixed reference time: Wednesday, 2026-02-18 12:00:00 UTC
var testNow = time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseSince_ExactDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2026-03-01", day(2026, 3, 1)},
		{"2025-12-31", day(2025, 12, 31)},
	}
	for _, tt := range tests {
		got, err := ParseSinceFrom(tt.input, testNow)
		if err != nil {
			t.Errorf("ParseSinceFrom(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseSinceFrom(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseSince_Keywords(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"today", day(2026, 2, 18)},
		{"Yesterday", day(2026, 2, 17)},
		{"last-week", day(2026, 2, 11)},
	}
	for _, tt := range tests {
		got, err := ParseSinceFrom(tt.input, testNow)
		if err != nil {
			t.Errorf("ParseSinceFrom(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseSinceFrom(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseSince_Relative(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"3d", testNow.AddDate(0, 0, -3)},
		{"-3d", testNow.AddDate(0, 0, -3)},
		{"0d", testNow},
		{"2w", testNow.AddDate(0, 0, -14)},
		{"1mo", time.Date(2026, 1, 18, 12, 0, 0, 0, time.UTC)},
		{"90m", testNow.Add(-90 * time.Minute)},
		{"1h30m", testNow.Add(-90 * time.Minute)},
		{"-2h", testNow.Add(-2 * time.Hour)},
	}
	for _, tt := range tests {
		got, err := ParseSinceFrom(tt.input, testNow)
		if err != nil {
			t.Errorf("ParseSinceFrom(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseSinceFrom(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseSince_DayNames(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"monday", day(2026, 2, 16)},
		{"tuesday", day(2026, 2, 17)},
		{"wednesday", day(2026, 2, 11)}, // today is excluded
		{"thursday", day(2026, 2, 12)},
		{"sunday", day(2026, 2, 15)},
	}
	for _, tt := range tests {
		got, err := ParseSinceFrom(tt.input, testNow)
		if err != nil {
			t.Errorf("ParseSinceFrom(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseSinceFrom(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseSince_Errors(t *testing.T) {
	for _, input := range []string{"", "   ", "soon", "xd", "+3q", "2026-13-01", "-5x"} {
		if _, err := ParseSinceFrom(input, testNow); err == nil {
			t.Errorf("ParseSinceFrom(%q): expected error", input)
		}
	}
}

func TestParseSince_UsesNow(t *testing.T) {
	before := time.Now()
	got, err := ParseSince("0d")
	if err != nil {
		t.Fatalf("ParseSince failed: %v", err)
	}
	if got.Before(before) {
		t.Errorf("ParseSince(0d) = %v, want >= %v", got, before)
	}
}
