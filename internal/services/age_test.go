package services

import (
	"testing"
	"time"
)

func TestCompletedYearsCountsBirthdayOnlyOnceReached(t *testing.T) {
	now := time.Date(2026, time.October, 17, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		birthDate time.Time
		want      int
	}{
		{name: "birthday today", birthDate: time.Date(1980, time.October, 17, 0, 0, 0, 0, time.UTC), want: 46},
		{name: "birthday tomorrow", birthDate: time.Date(1980, time.October, 18, 0, 0, 0, 0, time.UTC), want: 45},
		{name: "birthday next month", birthDate: time.Date(1980, time.November, 1, 0, 0, 0, 0, time.UTC), want: 45},
		{name: "birthday earlier this year", birthDate: time.Date(1980, time.January, 31, 0, 0, 0, 0, time.UTC), want: 46},
		{name: "born today", birthDate: time.Date(2026, time.October, 17, 0, 0, 0, 0, time.UTC), want: 0},
		{name: "missing birth date", birthDate: time.Time{}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompletedYears(tt.birthDate, now); got != tt.want {
				t.Fatalf("CompletedYears() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMonthsBetweenIgnoresDayOfMonth(t *testing.T) {
	start := time.Date(2025, time.September, 30, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)
	if got := monthsBetween(start, end); got != 13 {
		t.Fatalf("monthsBetween() = %d, want 13", got)
	}
	if got := monthsBetween(end, start); got != -13 {
		t.Fatalf("monthsBetween() reversed = %d, want -13", got)
	}
}

func TestFormatMonthYearUsesPortugueseMonthNames(t *testing.T) {
	tests := map[time.Month]string{
		time.January:  "janeiro de 2027",
		time.March:    "março de 2027",
		time.December: "dezembro de 2027",
	}
	for month, want := range tests {
		if got := FormatMonthYear(time.Date(2027, month, 5, 0, 0, 0, 0, time.UTC)); got != want {
			t.Fatalf("FormatMonthYear(%s) = %q, want %q", month, got, want)
		}
	}
}
