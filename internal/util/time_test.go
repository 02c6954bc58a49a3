package util

import (
	"math"
	"testing"
	"time"
)

func TestDayIndexRoundTrip(t *testing.T) {
	dates := []string{"1969-12-31", "1970-01-01", "2000-02-29", "2023-12-31", "2024-02-29", "2024-03-01", "2099-01-01"}
	for _, d := range dates {
		if got := DateFromIndex(DayIndex(d)); got != d {
			t.Fatalf("round trip of %s produced %s", d, got)
		}
	}

	if DayIndex("1970-01-01") != 0 {
		t.Fatalf("epoch must be index 0")
	}
	if DayIndex("1969-12-31") != -1 {
		t.Fatalf("day before epoch must be index -1, got %d", DayIndex("1969-12-31"))
	}
	if DayIndex("2024-03-01")-DayIndex("2024-02-28") != 2 {
		t.Fatalf("leap day not counted")
	}
}

func TestParseDayIndexRejectsMalformed(t *testing.T) {
	for _, bad := range []string{"", "2024-13-01", "2024/01/01", "2023-02-29"} {
		if _, err := ParseDayIndex(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestDateRange(t *testing.T) {
	dates := DateRange("2024-02-27", "2024-03-02")
	want := []string{"2024-02-27", "2024-02-28", "2024-02-29", "2024-03-01", "2024-03-02"}
	if len(dates) != len(want) {
		t.Fatalf("expected %d dates, got %d", len(want), len(dates))
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Fatalf("index %d: expected %s, got %s", i, want[i], dates[i])
		}
	}

	start, end := "2023-11-20", "2024-01-10"
	long := DateRange(start, end)
	if len(long) != DayIndex(end)-DayIndex(start)+1 {
		t.Fatalf("unexpected length %d", len(long))
	}
	for i := 1; i < len(long); i++ {
		if DayIndex(long[i]) != DayIndex(long[i-1])+1 {
			t.Fatalf("gap between %s and %s", long[i-1], long[i])
		}
	}

	if got := DateRange("2024-01-02", "2024-01-01"); got == nil || len(got) != 0 {
		t.Fatalf("expected empty slice for inverted range, got %v", got)
	}
}

func TestClampWindow(t *testing.T) {
	if got := ClampWindow(nil); got != 365 {
		t.Fatalf("expected default 365, got %d", got)
	}
	for _, tc := range []struct{ in, want int }{
		{-5, 30}, {0, 30}, {29, 30}, {30, 30}, {90, 90}, {3650, 3650}, {99999, 3650},
	} {
		in := tc.in
		got := ClampWindow(&in)
		if got != tc.want {
			t.Fatalf("ClampWindow(%d) = %d, want %d", tc.in, got, tc.want)
		}
		again := ClampWindow(&got)
		if again != got {
			t.Fatalf("ClampWindow not idempotent for %d", tc.in)
		}
	}

	nan := math.NaN()
	inf := math.Inf(1)
	frac := 45.9
	if ClampWindowFloat(&nan) != 365 || ClampWindowFloat(&inf) != 365 || ClampWindowFloat(nil) != 365 {
		t.Fatalf("non-finite input must default to 365")
	}
	if ClampWindowFloat(&frac) != 45 {
		t.Fatalf("expected fractional input to floor to 45")
	}
}

func TestCivilDateCrossesMidnight(t *testing.T) {
	instant := time.Date(2024, 1, 1, 3, 30, 0, 0, time.UTC)

	ny, err := CivilDate(instant, "America/New_York")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ny != "2023-12-31" {
		t.Fatalf("expected New York date 2023-12-31, got %s", ny)
	}

	tokyo, err := CivilDate(instant, "Asia/Tokyo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokyo != "2024-01-01" {
		t.Fatalf("expected Tokyo date 2024-01-01, got %s", tokyo)
	}

	if _, err := CivilDate(instant, "Mars/Olympus"); err == nil {
		t.Fatalf("expected invalid timezone error")
	}
}

func TestIsValidTimezone(t *testing.T) {
	if !IsValidTimezone("UTC") || !IsValidTimezone("Europe/Berlin") {
		t.Fatalf("expected known zones to be valid")
	}
	for _, bad := range []string{"", "Local", "Not/AZone"} {
		if IsValidTimezone(bad) {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestWindows(t *testing.T) {
	now := time.Date(2024, 3, 10, 2, 0, 0, 0, time.UTC)
	la, _ := LoadTimezone("America/Los_Angeles")

	w := WindowEndingToday(la, 30, now)
	if w.EndDate != "2024-03-09" {
		t.Fatalf("expected LA end date 2024-03-09, got %s", w.EndDate)
	}
	if w.EndDayIndex-w.StartDayIndex+1 != 30 || w.StartDate != "2024-02-09" {
		t.Fatalf("unexpected window %+v", w)
	}

	lifetime := WindowFromStart(time.UTC, "2024-03-01", now)
	if lifetime.Days != 10 || lifetime.StartDate != "2024-03-01" || lifetime.EndDate != "2024-03-10" {
		t.Fatalf("unexpected lifetime window %+v", lifetime)
	}

	future := WindowFromStart(time.UTC, "2030-01-01", now)
	if future.Days != 1 || future.StartDate != future.EndDate {
		t.Fatalf("future start must collapse to one day, got %+v", future)
	}
}

func TestWeekday(t *testing.T) {
	if Weekday("2024-01-07") != 0 {
		t.Fatalf("2024-01-07 is a Sunday")
	}
	if Weekday("2024-01-13") != 6 {
		t.Fatalf("2024-01-13 is a Saturday")
	}
}
