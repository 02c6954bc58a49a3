package util

import (
	"fmt"
	"math"
	"time"
	_ "time/tzdata"

	"github.com/enzo-prism/density/pkg/errors"
)

const (
	secondsPerDay = 86400
	dateLayout    = "2006-01-02"

	MinWindowDays     = 30
	MaxWindowDays     = 3650
	DefaultWindowDays = 365
)

// DateWindow is an inclusive range of civil dates together with its day indices.
type DateWindow struct {
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	StartDayIndex int    `json:"-"`
	EndDayIndex   int    `json:"-"`
	Days          int    `json:"lookbackDays"`
}

// LoadTimezone resolves an IANA identifier. "Local" and the empty string are
// rejected because they depend on the host rather than the caller.
func LoadTimezone(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return nil, errors.NewValidationError("Provide a valid IANA timezone, like America/New_York.", "timezone", name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		verr := errors.NewValidationError("Provide a valid IANA timezone, like America/New_York.", "timezone", name)
		verr.WithCause(err)
		return nil, verr
	}
	return loc, nil
}

func IsValidTimezone(name string) bool {
	_, err := LoadTimezone(name)
	return err == nil
}

// CivilDate projects t into the timezone's calendar and returns YYYY-MM-DD.
func CivilDate(t time.Time, tz string) (string, error) {
	loc, err := LoadTimezone(tz)
	if err != nil {
		return "", err
	}
	return CivilDateIn(t, loc), nil
}

func CivilDateIn(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}

// DayIndex treats the date as UTC midnight. Malformed dates are a caller bug
// and map to 0; use ParseDayIndex on untrusted input.
func DayIndex(date string) int {
	idx, err := ParseDayIndex(date)
	if err != nil {
		return 0
	}
	return idx
}

func ParseDayIndex(date string) (int, error) {
	t, err := time.ParseInLocation(dateLayout, date, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("invalid civil date %q: %w", date, err)
	}
	return floorDiv(t.Unix(), secondsPerDay), nil
}

func DateFromIndex(idx int) string {
	return time.Unix(int64(idx)*secondsPerDay, 0).UTC().Format(dateLayout)
}

// DateRange lists every date from start to end inclusive. It returns an empty
// slice when end precedes start.
func DateRange(start, end string) []string {
	startIdx := DayIndex(start)
	endIdx := DayIndex(end)
	if endIdx < startIdx {
		return []string{}
	}
	dates := make([]string, 0, endIdx-startIdx+1)
	for i := startIdx; i <= endIdx; i++ {
		dates = append(dates, DateFromIndex(i))
	}
	return dates
}

// Weekday returns 0 for Sunday through 6 for Saturday.
func Weekday(date string) int {
	t, err := time.ParseInLocation(dateLayout, date, time.UTC)
	if err != nil {
		return 0
	}
	return int(t.Weekday())
}

// ClampWindow bounds a requested lookback to [30, 3650], defaulting to 365.
func ClampWindow(requested *int) int {
	if requested == nil {
		return DefaultWindowDays
	}
	return Clamp(*requested, MinWindowDays, MaxWindowDays)
}

// ClampWindowFloat is ClampWindow for decoded JSON numbers; NaN and ±Inf count as absent.
func ClampWindowFloat(requested *float64) int {
	if requested == nil || math.IsNaN(*requested) || math.IsInf(*requested, 0) {
		return DefaultWindowDays
	}
	floored := math.Floor(*requested)
	if floored < MinWindowDays {
		return MinWindowDays
	}
	if floored > MaxWindowDays {
		return MaxWindowDays
	}
	return int(floored)
}

// WindowEndingToday is the trailing window of the given length ending on
// today's civil date in loc.
func WindowEndingToday(loc *time.Location, days int, now time.Time) DateWindow {
	endDate := CivilDateIn(now, loc)
	endIdx := DayIndex(endDate)
	startIdx := endIdx - days + 1
	return DateWindow{
		StartDate:     DateFromIndex(startIdx),
		EndDate:       endDate,
		StartDayIndex: startIdx,
		EndDayIndex:   endIdx,
		Days:          days,
	}
}

// WindowFromStart spans from startDate to today in loc. A start date in the
// future collapses to a single-day window.
func WindowFromStart(loc *time.Location, startDate string, now time.Time) DateWindow {
	endDate := CivilDateIn(now, loc)
	endIdx := DayIndex(endDate)
	startIdx := DayIndex(startDate)
	if startIdx > endIdx {
		startIdx = endIdx
	}
	return DateWindow{
		StartDate:     DateFromIndex(startIdx),
		EndDate:       endDate,
		StartDayIndex: startIdx,
		EndDayIndex:   endIdx,
		Days:          endIdx - startIdx + 1,
	}
}

func floorDiv(a, b int64) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return int(q)
}
