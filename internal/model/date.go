package model

import (
	"fmt"
	"time"
)

const (
	// CompactDateLayout is the 8-digit form the MySportsFeeds API expects.
	CompactDateLayout = "20060102"
	// DateLayout is the form used in object keys.
	DateLayout = "2006-01-02"
)

// SeasonType is the part of a season identifier after the years.
type SeasonType string

const (
	Regular  SeasonType = "regular"
	Playoff  SeasonType = "playoff"
	Playoffs SeasonType = "playoffs" // MoneyPuck spelling
)

// seasonStartMonth is the first month counted towards a new NHL season.
const seasonStartMonth = time.October

// ParseDate accepts both YYYYMMDD and YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range []string{CompactDateLayout, DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q must be YYYYMMDD or YYYY-MM-DD", s)
}

// Today returns the current calendar date in loc, at midnight UTC so that
// formatting never rolls over to a neighbouring day.
func Today(now time.Time, loc *time.Location) time.Time {
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SeasonStartYear returns the calendar year in which the season containing
// date started.
func SeasonStartYear(date time.Time) int {
	if date.Month() >= seasonStartMonth {
		return date.Year()
	}
	return date.Year() - 1
}

// SeasonFor builds a MySportsFeeds season identifier such as
// "2024-2025-regular" for the season containing date.
func SeasonFor(date time.Time, kind SeasonType) string {
	start := SeasonStartYear(date)
	return fmt.Sprintf("%d-%d-%s", start, start+1, kind)
}
