// Package calendar maps ISO-8601 year/week numbers to the calendar days of that
// week. All functions are pure.
package calendar

import (
	"errors"
	"fmt"
	"time"
)

const (
	MinYear = 1
	MaxYear = 9999

	// DisplayLayout is the day/month/year form shown next to the weekday name
	DisplayLayout = "02/01/2006"
)

// ErrInvalidWeek is returned for year/week pairs that do not exist in ISO-8601,
// e.g. week 53 of a 52-week year.
var ErrInvalidWeek = errors.New("invalid ISO week")

// WeekdayNamer yields the display name of a weekday
type WeekdayNamer interface {
	WeekdayName(d time.Weekday) string
}

// WeekdayNamerFunc adapts a function to WeekdayNamer
type WeekdayNamerFunc func(d time.Weekday) string

func (f WeekdayNamerFunc) WeekdayName(d time.Weekday) string { return f(d) }

// Day is one day of an ISO week
type Day struct {
	Index       int // 0 = Monday .. 6 = Sunday
	Date        time.Time
	Weekday     time.Weekday
	Label       string
	DisplayDate string
}

// String renders "<weekday> <dd/mm/yyyy>", the form stored on a day plan
func (d Day) String() string {
	return d.Label + " " + d.DisplayDate
}

// Validate checks that week exists in year
func Validate(year, week int) error {
	if year < MinYear || year > MaxYear {
		return fmt.Errorf("%w: year %d out of range [%d, %d]", ErrInvalidWeek, year, MinYear, MaxYear)
	}
	if n := WeeksInYear(year); week < 1 || week > n {
		return fmt.Errorf("%w: week %d of %d (year has %d weeks)", ErrInvalidWeek, week, year, n)
	}
	return nil
}

// WeeksInYear returns 52 or 53. December 28th always lies in the last ISO week.
func WeeksInYear(year int) int {
	_, w := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return w
}

// Monday returns the first day of ISO week `week` of `year` at 00:00 UTC.
// Week 1 is the week containing January 4th.
func Monday(year, week int) (time.Time, error) {
	if err := Validate(year, week); err != nil {
		return time.Time{}, err
	}
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	sinceMonday := (int(jan4.Weekday()) + 6) % 7
	firstMonday := jan4.AddDate(0, 0, -sinceMonday)
	return firstMonday.AddDate(0, 0, 7*(week-1)), nil
}

// Week computes the seven days of an ISO week, Monday through Sunday. A nil
// namer falls back to English weekday names.
func Week(year, week int, names WeekdayNamer) ([]Day, error) {
	monday, err := Monday(year, week)
	if err != nil {
		return nil, err
	}

	days := make([]Day, 7)
	for i := range days {
		date := monday.AddDate(0, 0, i)
		days[i] = Day{
			Index:       i,
			Date:        date,
			Weekday:     date.Weekday(),
			Label:       weekdayName(names, date.Weekday()),
			DisplayDate: date.Format(DisplayLayout),
		}
	}
	return days, nil
}

// ISOWeekOf returns the ISO year and week of t
func ISOWeekOf(t time.Time) (year, week int) {
	return t.ISOWeek()
}

// NextWeek returns the ISO week following year/week
func NextWeek(year, week int) (int, int) {
	if week >= WeeksInYear(year) {
		return year + 1, 1
	}
	return year, week + 1
}

// DayDate returns the calendar date of day index (0 = Monday) in year/week
func DayDate(year, week, index int) (time.Time, error) {
	if index < 0 || index > 6 {
		return time.Time{}, fmt.Errorf("%w: day index %d", ErrInvalidWeek, index)
	}
	monday, err := Monday(year, week)
	if err != nil {
		return time.Time{}, err
	}
	return monday.AddDate(0, 0, index), nil
}

func weekdayName(names WeekdayNamer, d time.Weekday) string {
	if names == nil {
		return d.String()
	}
	if name := names.WeekdayName(d); name != "" {
		return name
	}
	return d.String()
}
