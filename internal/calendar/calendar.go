// Package calendar holds the date arithmetic shared by the rotation
// generator, the random assigner and the calendar projection. All of them
// must derive rotation-month keys through RotationMonth, otherwise entries
// fall out of the projection's filter.
package calendar

import (
	"fmt"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// Weekdays are the Japanese short weekday labels, Sunday first.
var Weekdays = [...]string{"日", "月", "火", "水", "木", "金", "土"}

// Month identifies one displayed calendar month.
type Month struct {
	Year  int
	Month time.Month
}

func MonthOf(t time.Time) Month { return Month{Year: t.Year(), Month: t.Month()} }

// ParseMonth accepts exactly "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	if len(s) != len(MonthLayout) {
		return Month{}, fmt.Errorf("invalid month %q: want YYYY-MM", s)
	}
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return MonthOf(t), nil
}

func NewMonth(year, month int) (Month, error) {
	if year < 1 || year > 9999 || month < 1 || month > 12 {
		return Month{}, fmt.Errorf("invalid month %d-%d", year, month)
	}
	return Month{Year: year, Month: time.Month(month)}, nil
}

// Key is the rotation_month bucket for the month.
func (m Month) Key() string { return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month)) }

func (m Month) String() string { return m.Key() }

func (m Month) First(loc *time.Location) time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
}

func (m Month) Last(loc *time.Location) time.Time {
	return m.First(loc).AddDate(0, 1, -1)
}

func (m Month) Next() Month { return MonthOf(m.First(time.UTC).AddDate(0, 1, 0)) }
func (m Month) Prev() Month { return MonthOf(m.First(time.UTC).AddDate(0, -1, 0)) }

// Days lists every day of the month.
func (m Month) Days(loc *time.Location) []time.Time {
	return DaysBetween(m.First(loc), m.Last(loc))
}

// GridDays returns the days shown in a Sunday-first month grid, padded with
// the trailing days of the previous month and the leading days of the next.
func (m Month) GridDays(loc *time.Location) []time.Time {
	first, last := m.First(loc), m.Last(loc)
	start := first.AddDate(0, 0, -int(first.Weekday()))
	end := last.AddDate(0, 0, int(time.Saturday-last.Weekday()))
	return DaysBetween(start, end)
}

// Contains reports whether t falls inside the month.
func (m Month) Contains(t time.Time) bool { return MonthOf(t) == m }

func RotationMonth(t time.Time) string { return t.Format(MonthLayout) }

func FormatDate(t time.Time) string { return t.Format(DateLayout) }

func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween lists the days in [from, to]. It is empty when from is after to.
func DaysBetween(from, to time.Time) []time.Time {
	from, to = Day(from), Day(to)
	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// RemainingDays is [today, end of today's month].
func RemainingDays(today time.Time) []time.Time {
	return DaysBetween(today, MonthOf(today).Last(today.Location()))
}

func WeekdayJa(t time.Time) string { return Weekdays[t.Weekday()] }
