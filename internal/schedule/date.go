package schedule

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// Date is a timezone-naive calendar date. Jobs are due on a day, not at
// an instant; comparing dates never consults a time.Location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses "2006-01-02".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// DateOf truncates t to its calendar date, discarding clock and zone.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// AddDays returns d shifted by n calendar days (n may be negative).
func (d Date) AddDays(n int) Date {
	t := time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC)
	return DateOf(t)
}

// AddWeeks returns d shifted forward by n weeks.
func (d Date) AddWeeks(n int) Date {
	return d.AddDays(n * 7)
}

func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

func (d Date) Equal(o Date) bool {
	return d == o
}

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// In reports whether d falls inside the given month.
func (d Date) In(year int, month time.Month) bool {
	return d.Year == year && d.Month == month
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NullDate is a nullable Date for DATE columns, in the spirit of
// sql.NullTime. The zero value is NULL.
type NullDate struct {
	Date  Date
	Valid bool
}

// Scan implements sql.Scanner. Accepts time.Time (parseTime=true),
// []byte/string in DateLayout, and nil.
func (n *NullDate) Scan(src any) error {
	if src == nil {
		*n = NullDate{}
		return nil
	}
	switch v := src.(type) {
	case time.Time:
		*n = NullDate{Date: DateOf(v), Valid: true}
		return nil
	case []byte:
		d, err := ParseDate(string(v))
		if err != nil {
			return err
		}
		*n = NullDate{Date: d, Valid: true}
		return nil
	case string:
		d, err := ParseDate(v)
		if err != nil {
			return err
		}
		*n = NullDate{Date: d, Valid: true}
		return nil
	default:
		return fmt.Errorf("scan NullDate: unsupported type %T", src)
	}
}

// Value implements driver.Valuer.
func (n NullDate) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.Date.String(), nil
}
