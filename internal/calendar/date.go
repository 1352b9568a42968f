package calendar

import (
	"fmt"
	"time"
)

// KeyLayout is the canonical date key format used to index events.
const KeyLayout = "2006-01-02"

// Years outside MinYear..MaxYear are not supported. time.Time wraps
// silently far beyond them, so callers taking years from input check
// InRange or MonthInRange first.
const (
	MinYear = -1_000_000_000
	MaxYear = 1_000_000_000
)

// InRange reports whether year is within MinYear..MaxYear.
func InRange(year int) bool { return year >= MinYear && year <= MaxYear }

// MonthInRange reports whether the zero-based month index of year, after
// rolling into adjacent years, lands within MinYear..MaxYear.
func MonthInRange(year, month int) bool {
	if !InRange(year) {
		return false
	}
	q := month / 12
	if month%12 < 0 {
		q--
	}
	return InRange(year + q)
}

// Date is a calendar day without time-of-day or zone. Values are always
// normalized: NewDate(2024, 2, 30) is March 1st 2024.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate normalizes (year, month, day) using proleptic Gregorian
// arithmetic, so out-of-range months and days roll over.
func NewDate(year int, month time.Month, day int) Date {
	return FromTime(time.Date(year, month, day, 12, 0, 0, 0, time.UTC))
}

// FromTime truncates t to its calendar day in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseKey parses a canonical key as produced by Date.Key: "YYYY-MM-DD",
// or a signed year ("-0001-12-31", "+10000-01-01") outside 0..9999.
func ParseKey(key string) (Date, error) {
	d, ok := parseKey(key)
	if !ok {
		return Date{}, fmt.Errorf("calendar: invalid date key %q", key)
	}
	return d, nil
}

func parseKey(key string) (Date, bool) {
	if len(key) < len(KeyLayout) {
		return Date{}, false
	}
	ys, tail := key[:len(key)-6], key[len(key)-6:]
	if tail[0] != '-' || tail[3] != '-' {
		return Date{}, false
	}
	month, okM := atoi(tail[1:3])
	day, okD := atoi(tail[4:6])
	if !okM || !okD {
		return Date{}, false
	}

	var year int
	switch ys[0] {
	case '+', '-':
		y, ok := atoi(ys[1:])
		if !ok || len(ys) < 5 {
			return Date{}, false
		}
		if ys[0] == '-' {
			y = -y
		}
		// 0..9999 has exactly one spelling: the unsigned one.
		if y >= 0 && y <= 9999 {
			return Date{}, false
		}
		year = y
	default:
		y, ok := atoi(ys)
		if !ok || len(ys) != 4 {
			return Date{}, false
		}
		year = y
	}

	if !InRange(year) || month < 1 || month > 12 {
		return Date{}, false
	}
	if day < 1 || day > DaysIn(year, time.Month(month)) {
		return Date{}, false
	}
	return Date{Year: year, Month: time.Month(month), Day: day}, true
}

// atoi accepts 1 to 10 ASCII digits.
func atoi(s string) (int, bool) {
	if s == "" || len(s) > 10 {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// Key returns the canonical "YYYY-MM-DD" key. Years outside 0..9999 are
// still formatted with a sign or more digits so keys stay unique.
func (d Date) Key() string {
	if d.Year >= 0 && d.Year <= 9999 {
		return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
	}
	return fmt.Sprintf("%+05d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) String() string { return d.Key() }

// MarshalText encodes d as its canonical key.
func (d Date) MarshalText() ([]byte, error) { return []byte(d.Key()), nil }

// UnmarshalText parses a canonical key.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseKey(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Time returns local midnight of d in loc.
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Weekday returns 0=Sunday .. 6=Saturday.
func (d Date) Weekday() int {
	return int(d.utcNoon().Weekday())
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return NewDate(d.Year, d.Month, d.Day+n)
}

// Equal reports whether d and o are the same calendar day.
func (d Date) Equal(o Date) bool { return d == o }

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) utcNoon() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC)
}

// IsLeapYear applies the Gregorian rule: divisible by 4, except centuries
// not divisible by 400.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysIn returns the number of days of month in year. Months outside
// January..December are normalized first.
func DaysIn(year int, month time.Month) int {
	first := NewDate(year, month, 1)
	switch first.Month {
	case time.February:
		if IsLeapYear(first.Year) {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}
