// Package calendar models whole calendar days. A Date never carries a time of
// day or a zone, so comparisons and day arithmetic cannot drift across
// serialization boundaries.
package calendar

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nikhileshnr/mess-rebate-system/internal/apperrors"
)

const Layout = "2006-01-02"

// Date is a calendar day backed by UTC midnight.
type Date struct {
	t time.Time
}

// layouts tried after the YYYY-MM-DD fast path, in order. Day-first numeric
// forms are the ones the edit screens send.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2 January 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

func New(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime keeps the year, month and day as they read in t's own location.
func FromTime(t time.Time) Date {
	return New(t.Year(), t.Month(), t.Day())
}

func Today() Date {
	return FromTime(time.Now())
}

// Parse normalizes a date-only string, a timestamp or a localized date into a
// Date. Timestamps contribute their literal date components; no zone
// conversion is applied.
func Parse(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, apperrors.Validation("", apperrors.CodeInvalidDateFormat, "date is empty")
	}

	if len(s) == len(Layout) {
		if t, err := time.Parse(Layout, s); err == nil {
			return FromTime(t), nil
		}
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return FromTime(t), nil
		}
	}

	return Date{}, apperrors.Validation("", apperrors.CodeInvalidDateFormat, fmt.Sprintf("cannot parse %q as a date", s))
}

// ParseField is Parse with the offending field name attached to the error.
func ParseField(field, s string) (Date, error) {
	d, err := Parse(s)
	if err != nil {
		return Date{}, apperrors.Validation(field, apperrors.CodeInvalidDateFormat, fmt.Sprintf("invalid date %q", s))
	}
	return d, nil
}

// MustParse panics on bad input. Intended for literals in tests and fixtures.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) Time() time.Time { return d.t }
func (d Date) IsZero() bool    { return d.t.IsZero() }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(Layout)
}

// Format renders the date with a time layout, e.g. "02/01/2006".
func (d Date) Format(layout string) string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(layout)
}

func (d Date) Year() int          { return d.t.Year() }
func (d Date) Month() time.Month  { return d.t.Month() }
func (d Date) Day() int           { return d.t.Day() }
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool  { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool  { return d.t.Equal(o.t) }

func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

func (d Date) StartOfMonth() Date {
	return New(d.Year(), d.Month(), 1)
}

func (d Date) EndOfMonth() Date {
	return New(d.Year(), d.Month()+1, 0)
}

func (d Date) DaysInMonth() int {
	return d.EndOfMonth().Day()
}

// SameMonth reports whether both dates fall in the same month of the same year.
func (d Date) SameMonth(o Date) bool {
	return d.Year() == o.Year() && d.Month() == o.Month()
}

// DaysBetween returns the number of whole days from a to b. Negative if b is
// before a.
func DaysBetween(a, b Date) int {
	return int(b.t.Sub(a.t).Hours() / 24)
}

// DayCount is the stored rebate length: the exclusive difference between the
// two dates. Within a month it reduces to end.Day() - start.Day().
func DayCount(start, end Date) int {
	if start.SameMonth(end) {
		return end.Day() - start.Day()
	}
	return DaysBetween(start, end)
}

// InclusiveDays counts both endpoints. Used only for presentation, never
// persisted.
func InclusiveDays(start, end Date) int {
	return DaysBetween(start, end) + 1
}

// Overlaps reports whether [s1, e1] and [s2, e2] share at least one day.
// Touching endpoints count.
func Overlaps(s1, e1, s2, e2 Date) bool {
	return !s2.After(e1) && !e2.Before(s1)
}

// Clip limits [start, end] to [lo, hi]. ok is false when they do not intersect.
func Clip(start, end, lo, hi Date) (Date, Date, bool) {
	if !Overlaps(start, end, lo, hi) {
		return Date{}, Date{}, false
	}
	if start.Before(lo) {
		start = lo
	}
	if end.After(hi) {
		end = hi
	}
	return start, end, true
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = FromTime(v)
		return nil
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return fmt.Errorf("scan date: %w", err)
		}
		*d = parsed
		return nil
	case []byte:
		parsed, err := Parse(string(v))
		if err != nil {
			return fmt.Errorf("scan date: %w", err)
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("scan date: unsupported type %T", src)
	}
}

// Value renders the date as YYYY-MM-DD so that both drivers compare it as a
// plain date literal.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return apperrors.Validation("", apperrors.CodeInvalidDateFormat, "date must be a string")
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
