package reporting

import (
	"strings"
	"time"

	"github.com/Diony-dev/Veloce/internal/ledger"
)

const dayLayout = "2006-01-02"

// localLayouts are tried, in order, against raw timestamps that carry no offset.
var localLayouts = []string{
	dayLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04",
}

// Bucketer maps record timestamps onto calendar buckets of one time zone.
type Bucketer struct {
	loc *time.Location
	now func() time.Time
}

// NewBucketer returns a bucketer for loc. A nil clock uses time.Now.
func NewBucketer(loc *time.Location, now func() time.Time) Bucketer {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return Bucketer{loc: loc, now: now}
}

// Location returns the bucketing time zone.
func (b Bucketer) Location() *time.Location { return b.loc }

// Now returns the processing time in the bucketing zone.
func (b Bucketer) Now() time.Time { return b.now().In(b.loc) }

// Resolve converts ts into the bucketing zone. Missing or unparseable values
// resolve to the processing time and report ok=false.
func (b Bucketer) Resolve(ts ledger.Timestamp) (time.Time, bool) {
	if at, ok := ts.Time(); ok {
		return at.In(b.loc), true
	}
	raw := strings.TrimSpace(ts.Raw())
	if raw == "" {
		return b.Now(), false
	}
	if at, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return at.In(b.loc), true
	}
	for _, layout := range localLayouts {
		if at, err := time.ParseInLocation(layout, raw, b.loc); err == nil {
			return at, true
		}
	}
	return b.Now(), false
}

// StartOfDay returns local midnight of t's calendar day.
func (b Bucketer) StartOfDay(t time.Time) time.Time {
	y, m, d := t.In(b.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, b.loc)
}

// EndOfDay returns the last representable instant of t's calendar day.
func (b Bucketer) EndOfDay(t time.Time) time.Time {
	return b.StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// DayRange spans from the start of start's day through the end of end's day,
// both inclusive.
func (b Bucketer) DayRange(start, end time.Time) (time.Time, time.Time) {
	return b.StartOfDay(start), b.EndOfDay(end)
}

// MonthRange spans the calendar month containing t.
func (b Bucketer) MonthRange(t time.Time) (time.Time, time.Time) {
	y, m, _ := t.In(b.loc).Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, b.loc)
	return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// YearRange spans the calendar year.
func (b Bucketer) YearRange(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, b.loc)
	return start, start.AddDate(1, 0, 0).Add(-time.Nanosecond)
}

// MonthIndex returns 0 for January through 11 for December.
func (b Bucketer) MonthIndex(t time.Time) int {
	return int(t.In(b.loc).Month()) - 1
}

// DayKey formats t's local calendar day as YYYY-MM-DD.
func (b Bucketer) DayKey(t time.Time) string {
	return t.In(b.loc).Format(dayLayout)
}

// ParseDay reads a YYYY-MM-DD value as a local day, returning fallback when
// the value is empty or malformed.
func (b Bucketer) ParseDay(value string, fallback time.Time) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	day, err := time.ParseInLocation(dayLayout, value, b.loc)
	if err != nil {
		return fallback
	}
	return day
}
