package ledger

import (
	"encoding/json"
	"strings"
	"time"
)

// Timestamp is a record date that is either a native instant or a raw string
// carried over from legacy data. Resolving raw strings needs the organization
// time zone, so it is left to the reporting bucketer.
type Timestamp struct {
	at  time.Time
	raw string
}

// At wraps a native instant.
func At(t time.Time) Timestamp {
	return Timestamp{at: t}
}

// RawTimestamp wraps an unparsed date string.
func RawTimestamp(value string) Timestamp {
	return Timestamp{raw: strings.TrimSpace(value)}
}

// Time returns the native instant, if any.
func (ts Timestamp) Time() (time.Time, bool) {
	if ts.raw != "" || ts.at.IsZero() {
		return time.Time{}, false
	}
	return ts.at, true
}

// Raw returns the legacy string form, if any.
func (ts Timestamp) Raw() string {
	return ts.raw
}

// IsZero reports whether the timestamp carries no value at all.
func (ts Timestamp) IsZero() bool {
	return ts.raw == "" && ts.at.IsZero()
}

// MarshalJSON writes native instants as RFC3339 and raw values verbatim.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	switch {
	case ts.raw != "":
		return json.Marshal(ts.raw)
	case ts.at.IsZero():
		return []byte("null"), nil
	default:
		return json.Marshal(ts.at.Format(time.RFC3339Nano))
	}
}

// UnmarshalJSON keeps RFC3339 strings as instants and anything else raw.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var value *string
	if err := json.Unmarshal(data, &value); err != nil {
		*ts = RawTimestamp(string(data))
		return nil
	}
	if value == nil {
		*ts = Timestamp{}
		return nil
	}
	*ts = ParseTimestamp(*value)
	return nil
}

// ParseTimestamp converts RFC3339 text into an instant and keeps any other
// text raw.
func ParseTimestamp(value string) Timestamp {
	value = strings.TrimSpace(value)
	if value == "" {
		return Timestamp{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return At(t)
	}
	return RawTimestamp(value)
}
