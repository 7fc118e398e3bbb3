package models

import (
	"database/sql/driver"
	"time"

	"github.com/pkg/errors"
)

// TimestampLayout is the naive local format timestamps are stored and
// serialized in, e.g. "2025-03-21 21:10:48".
const TimestampLayout = "2006-01-02 15:04:05"

// Timestamp is a second-precision, local-time timestamp. It's persisted as a
// TEXT column in TimestampLayout so that lexical order matches chronological
// order, and it's sent over the wire in the same layout.
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to the second and converts it to local time.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t.Local().Truncate(time.Second)}
}

// ParseTimestamp parses a value in TimestampLayout as local time. RFC 3339
// values are accepted as well.
func ParseTimestamp(s string) (Timestamp, error) {
	t, err := time.ParseInLocation(TimestampLayout, s, time.Local)
	if err == nil {
		return Timestamp{t}, nil
	}
	t, rfcErr := time.Parse(time.RFC3339Nano, s)
	if rfcErr == nil {
		return NewTimestamp(t), nil
	}
	return Timestamp{}, errors.Wrapf(err, "invalid timestamp %q", s)
}

func (ts Timestamp) String() string {
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format(TimestampLayout)
}

// Value implements driver.Valuer.
func (ts Timestamp) Value() (driver.Value, error) {
	if ts.IsZero() {
		return nil, nil
	}
	return ts.String(), nil
}

// Scan implements sql.Scanner.
func (ts *Timestamp) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*ts = Timestamp{}
		return nil
	case time.Time:
		*ts = NewTimestamp(v)
		return nil
	case string:
		parsed, err := ParseTimestamp(v)
		if err != nil {
			return err
		}
		*ts = parsed
		return nil
	case []byte:
		return ts.Scan(string(v))
	default:
		return errors.Errorf("cannot scan %T into Timestamp", src)
	}
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + ts.String() + `"`), nil
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		*ts = Timestamp{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return errors.Errorf("invalid timestamp %s", s)
	}
	parsed, err := ParseTimestamp(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}
