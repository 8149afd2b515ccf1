package models

import (
	"encoding/json"
	"strconv"
	"time"
)

// Timestamp wraps time.Time with tolerant JSON decoding. Persisted documents
// that originated offline may carry dates as RFC3339 strings, unix numbers
// (seconds or milliseconds) or nothing at all, so every read normalizes
// instead of failing.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

func Now() Timestamp {
	return Timestamp{Time: time.Now().UTC()}
}

// OrNow returns the timestamp itself, or the current time when it is unset.
func (t Timestamp) OrNow() Timestamp {
	if t.IsZero() {
		return Now()
	}
	return t
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		t.Time = time.Time{}
		return nil
	}

	// Unix seconds or milliseconds.
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if n > 1e12 {
			t.Time = time.UnixMilli(int64(n)).UTC()
		} else {
			t.Time = time.Unix(int64(n), 0).UTC()
		}
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		t.Time = time.Time{}
		return nil
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, str); err == nil {
			t.Time = parsed
			return nil
		}
	}

	// Unparsable dates degrade to unset rather than failing the whole read.
	t.Time = time.Time{}
	return nil
}
