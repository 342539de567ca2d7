package football

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// APITime is a wrapper around time.Time that can unmarshal the
// "2006-01-02T15:04:05Z" timestamps football-data.org returns, full RFC3339
// timestamps with an offset, and the shorter "YYYY-MM-DDThh:mmZ" form.
type APITime struct {
	time.Time
}

var apiTimeLayouts = []string{
	time.RFC3339,             // 2006-01-02T15:04:05Z07:00
	"2006-01-02T15:04Z07:00", // no seconds
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (t *APITime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}

	var parseErr error
	for _, layout := range apiTimeLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
		parseErr = err
	}
	return parseErr
}

// MarshalJSON writes the zero time as null so it round-trips through workflow payloads.
func (t APITime) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.UTC().Format(time.RFC3339))
}

// MatchMinute is the running minute of a live match. The API sends it as a
// number, a numeric string, or a stoppage-time string such as "45+2".
type MatchMinute string

// UnmarshalJSON implements the json.Unmarshaler interface.
func (m *MatchMinute) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		*m = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*m = MatchMinute(strings.TrimSpace(str))
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid match minute %s: %w", s, err)
	}
	*m = MatchMinute(strconv.Itoa(int(n)))
	return nil
}

// String returns the minute, or "?" when the API did not report one.
func (m MatchMinute) String() string {
	if m == "" {
		return "?"
	}
	return string(m)
}
