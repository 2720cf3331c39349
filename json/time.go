package json

import (
	"encoding/json"
	"fmt"
	"time"
)

// isoTime is an ISO-8601 timestamp. It is written as RFC 3339 with
// nanoseconds. Zone-less timestamps are read in the local time zone.
type isoTime time.Time

// zonelessLayouts accept an optional fractional second when parsing.
var zonelessLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (t isoTime) Time() time.Time { return time.Time(t) }

func (t isoTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).Format(time.RFC3339Nano))
}

func (t *isoTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, err := parseISO(s)
	if err != nil {
		return err
	}
	*t = isoTime(parsed)
	return nil
}

func parseISO(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	for _, layout := range zonelessLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
