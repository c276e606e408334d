package importers

import (
	"encoding/json"
	"time"
)

// Timestamp formats observed across vendor exports.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseUnixTimestamp converts a Unix timestamp in seconds or milliseconds.
func parseUnixTimestamp(ts float64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	if ts > 1e12 { // Likely milliseconds
		return time.UnixMilli(int64(ts))
	}
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

// firstTimestamp returns the first candidate that parses to a non-zero
// time. Vendors alias the same field under several names.
func firstTimestamp(candidates ...json.RawMessage) time.Time {
	for _, raw := range candidates {
		if t := parseTimestamp(raw); !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}

// parseTimestamp handles the timestamp shapes vendors emit: ISO 8601
// strings in a few flavours, or Unix seconds/milliseconds as a number.
// Returns the zero time when the value is absent or unreadable.
func parseTimestamp(raw json.RawMessage) time.Time {
	if len(raw) == 0 {
		return time.Time{}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
		return time.Time{}
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return parseUnixTimestamp(n)
	}

	return time.Time{}
}
