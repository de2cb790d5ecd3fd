package record

import (
	"encoding/json"
	"strings"
	"time"
)

// Epoch values above this are milliseconds; below, seconds. The cutoff is
// ~33658 AD in seconds and Sep 2001 in milliseconds, so agent timestamps
// never straddle it.
const millisCutoff = 1e12

// ParseTimestamp decodes a raw JSON timestamp that may be an epoch number
// (seconds or milliseconds) or an ISO-8601 string. Returns nil when the
// value is absent or unparseable; ambiguous timestamps never drop a record.
func ParseTimestamp(raw json.RawMessage) *time.Time {
	if len(raw) == 0 {
		return nil
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if n <= 0 {
			return nil
		}
		return epochTime(n)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return ParseTimeString(s)
}

// ParseTimeString accepts RFC 3339 timestamps (with or without fractional
// seconds, trailing "Z" included) and bare "YYYY-MM-DD HH:MM:SS" strings.
func ParseTimeString(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func epochTime(n float64) *time.Time {
	var t time.Time
	if n >= millisCutoff {
		t = time.UnixMilli(int64(n))
	} else {
		t = time.Unix(int64(n), 0)
	}
	return &t
}

// EpochMillis converts an epoch-milliseconds value to a time. Values that
// look like seconds (below the cutoff) are scaled accordingly.
func EpochMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	if float64(ms) < millisCutoff {
		return time.Unix(ms, 0)
	}
	return time.UnixMilli(ms)
}
