package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// NormalizeTimestamp converts a created_utc value to Unix seconds. JSON
// integers are returned as is, floats are truncated toward zero and strings
// must hold a base-10 integer. Any other JSON shape fails with
// ErrInvalidTimestamp.
func NormalizeTimestamp(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidTimestamp)
	}

	switch shape := jsonShape(raw); shape {
	case "number":
		ts, ok := numberTimestamp(raw)
		if !ok {
			return 0, fmt.Errorf("%w: %s out of range", ErrInvalidTimestamp, raw)
		}
		return ts, nil
	case "string":
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidTimestamp, err)
		}
		ts, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: unable to parse timestamp string %q", ErrInvalidTimestamp, s)
		}
		return ts, nil
	default:
		return 0, fmt.Errorf("%w: expected number or string, got %s", ErrInvalidTimestamp, shape)
	}
}

// numberTimestamp reads a JSON number literal, truncating any fraction.
// It reports false when the value does not fit in an int64.
func numberTimestamp(raw json.RawMessage) (int64, bool) {
	s := string(raw)
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ts, true
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	f = math.Trunc(f)
	// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// jsonShape names the kind of JSON value raw starts with.
func jsonShape(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "empty"
	}
	switch c := raw[0]; {
	case c == '{':
		return "object"
	case c == '[':
		return "array"
	case c == '"':
		return "string"
	case c == 't' || c == 'f':
		return "boolean"
	case c == 'n':
		return "null"
	case c == '-' || (c >= '0' && c <= '9'):
		return "number"
	}
	return "unknown"
}
