package apihttp

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"plant-monitor/internal/apperrors"
)

// Accepted timestamp layouts. Layouts without a zone are read in local time.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses RFC3339 or a naive ISO-8601 timestamp.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return parsed, nil
	}
	for _, layout := range naiveLayouts {
		if parsed, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, apperrors.Invalidf("invalid timestamp %q", value)
}

// ParseTimeQuery reads a required timestamp query parameter.
func ParseTimeQuery(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, apperrors.Invalidf("%s is required", key)
	}
	parsed, err := ParseTimestamp(value)
	if err != nil {
		return time.Time{}, apperrors.Invalidf("%s must be an ISO-8601 timestamp", key)
	}
	return parsed, nil
}

// ParseRange reads an inclusive [startKey, endKey] window; end may equal start.
func ParseRange(r *http.Request, startKey, endKey string) (time.Time, time.Time, error) {
	start, err := ParseTimeQuery(r, startKey)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := ParseTimeQuery(r, endKey)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, apperrors.Invalidf("%s must not be before %s", endKey, startKey)
	}
	return start, end, nil
}

// ParseStrictRange is ParseRange for windows that must be non-empty: start must
// be strictly before end.
func ParseStrictRange(r *http.Request, startKey, endKey string) (time.Time, time.Time, error) {
	start, end, err := ParseRange(r, startKey, endKey)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, apperrors.Invalidf("%s must be before %s", startKey, endKey)
	}
	return start, end, nil
}

// ParseIDQuery reads a required positive integer query parameter.
func ParseIDQuery(r *http.Request, key string) (int64, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return 0, apperrors.Invalidf("%s is required", key)
	}
	return parseID(key, value)
}

// ParseOptionalIDQuery reads an optional positive integer query parameter; 0 when absent.
func ParseOptionalIDQuery(r *http.Request, key string) (int64, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return 0, nil
	}
	return parseID(key, value)
}

// ParseID parses a path id.
func ParseID(value string) (int64, error) {
	return parseID("id", value)
}

func parseID(key, value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Invalidf("%s must be a positive integer", key)
	}
	return id, nil
}

// SplitPath trims prefix and returns the remaining non-empty segments.
func SplitPath(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

func parseBool(value string) bool {
	parsed, err := strconv.ParseBool(value)
	return err == nil && parsed
}
