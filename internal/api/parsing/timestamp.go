// Package parsing reads typed values from request parameters.
package parsing

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	dps "github.com/markusmobius/go-dateparser"

	apierrors "github.com/moolen/riskgraph/internal/api/errors"
)

var (
	relativePattern = regexp.MustCompile(`(?i)^\s*now\s*([+-])\s*(.*)$`)
	durationPattern = regexp.MustCompile(`(?i)^(\d+)\s*(h|hr|hrs|hour|hours|m|min|mins|minute|minutes|d|day|days)$`)
)

// ParseTime parses a point in time relative to now. Supported forms:
//   - RFC3339: "2026-10-18T02:00:00Z"
//   - Unix seconds: "1792288800"
//   - Offsets from now: "now", "now+2h", "now-30m", "now+1d"
//   - Natural language: "tomorrow 2am", "next monday 3pm", "in 2 hours"
//
// Natural language prefers the future, so "monday" is the next Monday.
// fieldName is used in error messages.
func ParseTime(raw, fieldName string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, apierrors.NewInvalidRequestError("%s is required", fieldName)
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if unix < 0 {
			return time.Time{}, apierrors.NewInvalidRequestError("%s must be non-negative", fieldName)
		}
		return time.Unix(unix, 0).UTC(), nil
	}
	if strings.EqualFold(raw, "now") {
		return now, nil
	}
	if m := relativePattern.FindStringSubmatch(raw); m != nil {
		offset, err := parseOffset(strings.TrimSpace(m[2]), fieldName)
		if err != nil {
			return time.Time{}, err
		}
		if m[1] == "-" {
			return offset(now, -1), nil
		}
		return offset(now, 1), nil
	}

	parser := dps.Parser{}
	cfg := &dps.Configuration{
		CurrentTime:         now,
		DefaultTimezone:     now.Location(),
		PreferredDateSource: dps.Future,
	}
	parsed, err := parser.Parse(cfg, raw)
	if err != nil {
		return time.Time{}, apierrors.NewInvalidRequestError(
			"%s must be RFC3339, a Unix timestamp or a human-readable date: %v", fieldName, err)
	}
	if parsed.IsZero() {
		return time.Time{}, apierrors.NewInvalidRequestError("%s could not be parsed as a date: %s", fieldName, raw)
	}
	return parsed.Time, nil
}

// parseOffset returns a function applying the duration in sign direction.
func parseOffset(raw, fieldName string) (func(time.Time, int) time.Time, error) {
	m := durationPattern.FindStringSubmatch(raw)
	if m == nil {
		return nil, apierrors.NewInvalidRequestError(
			"%s: invalid offset %q, expected e.g. now+2h, now-30m or now+1d", fieldName, raw)
	}
	amount, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, apierrors.NewInvalidRequestError("%s: invalid number in offset: %s", fieldName, m[1])
	}
	switch unit := strings.ToLower(m[2]); {
	case strings.HasPrefix(unit, "h"):
		return func(t time.Time, sign int) time.Time { return t.Add(time.Duration(sign*amount) * time.Hour) }, nil
	case strings.HasPrefix(unit, "m"):
		return func(t time.Time, sign int) time.Time { return t.Add(time.Duration(sign*amount) * time.Minute) }, nil
	default:
		return func(t time.Time, sign int) time.Time { return t.AddDate(0, 0, sign*amount) }, nil
	}
}

// ParseOptionalTime returns the zero time for an empty value.
func ParseOptionalTime(raw, fieldName string, now time.Time) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	return ParseTime(raw, fieldName, now)
}
