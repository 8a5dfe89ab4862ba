package middleware

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reRequestUUID  = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[1-5][a-f0-9]{3}-[89ab][a-f0-9]{3}-[a-f0-9]{12}$`)
	reRequestHex32 = regexp.MustCompile(`^[a-f0-9]{32}$`)
)

// validRequestID accepts a UUID or 32 hex characters in either case.
func validRequestID(id string) bool {
	id = strings.ToLower(strings.TrimSpace(id))
	return reRequestUUID.MatchString(id) || reRequestHex32.MatchString(id)
}

// parseRequestAt reads Ax-Request-At as epoch seconds, epoch milliseconds,
// or RFC3339 with an explicit zone. Zone-less timestamps are rejected.
func parseRequestAt(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("missing Ax-Request-At")
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	// RFC3339Nano also parses plain RFC3339
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, errors.New("Ax-Request-At must be epoch (s/ms) or RFC3339 with timezone")
}

// withinSkew reports whether at lies within skew of now.
func withinSkew(at, now time.Time, skew time.Duration) bool {
	return !at.Before(now.Add(-skew)) && !at.After(now.Add(skew))
}
