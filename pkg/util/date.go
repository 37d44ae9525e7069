package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// unix values at or above this are read as milliseconds.
const unixMillisThreshold = 1e11

// ParseTime accepts unix seconds or milliseconds and any date format dateparse recognises
// (RFC3339, offsets without a colon, month names, dotted or slashed dates). Values without a
// zone are read as UTC. Returns (t, true) if parsing worked.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return UnixTime(f)
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// UnixTime converts a unix number to time. Magnitudes of 1e11 or more are milliseconds.
func UnixTime(f float64) (time.Time, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return time.Time{}, false
	}
	if f >= unixMillisThreshold {
		return time.UnixMilli(int64(f)).UTC(), true
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
}

// ParseStep parses a step such as "1d", "2w", "12h" or "90m". Days and weeks are exact
// multiples of 24h.
func ParseStep(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty step")
	}
	unit := s[len(s)-1]
	if unit == 'd' || unit == 'w' {
		n, err := strconv.Atoi(s[:len(s)-1])
		if err != nil {
			return 0, fmt.Errorf("invalid step %q: %w", s, err)
		}
		if n <= 0 {
			return 0, fmt.Errorf("invalid step %q: must be positive", s)
		}
		d := time.Duration(n) * 24 * time.Hour
		if unit == 'w' {
			d *= 7
		}
		return d, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid step %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid step %q: must be positive", s)
	}
	return d, nil
}
