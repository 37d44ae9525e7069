package models

import "time"

// TimeUnit is the unit of ForecastPoint.X.
type TimeUnit string

const (
	UnitSeconds      TimeUnit = "s"
	UnitMilliseconds TimeUnit = "ms"
)

// IsValidTimeUnit returns true if u is a supported output unit.
func IsValidTimeUnit(u TimeUnit) bool {
	switch u {
	case UnitSeconds, UnitMilliseconds:
		return true
	default:
		return false
	}
}

// DefaultTimeUnit returns the default output unit.
func DefaultTimeUnit() TimeUnit { return UnitSeconds }

// NormalizeTimeUnit converts a raw string to a valid unit (or default).
func NormalizeTimeUnit(s string) TimeUnit {
	u := TimeUnit(s)
	if IsValidTimeUnit(u) {
		return u
	}
	return DefaultTimeUnit()
}

// Stamp converts t to the unit.
func (u TimeUnit) Stamp(t time.Time) int64 {
	if u == UnitMilliseconds {
		return t.UnixMilli()
	}
	return t.Unix()
}
