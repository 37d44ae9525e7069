package util

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeLayouts(t *testing.T) {
	want := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	for _, s := range []string{
		"2024-10-10T10:10:10Z",
		"2024-10-10T12:10:10+02:00",
		"2024-10-10T10:10:10",
		"2024-10-10 10:10:10",
		"2024/10/10 10:10:10",
	} {
		got, ok := ParseTime(s)
		require.True(t, ok, s)
		assert.True(t, want.Equal(got), "%s parsed as %v", s, got)
	}

	day, ok := ParseTime("2024-10-10")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC), day)
}

func TestParseTimeLooseFormats(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-01T10:00:00+0900", time.Date(2025, 3, 1, 1, 0, 0, 0, time.UTC)},
		{"Mar 1, 2025", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"March 1, 2025 10:00:00", time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"2025.03.01", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"Sat Mar 01 2025 10:00:00 GMT+0900 (Korean Standard Time)", time.Date(2025, 3, 1, 1, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, ok := ParseTime(tt.in)
		require.True(t, ok, tt.in)
		assert.True(t, tt.want.Equal(got), "%s parsed as %v", tt.in, got)
		assert.Equal(t, time.UTC, got.Location(), tt.in)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ref := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)

	got, ok := ParseTime(strconv.FormatInt(ref.Unix(), 10))
	require.True(t, ok)
	assert.Equal(t, ref.Unix(), got.Unix())

	got, ok = ParseTime(strconv.FormatInt(ref.UnixMilli(), 10))
	require.True(t, ok)
	assert.True(t, ref.Equal(got))

	got, ok = ParseTime("1728555010.5")
	require.True(t, ok)
	assert.Equal(t, int64(500), got.UnixMilli()%1000)
}

func TestParseTimeRejects(t *testing.T) {
	for _, s := range []string{"", "  ", "yesterday", "2024-13-45", "2025-02-31", "-5", "0", "NaN"} {
		_, ok := ParseTime(s)
		assert.False(t, ok, s)
	}
}

func TestParseStep(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"1d", 24 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
		{"12h", 12 * time.Hour},
		{"90m", 90 * time.Minute},
		{"30s", 30 * time.Second},
	}
	for _, tt := range tests {
		got, err := ParseStep(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	for _, bad := range []string{"", "d", "0d", "-1d", "xh", "-5m"} {
		_, err := ParseStep(bad)
		assert.Error(t, err, bad)
	}
}
