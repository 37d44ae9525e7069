package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "debug").With(String("request_id", "r-1"))

	l.Warn("category skipped",
		String("category", "run"),
		Int("observations", 1),
		Float64("value", 2.5),
		Bool("weighted", true),
		Duration("took", 1500*time.Millisecond),
		Error(errors.New("boom")),
	)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "category skipped", entry["message"])
	assert.Equal(t, "r-1", entry["request_id"])
	assert.Equal(t, "run", entry["category"])
	assert.Equal(t, float64(1), entry["observations"])
	assert.Equal(t, 2.5, entry["value"])
	assert.Equal(t, true, entry["weighted"])
	assert.Equal(t, float64(1500), entry["took"])
	assert.Equal(t, "boom", entry["error"])
}

func TestLoggerLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn")
	l.Info("hidden")
	l.Debug("hidden")
	assert.Zero(t, buf.Len())
	l.Error("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	assert.Error(t, err)
}

func TestNopDiscards(t *testing.T) {
	assert.NotPanics(t, func() { Nop().Error("x", Error(nil)) })
}
