package metrics

import (
	"testing"

	"TrendCast/internal/domain/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

var (
	_ repository.Metrics = (*Recorder)(nil)
	_ repository.Metrics = Nop{}
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegistry(reg)

	r.RecordForecast("ok", 3)
	r.RecordForecast("ok", 1)
	r.RecordForecast("error", 0)
	r.RecordCategorySkipped("insufficient_data")
	r.RecordGoal("ok")
	r.RecordError("malformed_observation")
	r.RecordCache("goal", true)
	r.RecordCache("goal", false)
	r.RecordCache("goal", false)
	r.RecordLatency("forecast", 0.01)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.forecasts.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.forecasts.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.categorySkipped.WithLabelValues("insufficient_data")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.goals.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("malformed_observation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("goal", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("goal", "miss")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.latency))
}

func TestRecordersDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		NewWithRegistry(prometheus.NewRegistry())
		NewWithRegistry(prometheus.NewRegistry())
	})
}
