package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "trendcast"

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	forecasts       *prometheus.CounterVec
	forecastGroups  prometheus.Histogram
	categorySkipped *prometheus.CounterVec
	goals           *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
}

// New creates a Prometheus metrics recorder registered with the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder whose collectors are registered with reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		forecasts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forecasts_total",
				Help:      "Forecast requests by outcome",
			},
			[]string{"outcome"},
		),
		forecastGroups: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "forecast_categories",
				Help:      "Number of categories per forecast request",
				Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
			},
		),
		categorySkipped: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forecast_categories_skipped_total",
				Help:      "Categories that produced no forecast",
			},
			[]string{"reason"},
		),
		goals: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "goal_recommendations_total",
				Help:      "Goal recommendations by outcome",
			},
			[]string{"outcome"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors encountered",
			},
			[]string{"kind"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Result cache lookups by request kind and result",
			},
			[]string{"kind", "result"},
		),
	}
}

// RecordForecast records a forecast request and the number of categories it carried.
func (r *Recorder) RecordForecast(outcome string, categories int) {
	r.forecasts.WithLabelValues(outcome).Inc()
	if categories > 0 {
		r.forecastGroups.Observe(float64(categories))
	}
}

// RecordCategorySkipped records a category that came back empty.
func (r *Recorder) RecordCategorySkipped(reason string) {
	r.categorySkipped.WithLabelValues(reason).Inc()
}

// RecordGoal records a goal recommendation.
func (r *Recorder) RecordGoal(outcome string) {
	r.goals.WithLabelValues(outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordCache records a result cache lookup.
func (r *Recorder) RecordCache(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(kind, result).Inc()
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordForecast(string, int) {}
func (Nop) RecordCategorySkipped(string) {}
func (Nop) RecordGoal(string) {}
func (Nop) RecordError(string) {}
func (Nop) RecordLatency(string, float64) {}
func (Nop) RecordCache(string, bool) {}
