package repository

import (
	"context"
	"time"

	"TrendCast/internal/domain/models"
)

// ResultPublisher hands served results to the presentation layer.
type ResultPublisher interface {
	Publish(ctx context.Context, ev models.ResultEvent) error
	Close() error
}

// ForecastRecord is one archived forecast point.
type ForecastRecord struct {
	RequestID string
	Category  string
	Anchor    models.Anchor
	Step      int
	X         int64
	Y         float64
	Slope     float64
	Intercept float64
	FitScore  float64
}

// GoalRecord is one archived goal recommendation.
type GoalRecord struct {
	RequestID       string
	Observations    int
	BestObserved    float64
	RecommendedGoal float64
	Confidence      float64
}

// ResultArchive keeps an audit trail of engine outputs. It never feeds back into the engine.
type ResultArchive interface {
	SaveForecast(ctx context.Context, at time.Time, records []ForecastRecord) error
	SaveGoal(ctx context.Context, at time.Time, record GoalRecord) error
	Health(ctx context.Context) error
	Close() error
}

// Metrics records service-level counters and latencies.
type Metrics interface {
	RecordForecast(outcome string, categories int)
	RecordCategorySkipped(reason string)
	RecordGoal(outcome string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordCache(kind string, hit bool)
}
